// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"fmt"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// funcContext carries the per-function state of the writer.
type funcContext struct {
	w  *writer
	fn *spirv.Function

	// local names values (let bindings) and function variables.
	local map[uint32]string
	// values holds instructions bound to a name at their definition.
	values map[uint32]*spirv.Instruction
	// inline holds instructions rendered at every use.
	inline    map[uint32]*spirv.Instruction
	ptrParams map[uint32]bool

	parents  []int
	defScope map[uint32]int
	hoisted  map[uint32]bool
	hoists   []uint32
}

func newFuncContext(w *writer, fn *spirv.Function) (*funcContext, error) {
	fc := &funcContext{
		w:         w,
		fn:        fn,
		local:     make(map[uint32]string),
		values:    make(map[uint32]*spirv.Instruction),
		inline:    make(map[uint32]*spirv.Instruction),
		ptrParams: make(map[uint32]bool),
		defScope:  make(map[uint32]int),
		hoisted:   make(map[uint32]bool),
	}
	for _, p := range fn.Params {
		if _, _, ok := w.pointee(p.Words[0]); ok {
			fc.ptrParams[p.Words[1]] = true
		}
	}
	for bi := range fn.Blocks {
		for i := range fn.Blocks[bi].Body {
			if err := fc.classify(&fn.Blocks[bi].Body[i]); err != nil {
				return nil, err
			}
		}
	}
	return fc, nil
}

// classify sorts a function instruction into variables, inline
// expressions and bound values.
func (fc *funcContext) classify(inst *spirv.Instruction) error {
	switch inst.Opcode {
	case spirv.OpPhi:
		return errorf(inst.Opcode, inst.Words[1], "phi instructions are not supported")
	case spirv.OpPtrAccessChain, spirv.OpImageTexelPointer:
		return errorf(inst.Opcode, inst.Words[1], "pointer arithmetic is not supported")
	case spirv.OpVariable:
		base := fc.w.names[inst.Words[1]]
		if base == "" {
			base = "local"
		}
		fc.local[inst.Words[1]] = fc.w.namer.call(base)
		return nil
	case spirv.OpUndef:
		return nil
	case spirv.OpAccessChain, spirv.OpInBoundsAccessChain, spirv.OpSampledImage, spirv.OpImage:
		fc.inline[inst.Words[1]] = inst
		return nil
	case spirv.OpLoad, spirv.OpCopyObject:
		if fc.isHandle(inst.Words[0]) {
			fc.inline[inst.Words[1]] = inst
			return nil
		}
	}
	if inst.Opcode >= spirv.OpAtomicLoad && inst.Opcode <= spirv.OpAtomicXor {
		return errorf(inst.Opcode, 0, "atomic instructions are not supported")
	}

	id, ok := inst.ResultID()
	if !ok {
		return nil
	}
	ty, _ := inst.ResultType()
	if def, ok := fc.w.defs[ty]; ok && def.Opcode == spirv.OpTypeVoid {
		return nil
	}
	fc.values[id] = inst
	base := fc.w.names[id]
	if base == "" {
		base = fmt.Sprintf("v%d", id)
	}
	fc.local[id] = fc.w.namer.call(base)
	return nil
}

// isHandle reports whether values of type ty are pointers or opaque handles,
// which WGSL cannot bind with let.
func (fc *funcContext) isHandle(ty uint32) bool {
	def, ok := fc.w.defs[ty]
	if !ok {
		return false
	}
	switch def.Opcode {
	case spirv.OpTypePointer, spirv.OpTypeImage, spirv.OpTypeSampler, spirv.OpTypeSampledImage:
		return true
	}
	return false
}

func (fc *funcContext) newScope(parent int) int {
	fc.parents = append(fc.parents, parent)
	return len(fc.parents) - 1
}

// within reports whether scope is outer or nested inside it.
func (fc *funcContext) within(scope, outer int) bool {
	for scope >= 0 {
		if scope == outer {
			return true
		}
		scope = fc.parents[scope]
	}
	return false
}

// analyze records the scope of every definition and hoists values that are
// used outside the statement list that defines them.
func (fc *funcContext) analyze(nodes []node, scope int) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *blockNode:
			for i := range n.body {
				inst := &n.body[i]
				if err := fc.useOperands(inst, scope); err != nil {
					return err
				}
				if id, ok := inst.ResultID(); ok {
					if _, ok := fc.values[id]; ok {
						fc.defScope[id] = scope
					}
				}
			}
		case *ifNode:
			fc.use(n.cond, scope)
			if err := fc.analyze(n.accept, fc.newScope(scope)); err != nil {
				return err
			}
			if err := fc.analyze(n.reject, fc.newScope(scope)); err != nil {
				return err
			}
		case *loopNode:
			if err := fc.analyze(n.body, fc.newScope(scope)); err != nil {
				return err
			}
			if err := fc.analyze(n.continuing, fc.newScope(scope)); err != nil {
				return err
			}
		case *switchNode:
			fc.use(n.selector, scope)
			for _, c := range n.cases {
				if err := fc.analyze(c.body, fc.newScope(scope)); err != nil {
					return err
				}
			}
		case *jumpNode:
			if n.value != 0 {
				fc.use(n.value, scope)
			}
		}
	}
	return nil
}

func (fc *funcContext) useOperands(inst *spirv.Instruction, scope int) error {
	refs, err := inst.IDOperands()
	if err != nil {
		return errorf(inst.Opcode, 0, "%v", err)
	}
	for _, at := range refs {
		fc.use(inst.Words[at], scope)
	}
	return nil
}

func (fc *funcContext) use(id uint32, scope int) {
	if inst, ok := fc.inline[id]; ok {
		_ = fc.useOperands(inst, scope)
		return
	}
	if _, ok := fc.values[id]; !ok || fc.hoisted[id] {
		return
	}
	if def, ok := fc.defScope[id]; ok && fc.within(scope, def) {
		return
	}
	fc.hoisted[id] = true
	fc.hoists = append(fc.hoists, id)
}

func (w *writer) writeFunction(fn *spirv.Function) error {
	fc, err := newFuncContext(w, fn)
	if err != nil {
		return err
	}
	tree, err := structurize(fn)
	if err != nil {
		return err
	}
	if err := fc.analyze(tree, fc.newScope(-1)); err != nil {
		return err
	}

	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		ty, err := fc.paramType(p)
		if err != nil {
			return err
		}
		params = append(params, fmt.Sprintf("%s: %s", w.ids[p.Words[1]], ty))
	}
	signature := fmt.Sprintf("fn %s(%s)", w.ids[fn.ID()], strings.Join(params, ", "))
	if def, ok := w.defs[fn.ReturnType()]; !ok || def.Opcode != spirv.OpTypeVoid {
		ret, err := w.typeName(fn.ReturnType())
		if err != nil {
			return err
		}
		signature += " -> " + ret
	}
	w.writeLine("%s {", signature)
	w.pushIndent()

	for bi := range fn.Blocks {
		for _, inst := range fn.Blocks[bi].Body {
			if inst.Opcode != spirv.OpVariable {
				continue
			}
			if err := fc.writeLocal(inst); err != nil {
				return err
			}
		}
	}
	for _, id := range fc.hoists {
		ty, _ := fc.values[id].ResultType()
		name, err := w.typeName(ty)
		if err != nil {
			return err
		}
		w.writeLine("var %s: %s;", fc.local[id], name)
	}

	if err := fc.writeNodes(tree); err != nil {
		return err
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

func (fc *funcContext) paramType(p spirv.Instruction) (string, error) {
	class, pointee, ok := fc.w.pointee(p.Words[0])
	if !ok {
		return fc.w.typeName(p.Words[0])
	}
	space := "function"
	if class == spirv.StorageClassPrivate {
		space = "private"
	} else if class != spirv.StorageClassFunction {
		return "", errorf(p.Opcode, p.Words[1], "pointer parameters in storage class %s are not supported", class)
	}
	ty, err := fc.w.typeName(pointee)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ptr<%s, %s>", space, ty), nil
}

func (fc *funcContext) writeLocal(inst spirv.Instruction) error {
	_, pointee, ok := fc.w.pointee(inst.Words[0])
	if !ok {
		return errorf(inst.Opcode, inst.Words[1], "variable type is not a pointer")
	}
	ty, err := fc.w.typeName(pointee)
	if err != nil {
		return err
	}
	name := fc.local[inst.Words[1]]
	if len(inst.Words) > 3 {
		init, err := fc.w.literal(inst.Words[3])
		if err != nil {
			return err
		}
		fc.w.writeLine("var %s: %s = %s;", name, ty, init)
		return nil
	}
	fc.w.writeLine("var %s: %s;", name, ty)
	return nil
}

func (fc *funcContext) writeNodes(nodes []node) error {
	w := fc.w
	for _, n := range nodes {
		switch n := n.(type) {
		case *blockNode:
			for i := range n.body {
				if err := fc.writeInstruction(&n.body[i]); err != nil {
					return err
				}
			}
		case *ifNode:
			cond, err := fc.expr(n.cond)
			if err != nil {
				return err
			}
			accept, reject := n.accept, n.reject
			if len(accept) == 0 {
				cond = "!(" + cond + ")"
				accept, reject = reject, nil
			}
			w.writeLine("if %s {", cond)
			w.pushIndent()
			if err := fc.writeNodes(accept); err != nil {
				return err
			}
			w.popIndent()
			if len(reject) > 0 {
				w.writeLine("} else {")
				w.pushIndent()
				if err := fc.writeNodes(reject); err != nil {
					return err
				}
				w.popIndent()
			}
			w.writeLine("}")
		case *loopNode:
			w.writeLine("loop {")
			w.pushIndent()
			if err := fc.writeNodes(n.body); err != nil {
				return err
			}
			if len(n.continuing) > 0 {
				w.writeLine("continuing {")
				w.pushIndent()
				if err := fc.writeNodes(n.continuing); err != nil {
					return err
				}
				w.popIndent()
				w.writeLine("}")
			}
			w.popIndent()
			w.writeLine("}")
		case *switchNode:
			if err := fc.writeSwitch(n); err != nil {
				return err
			}
		case *jumpNode:
			switch n.kind {
			case jumpBreak:
				w.writeLine("break;")
			case jumpContinue:
				w.writeLine("continue;")
			case jumpDiscard:
				w.writeLine("discard;")
			case jumpReturn:
				if n.value == 0 {
					w.writeLine("return;")
					continue
				}
				value, err := fc.expr(n.value)
				if err != nil {
					return err
				}
				w.writeLine("return %s;", value)
			}
		}
	}
	return nil
}

func (fc *funcContext) writeSwitch(n *switchNode) error {
	w := fc.w
	selector, err := fc.expr(n.selector)
	if err != nil {
		return err
	}
	ty, _ := fc.typeOf(n.selector)
	kind, _ := w.scalarOf(ty)
	w.writeLine("switch %s {", selector)
	w.pushIndent()
	for _, c := range n.cases {
		if c.isDefault {
			w.writeLine("default: {")
		} else {
			values := make([]string, len(c.values))
			for i, v := range c.values {
				if kind == kindSint {
					values[i] = fmt.Sprintf("%di", int32(v))
				} else {
					values[i] = fmt.Sprintf("%du", v)
				}
			}
			w.writeLine("case %s: {", strings.Join(values, ", "))
		}
		w.pushIndent()
		if err := fc.writeNodes(c.body); err != nil {
			return err
		}
		w.popIndent()
		w.writeLine("}")
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// writeInstruction emits one straight-line instruction.
func (fc *funcContext) writeInstruction(inst *spirv.Instruction) error {
	w := fc.w
	if id, ok := inst.ResultID(); ok {
		if _, ok := fc.values[id]; ok {
			value, err := fc.value(inst)
			if err != nil {
				return err
			}
			if fc.hoisted[id] {
				w.writeLine("%s = %s;", fc.local[id], value)
			} else {
				w.writeLine("let %s = %s;", fc.local[id], value)
			}
			return nil
		}
	}

	switch inst.Opcode {
	case spirv.OpNop, spirv.OpLine, spirv.OpNoLine, spirv.OpVariable, spirv.OpUndef,
		spirv.OpAccessChain, spirv.OpInBoundsAccessChain, spirv.OpSampledImage, spirv.OpImage,
		spirv.OpLoad, spirv.OpCopyObject:
		return nil
	case spirv.OpStore:
		target, err := fc.lvalue(inst.Words[0])
		if err != nil {
			return err
		}
		value, err := fc.expr(inst.Words[1])
		if err != nil {
			return err
		}
		w.writeLine("%s = %s;", target, value)
		return nil
	case spirv.OpCopyMemory:
		target, err := fc.lvalue(inst.Words[0])
		if err != nil {
			return err
		}
		source, err := fc.lvalue(inst.Words[1])
		if err != nil {
			return err
		}
		w.writeLine("%s = %s;", target, source)
		return nil
	case spirv.OpFunctionCall:
		call, err := fc.call(inst)
		if err != nil {
			return err
		}
		w.writeLine("%s;", call)
		return nil
	case spirv.OpImageWrite:
		store, err := fc.imageWrite(inst)
		if err != nil {
			return err
		}
		w.writeLine("%s;", store)
		return nil
	}
	id, _ := inst.ResultID()
	return errorf(inst.Opcode, id, "instruction is not supported")
}

// typeOf returns the result type of a value.
func (fc *funcContext) typeOf(id uint32) (uint32, bool) {
	inst, ok := fc.w.defs[id]
	if !ok {
		return 0, false
	}
	return inst.ResultType()
}

// expr renders a value operand.
func (fc *funcContext) expr(id uint32) (string, error) {
	if name, ok := fc.local[id]; ok {
		return name, nil
	}
	if name, ok := fc.w.ids[id]; ok {
		return name, nil
	}
	if inst, ok := fc.inline[id]; ok {
		switch inst.Opcode {
		case spirv.OpLoad:
			return fc.lvalue(inst.Words[2])
		case spirv.OpCopyObject:
			return fc.expr(inst.Words[2])
		case spirv.OpImage:
			image, _, err := fc.handles(inst.Words[2])
			return image, err
		}
		return "", errorf(inst.Opcode, id, "value cannot be used here")
	}
	inst, ok := fc.w.defs[id]
	if !ok {
		return "", errorf(spirv.OpNop, id, "undefined value")
	}
	if inst.Opcode.IsConstant() || inst.Opcode == spirv.OpUndef {
		return fc.w.literal(id)
	}
	return "", errorf(inst.Opcode, id, "value cannot be used here")
}

// lvalue renders a pointer as the memory it refers to.
func (fc *funcContext) lvalue(ptr uint32) (string, error) {
	if fc.ptrParams[ptr] {
		return "(*" + fc.w.ids[ptr] + ")", nil
	}
	if name, ok := fc.local[ptr]; ok {
		return name, nil
	}
	inst, ok := fc.inline[ptr]
	if !ok {
		if def, ok := fc.w.defs[ptr]; ok && def.Opcode == spirv.OpVariable {
			return fc.w.ids[ptr], nil
		}
		return "", errorf(spirv.OpNop, ptr, "not a pointer")
	}
	switch inst.Opcode {
	case spirv.OpCopyObject:
		return fc.lvalue(inst.Words[2])
	case spirv.OpAccessChain, spirv.OpInBoundsAccessChain:
	default:
		return "", errorf(inst.Opcode, ptr, "not a pointer")
	}

	base, err := fc.lvalue(inst.Words[2])
	if err != nil {
		return "", err
	}
	baseType, _ := fc.typeOf(inst.Words[2])
	_, ty, ok := fc.w.pointee(baseType)
	if !ok {
		return "", errorf(inst.Opcode, ptr, "access chain base is not a pointer")
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, index := range inst.Words[3:] {
		next, err := fc.step(&sb, ty, index, true)
		if err != nil {
			return "", err
		}
		ty = next
	}
	return sb.String(), nil
}

// step appends one component selection of composite type ty. The index is
// an id when dynamic is set and a literal otherwise.
func (fc *funcContext) step(sb *strings.Builder, ty, index uint32, dynamic bool) (uint32, error) {
	def, err := fc.w.typeInst(ty)
	if err != nil {
		return 0, err
	}
	literal := index
	if dynamic {
		if v, ok := fc.w.constantWord(index); ok {
			literal = v
		} else if def.Opcode == spirv.OpTypeStruct {
			return 0, errorf(spirv.OpAccessChain, index, "struct member index is not a constant")
		}
	}
	switch def.Opcode {
	case spirv.OpTypeStruct:
		info, ok := fc.w.structs[ty]
		if !ok || int(literal) >= len(info.members) {
			return 0, errorf(def.Opcode, ty, "member %d out of range", literal)
		}
		sb.WriteString("." + info.members[literal])
		return def.Words[1+literal], nil
	case spirv.OpTypeVector:
		if !dynamic && literal < 4 {
			sb.WriteString("." + string("xyzw"[literal]))
			return def.Words[1], nil
		}
	case spirv.OpTypeMatrix, spirv.OpTypeArray, spirv.OpTypeRuntimeArray:
	default:
		return 0, errorf(def.Opcode, ty, "type cannot be indexed")
	}
	if dynamic {
		idx, err := fc.expr(index)
		if err != nil {
			return 0, err
		}
		sb.WriteString("[" + idx + "]")
	} else {
		fmt.Fprintf(sb, "[%d]", literal)
	}
	return def.Words[1], nil
}

// handles resolves an image, sampler or sampled image operand to the WGSL
// texture and sampler expressions it names.
func (fc *funcContext) handles(id uint32) (string, string, error) {
	inst, ok := fc.inline[id]
	if !ok {
		if name, ok := fc.w.ids[id]; ok {
			return name, "", nil
		}
		return "", "", errorf(spirv.OpNop, id, "not an image")
	}
	switch inst.Opcode {
	case spirv.OpLoad:
		name, err := fc.lvalue(inst.Words[2])
		return name, "", err
	case spirv.OpCopyObject:
		return fc.handles(inst.Words[2])
	case spirv.OpImage:
		image, _, err := fc.handles(inst.Words[2])
		return image, "", err
	case spirv.OpSampledImage:
		image, _, err := fc.handles(inst.Words[2])
		if err != nil {
			return "", "", err
		}
		sampler, _, err := fc.handles(inst.Words[3])
		return image, sampler, err
	}
	return "", "", errorf(inst.Opcode, id, "not an image")
}

func (fc *funcContext) call(inst *spirv.Instruction) (string, error) {
	callee, ok := fc.w.ids[inst.Words[2]]
	if !ok {
		return "", errorf(inst.Opcode, inst.Words[2], "call to unknown function")
	}
	args := make([]string, 0, len(inst.Words)-3)
	for _, arg := range inst.Words[3:] {
		var s string
		var err error
		ty, _ := fc.typeOf(arg)
		if fc.ptrParams[arg] {
			s = fc.w.ids[arg]
		} else if _, _, isPtr := fc.w.pointee(ty); isPtr {
			s, err = fc.lvalue(arg)
			s = "&" + s
		} else {
			s, err = fc.expr(arg)
		}
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", ")), nil
}
