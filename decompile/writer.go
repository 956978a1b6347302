// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// structInfo is a struct type declared in the output.
type structInfo struct {
	name    string
	members []string
}

// ioVar is an Input or Output variable of an entry point interface.
type ioVar struct {
	id          uint32
	name        string
	pointee     uint32
	class       spirv.StorageClass
	location    uint32
	hasLocation bool
	builtin     spirv.BuiltIn
	hasBuiltin  bool
}

// writer turns a parsed module into WGSL text.
type writer struct {
	m       *spirv.Module
	defs    map[uint32]*spirv.Instruction
	names   map[uint32]string
	members map[uint32]map[uint32]string
	namer   *namer

	// ids holds the identifiers of globals, functions and parameters.
	ids         map[uint32]string
	structs     map[uint32]*structInfo
	typeNames   map[uint32]string
	resolving   map[uint32]bool
	entryNames  []string
	glslExt     uint32
	hasGLSLExt  bool
	comparisons map[uint32]bool

	out    strings.Builder
	indent int
}

func newWriter(m *spirv.Module) (*writer, error) {
	w := &writer{
		m:           m,
		defs:        m.Definitions(),
		names:       m.Names(),
		members:     m.MemberNames(),
		namer:       newNamer(),
		ids:         make(map[uint32]string),
		structs:     make(map[uint32]*structInfo),
		typeNames:   make(map[uint32]string),
		resolving:   make(map[uint32]bool),
		comparisons: make(map[uint32]bool),
	}
	w.glslExt, w.hasGLSLExt = m.ExtInstImport("GLSL.std.450")

	entryPoints, err := m.EntryPointList()
	if err != nil {
		return nil, fmt.Errorf("decompile error: %w", err)
	}
	// Entry point names are part of the pipeline interface; claim them first.
	for _, ep := range entryPoints {
		w.entryNames = append(w.entryNames, w.namer.call(ep.Name))
	}

	for _, inst := range m.Globals {
		if inst.Opcode != spirv.OpTypeStruct || w.isBuiltinBlock(inst.Words[0]) {
			continue
		}
		w.declareStruct(inst)
	}

	for _, inst := range m.Globals {
		if inst.Opcode != spirv.OpVariable {
			continue
		}
		id := inst.Words[1]
		base := w.names[id]
		if base == "" {
			switch spirv.StorageClass(inst.Words[2]) {
			case spirv.StorageClassInput:
				base = "input"
			case spirv.StorageClassOutput:
				base = "output"
			default:
				base = "global"
			}
		}
		w.ids[id] = w.namer.call(base)
	}

	for i := range m.Functions {
		fn := &m.Functions[i]
		base := w.names[fn.ID()]
		if base == "" {
			base = "function"
		}
		w.ids[fn.ID()] = w.namer.call(base)
		for _, p := range fn.Params {
			base := w.names[p.Words[1]]
			if base == "" {
				base = "param"
			}
			w.ids[p.Words[1]] = w.namer.call(base)
		}
	}

	w.findComparisonSamplers()
	return w, nil
}

func (w *writer) declareStruct(inst spirv.Instruction) {
	id := inst.Words[0]
	base := w.names[id]
	if base == "" {
		base = "Struct"
	}
	info := &structInfo{name: w.namer.call(base)}
	seen := newNamer()
	for i := range inst.Words[1:] {
		member := w.members[id][uint32(i)]
		if member == "" {
			member = fmt.Sprintf("member_%d", i)
		}
		info.members = append(info.members, seen.call(member))
	}
	w.structs[id] = info
}

// isBuiltinBlock reports whether a struct carries builtin members, as the
// gl_PerVertex block does. Such structs have no WGSL form.
func (w *writer) isBuiltinBlock(id uint32) bool {
	for _, inst := range w.m.Annotations {
		if inst.Opcode == spirv.OpMemberDecorate && inst.Words[0] == id &&
			spirv.Decoration(inst.Words[2]) == spirv.DecorationBuiltIn {
			return true
		}
	}
	return false
}

// findComparisonSamplers marks sampler variables used by depth-comparison
// instructions; WGSL spells their type sampler_comparison.
func (w *writer) findComparisonSamplers() {
	w.m.Walk(func(inst *spirv.Instruction) {
		switch inst.Opcode {
		case spirv.OpImageSampleDrefImplicitLod, spirv.OpImageSampleDrefExplicitLod, spirv.OpImageDrefGather:
		default:
			return
		}
		sampled, ok := w.defs[inst.Words[2]]
		if !ok || sampled.Opcode != spirv.OpSampledImage {
			return
		}
		if v := w.rootVariable(sampled.Words[3]); v != 0 {
			w.comparisons[v] = true
		}
	})
}

// rootVariable follows loads and copies of a handle to its variable.
func (w *writer) rootVariable(id uint32) uint32 {
	for {
		inst, ok := w.defs[id]
		if !ok {
			return 0
		}
		switch inst.Opcode {
		case spirv.OpVariable, spirv.OpFunctionParameter:
			return id
		case spirv.OpLoad, spirv.OpCopyObject:
			id = inst.Words[2]
		default:
			return 0
		}
	}
}

// pointee returns the storage class and pointee type of a pointer type.
func (w *writer) pointee(ptrType uint32) (spirv.StorageClass, uint32, bool) {
	inst, ok := w.defs[ptrType]
	if !ok || inst.Opcode != spirv.OpTypePointer {
		return 0, 0, false
	}
	return spirv.StorageClass(inst.Words[1]), inst.Words[2], true
}

func (w *writer) writeModule() error {
	for _, inst := range w.m.Globals {
		if inst.Opcode != spirv.OpTypeStruct {
			continue
		}
		if info, ok := w.structs[inst.Words[0]]; ok {
			if err := w.writeStruct(inst, info); err != nil {
				return err
			}
		}
	}

	wrote := false
	for _, inst := range w.m.Globals {
		if inst.Opcode != spirv.OpVariable {
			continue
		}
		if err := w.writeGlobal(inst); err != nil {
			return err
		}
		wrote = true
	}
	if wrote {
		w.writeLine("")
	}

	for i := range w.m.Functions {
		if err := w.writeFunction(&w.m.Functions[i]); err != nil {
			return err
		}
	}

	entryPoints, err := w.m.EntryPointList()
	if err != nil {
		return fmt.Errorf("decompile error: %w", err)
	}
	for i, ep := range entryPoints {
		if err := w.writeEntryPoint(ep, w.entryNames[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeStruct(inst spirv.Instruction, info *structInfo) error {
	w.writeLine("struct %s {", info.name)
	w.pushIndent()
	for i, member := range inst.Words[1:] {
		ty, err := w.typeName(member)
		if err != nil {
			return err
		}
		w.writeLine("%s: %s,", info.members[i], ty)
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

func (w *writer) writeGlobal(inst spirv.Instruction) error {
	id := inst.Words[1]
	name := w.ids[id]
	class, pointee, ok := w.pointee(inst.Words[0])
	if !ok {
		return errorf(inst.Opcode, id, "variable type is not a pointer")
	}

	switch class {
	case spirv.StorageClassUniformConstant:
		ty, err := w.handleType(id, pointee)
		if err != nil {
			return err
		}
		w.writeLine("%svar %s: %s;", w.bindingAttributes(id), name, ty)
		return nil
	case spirv.StorageClassUniform, spirv.StorageClassStorageBuffer:
		ty, err := w.typeName(pointee)
		if err != nil {
			return err
		}
		space := "uniform"
		if class == spirv.StorageClassStorageBuffer || w.isBufferBlock(pointee) {
			space = "storage, read_write"
			if w.isReadOnly(id, pointee) {
				space = "storage, read"
			}
		}
		w.writeLine("%svar<%s> %s: %s;", w.bindingAttributes(id), space, name, ty)
		return nil
	case spirv.StorageClassPushConstant:
		ty, err := w.typeName(pointee)
		if err != nil {
			return err
		}
		w.writeLine("var<push_constant> %s: %s;", name, ty)
		return nil
	case spirv.StorageClassInput, spirv.StorageClassOutput, spirv.StorageClassPrivate, spirv.StorageClassWorkgroup:
	default:
		return errorf(inst.Opcode, id, "storage class %s is not supported", class)
	}

	if w.isBuiltinBlock(pointee) {
		return errorf(inst.Opcode, id, "builtin interface blocks are not supported")
	}
	ty, err := w.typeName(pointee)
	if err != nil {
		return err
	}
	space := "private"
	if class == spirv.StorageClassWorkgroup {
		space = "workgroup"
	}
	if len(inst.Words) > 3 && class != spirv.StorageClassWorkgroup {
		init, err := w.literal(inst.Words[3])
		if err != nil {
			return err
		}
		w.writeLine("var<%s> %s: %s = %s;", space, name, ty, init)
		return nil
	}
	w.writeLine("var<%s> %s: %s;", space, name, ty)
	return nil
}

// handleType spells the type of a texture or sampler variable.
func (w *writer) handleType(variable, ty uint32) (string, error) {
	inst, err := w.typeInst(ty)
	if err != nil {
		return "", err
	}
	switch inst.Opcode {
	case spirv.OpTypeSampler:
		if w.comparisons[variable] {
			return "sampler_comparison", nil
		}
		return "sampler", nil
	case spirv.OpTypeImage:
		return w.imageTypeName(inst, variable)
	case spirv.OpTypeSampledImage:
		return "", errorf(inst.Opcode, variable, "combined image samplers are not supported")
	}
	return "", errorf(inst.Opcode, variable, "resource type has no WGSL spelling")
}

func (w *writer) bindingAttributes(id uint32) string {
	group, _ := w.m.Decoration(id, spirv.DecorationDescriptorSet)
	binding, _ := w.m.Decoration(id, spirv.DecorationBinding)
	var g, b uint32
	if len(group) > 0 {
		g = group[0]
	}
	if len(binding) > 0 {
		b = binding[0]
	}
	return fmt.Sprintf("@group(%d) @binding(%d) ", g, b)
}

func (w *writer) isBufferBlock(ty uint32) bool {
	_, ok := w.m.Decoration(ty, spirv.DecorationBufferBlock)
	return ok
}

// isReadOnly reports whether a storage buffer is never written, either by a
// NonWritable decoration on the variable or on every member of its struct.
func (w *writer) isReadOnly(variable, ty uint32) bool {
	if _, ok := w.m.Decoration(variable, spirv.DecorationNonWritable); ok {
		return true
	}
	inst, ok := w.defs[ty]
	if !ok || inst.Opcode != spirv.OpTypeStruct || len(inst.Words) < 2 {
		return false
	}
	for i := range inst.Words[1:] {
		if _, ok := w.m.MemberDecoration(ty, uint32(i), spirv.DecorationNonWritable); !ok {
			return false
		}
	}
	return true
}

// interfaceVars returns the Input and Output variables of an entry point.
func (w *writer) interfaceVars(ep spirv.EntryPoint) (inputs, outputs []ioVar, err error) {
	for _, id := range ep.Interface {
		inst, ok := w.defs[id]
		if !ok || inst.Opcode != spirv.OpVariable {
			return nil, nil, errorf(spirv.OpEntryPoint, id, "interface id is not a variable")
		}
		class, pointee, _ := w.pointee(inst.Words[0])
		if class != spirv.StorageClassInput && class != spirv.StorageClassOutput {
			continue
		}
		v := ioVar{id: id, name: w.ids[id], pointee: pointee, class: class}
		if loc, ok := w.m.Decoration(id, spirv.DecorationLocation); ok && len(loc) > 0 {
			v.location, v.hasLocation = loc[0], true
		}
		if b, ok := w.m.Decoration(id, spirv.DecorationBuiltIn); ok && len(b) > 0 {
			v.builtin, v.hasBuiltin = spirv.BuiltIn(b[0]), true
		}
		if !v.hasLocation && !v.hasBuiltin {
			return nil, nil, errorf(spirv.OpVariable, id, "interface variable has neither a location nor a builtin")
		}
		if class == spirv.StorageClassInput {
			inputs = append(inputs, v)
		} else {
			outputs = append(outputs, v)
		}
	}
	return inputs, outputs, nil
}

// builtinName maps a SPIR-V builtin to its WGSL attribute value.
func builtinName(b spirv.BuiltIn) (string, bool) {
	switch b {
	case spirv.BuiltInPosition, spirv.BuiltInFragCoord:
		return "position", true
	case spirv.BuiltInVertexIndex:
		return "vertex_index", true
	case spirv.BuiltInInstanceIndex:
		return "instance_index", true
	case spirv.BuiltInFrontFacing:
		return "front_facing", true
	case spirv.BuiltInFragDepth:
		return "frag_depth", true
	case spirv.BuiltInSampleID:
		return "sample_index", true
	}
	return "", false
}

// ioAttributes returns the attributes of an interface value and the WGSL
// type the attribute requires, if fixed.
func (w *writer) ioAttributes(v ioVar, model spirv.ExecutionModel) (string, string, error) {
	if v.hasBuiltin {
		name, ok := builtinName(v.builtin)
		if !ok {
			return "", "", errorf(spirv.OpVariable, v.id, "builtin %s is not supported", v.builtin)
		}
		attrs := fmt.Sprintf("@builtin(%s)", name)
		if _, ok := w.m.Decoration(v.id, spirv.DecorationInvariant); ok && name == "position" {
			attrs += " @invariant"
		}
		switch name {
		case "vertex_index", "instance_index", "sample_index":
			return attrs, "u32", nil
		}
		return attrs, "", nil
	}

	attrs := fmt.Sprintf("@location(%d)", v.location)
	interStage := (model == spirv.ExecutionModelVertex && v.class == spirv.StorageClassOutput) ||
		(model == spirv.ExecutionModelFragment && v.class == spirv.StorageClassInput)
	if !interStage {
		return attrs, "", nil
	}
	kind, _ := w.scalarOf(v.pointee)
	_, flat := w.m.Decoration(v.id, spirv.DecorationFlat)
	_, linear := w.m.Decoration(v.id, spirv.DecorationNoPerspective)
	_, centroid := w.m.Decoration(v.id, spirv.DecorationCentroid)
	_, sample := w.m.Decoration(v.id, spirv.DecorationSample)
	switch {
	case flat || kind == kindSint || kind == kindUint:
		attrs += " @interpolate(flat)"
	case linear || centroid || sample:
		mode := "perspective"
		if linear {
			mode = "linear"
		}
		switch {
		case centroid:
			attrs += fmt.Sprintf(" @interpolate(%s, centroid)", mode)
		case sample:
			attrs += fmt.Sprintf(" @interpolate(%s, sample)", mode)
		default:
			attrs += fmt.Sprintf(" @interpolate(%s)", mode)
		}
	}
	return attrs, "", nil
}

// writeEntryPoint emits the wrapper that moves the stage interface in and
// out of the private variables around a call to the entry function.
func (w *writer) writeEntryPoint(ep spirv.EntryPoint, name string) error {
	var stage string
	switch ep.Model {
	case spirv.ExecutionModelVertex:
		stage = "@vertex"
	case spirv.ExecutionModelFragment:
		stage = "@fragment"
	default:
		return errorf(spirv.OpEntryPoint, ep.Function, "execution model %s is not supported", ep.Model)
	}
	inputs, outputs, err := w.interfaceVars(ep)
	if err != nil {
		return err
	}

	var params, copies []string
	for _, in := range inputs {
		attrs, fixed, err := w.ioAttributes(in, ep.Model)
		if err != nil {
			return err
		}
		ty, err := w.typeName(in.pointee)
		if err != nil {
			return err
		}
		param := w.namer.call(in.name)
		value := param
		if fixed != "" && fixed != ty {
			value = fmt.Sprintf("%s(%s)", ty, param)
			ty = fixed
		}
		params = append(params, fmt.Sprintf("%s %s: %s", attrs, param, ty))
		copies = append(copies, fmt.Sprintf("%s = %s;", in.name, value))
	}

	type result struct {
		attrs, name, member, ty string
	}
	var results []result
	for _, out := range outputs {
		if out.hasBuiltin && out.builtin == spirv.BuiltInPointSize {
			continue
		}
		attrs, _, err := w.ioAttributes(out, ep.Model)
		if err != nil {
			return err
		}
		ty, err := w.typeName(out.pointee)
		if err != nil {
			return err
		}
		results = append(results, result{attrs: attrs, name: out.name, member: outputMember(out), ty: ty})
	}

	signature := fmt.Sprintf("fn %s(%s)", name, strings.Join(params, ", "))
	var ret string
	switch len(results) {
	case 0:
	case 1:
		signature += fmt.Sprintf(" -> %s %s", results[0].attrs, results[0].ty)
		ret = results[0].name
	default:
		output := w.namer.call(name + "_Output")
		w.writeLine("struct %s {", output)
		w.pushIndent()
		members := newNamer()
		names := make([]string, len(results))
		fields := make([]string, 0, len(results))
		for i, r := range results {
			names[i] = members.call(r.member)
			fields = append(fields, r.name)
		}
		// naga merges structs that differ only in IO attributes.
		if w.matchesStruct(names) {
			for i := range names {
				names[i] = members.call(names[i] + "_out")
			}
		}
		for i, r := range results {
			w.writeLine("%s %s: %s,", r.attrs, names[i], r.ty)
		}
		w.popIndent()
		w.writeLine("}")
		w.writeLine("")
		signature += " -> " + output
		ret = fmt.Sprintf("%s(%s)", output, strings.Join(fields, ", "))
	}

	w.writeLine("%s", stage)
	w.writeLine("%s {", signature)
	w.pushIndent()
	for _, c := range copies {
		w.writeLine("%s", c)
	}
	w.writeLine("%s();", w.ids[ep.Function])
	if ret != "" {
		w.writeLine("return %s;", ret)
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

// outputMember names an entry output struct member after its binding, so
// the struct never repeats the member list of a body struct.
func outputMember(v ioVar) string {
	if v.hasBuiltin {
		if name, ok := builtinName(v.builtin); ok {
			return "builtin_" + name
		}
	}
	if v.hasLocation {
		return fmt.Sprintf("loc%d_%s", v.location, v.name)
	}
	return v.name
}

// matchesStruct reports whether a declared struct has exactly these
// member names.
func (w *writer) matchesStruct(names []string) bool {
	for _, info := range w.structs {
		if slices.Equal(info.members, names) {
			return true
		}
	}
	return false
}

func (w *writer) pushIndent() { w.indent++ }

func (w *writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *writer) writeLine(format string, args ...any) {
	if format == "" {
		w.out.WriteByte('\n')
		return
	}
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
	fmt.Fprintf(&w.out, format, args...)
	w.out.WriteByte('\n')
}

// String returns the generated source.
func (w *writer) String() string {
	return strings.TrimRight(w.out.String(), "\n") + "\n"
}
