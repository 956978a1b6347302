// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/spirv"
)

// Names of the trace variables written by InstrumentForDebugging.
const (
	traceStepName    = "dbg_trace_step"
	traceValuePrefix = "dbg_trace_"
)

// InstrumentForDebugging inserts trace stores after the instructions that
// correspond to source constructs and returns the new stream with one ledger
// record per inserted instruction.
//
// Every probe stores its 1-based site number into the Private u32 variable
// dbg_trace_step. Probes that observe a scalar or vector value also store
// it into a Private variable per value type, such as dbg_trace_v4float.
// Probes follow stores, image samples and fetches, and calls with a result;
// they precede selection merges (observing the condition or selector) and
// loop merges. The trace variables are never read, so the shader computes
// the same results.
func (t *Transformer) InstrumentForDebugging() ([]uint32, Ledger) {
	var ledger Ledger
	out := t.edit("instrument", func(m *spirv.Module) error {
		var err error
		ledger, err = instrument(m)
		return err
	})
	if t.err != nil {
		t.ledger = nil
		return out, Ledger{}
	}
	t.ledger = ledger
	Logger().Debug("instrumented", zap.Int("records", len(ledger)))
	return out, ledger.Clone()
}

type instrumenter struct {
	ix      *index
	members map[uint32]map[uint32]string

	step   uint32            // dbg_trace_step variable
	values map[uint32]uint32 // value type -> trace variable
	traces map[uint32]bool   // every trace variable
	site   uint32
	ledger Ledger
}

func instrument(m *spirv.Module) (Ledger, error) {
	in := &instrumenter{
		ix:      newIndex(m),
		members: m.MemberNames(),
		values:  make(map[uint32]uint32),
		traces:  make(map[uint32]bool),
	}
	for id, name := range in.ix.names {
		if strings.HasPrefix(name, traceValuePrefix) {
			if storage, ok := in.ix.storageOf(id); ok && storage == spirv.StorageClassPrivate {
				in.traces[id] = true
			}
		}
	}

	for fi := range m.Functions {
		fn := &m.Functions[fi]
		for bi := range fn.Blocks {
			prologue := 0
			if bi == 0 {
				prologue = fn.PrologueLen()
			}
			fn.Blocks[bi].Body = in.block(&fn.Blocks[bi], prologue)
		}
	}

	// SPIR-V 1.4 lists every referenced global in the interface.
	if m.Header.Version.Major == 1 && m.Header.Version.Minor >= 4 && len(in.traces) > 0 {
		if err := in.extendInterfaces(m); err != nil {
			return nil, err
		}
	}
	return in.ledger, nil
}

// block returns the body of b with probes inserted. The first prologue
// instructions are left untouched.
func (in *instrumenter) block(b *spirv.Block, prologue int) []spirv.Instruction {
	body := b.Body
	out := make([]spirv.Instruction, 0, len(body)+4)
	out = append(out, body[:prologue]...)

	for j := prologue; j < len(body); j++ {
		inst := body[j]
		switch inst.Opcode {
		case spirv.OpSelectionMerge:
			if j+1 < len(body) {
				out = append(out, in.selection(body[j+1])...)
			}
			out = append(out, inst)
			continue
		case spirv.OpLoopMerge:
			out = append(out, in.probe(0, 0, fmt.Sprintf("loop(%s)", in.ix.name(b.ID())))...)
			out = append(out, inst)
			continue
		}

		out = append(out, inst)
		if inst.Opcode.IsTerminator() {
			continue
		}
		out = append(out, in.after(inst)...)
	}
	return out
}

// selection probes the branch condition or switch selector of a selection
// construct.
func (in *instrumenter) selection(term spirv.Instruction) []spirv.Instruction {
	switch term.Opcode {
	case spirv.OpBranchConditional:
		cond := term.Words[0]
		return in.probe(cond, in.typeOf(cond), fmt.Sprintf("branch(%s)", in.ix.name(cond)))
	case spirv.OpSwitch:
		sel := term.Words[0]
		return in.probe(sel, in.typeOf(sel), fmt.Sprintf("switch(%s)", in.ix.name(sel)))
	}
	return in.probe(0, 0, "branch")
}

// after returns the probes that follow inst.
func (in *instrumenter) after(inst spirv.Instruction) []spirv.Instruction {
	switch {
	case inst.Opcode == spirv.OpStore:
		target, value := inst.Words[0], inst.Words[1]
		if in.traces[target] || target == in.step {
			return nil
		}
		return in.probe(value, in.typeOf(value), in.target(target))
	case inst.Opcode.IsImageSample(), inst.Opcode == spirv.OpImageGather, inst.Opcode == spirv.OpImageDrefGather:
		return in.probe(inst.Words[1], inst.Words[0], fmt.Sprintf("sample(%s)", in.image(inst.Words[2])))
	case inst.Opcode == spirv.OpImageFetch, inst.Opcode == spirv.OpImageRead:
		return in.probe(inst.Words[1], inst.Words[0], fmt.Sprintf("load(%s)", in.image(inst.Words[2])))
	case inst.Opcode == spirv.OpFunctionCall:
		ret, _ := in.ix.def(inst.Words[0])
		if ret.Opcode == spirv.OpTypeVoid {
			return nil
		}
		return in.probe(inst.Words[1], inst.Words[0], fmt.Sprintf("call(%s)", in.ix.name(inst.Words[2])))
	}
	return nil
}

// probe records site and, when valueType can be traced, value. A zero value
// records the site only.
func (in *instrumenter) probe(value, valueType uint32, source string) []spirv.Instruction {
	in.site++
	if in.step == 0 {
		in.step = in.traceVariable(in.ix.uintType(), traceStepName)
	}
	stores := []spirv.Instruction{
		spirv.NewInstructionBuilder().AddWords(in.step, in.ix.uintConstant(in.site)).Build(spirv.OpStore),
	}
	if value != 0 {
		if label, ok := in.ix.typeLabel(valueType); ok {
			v, seen := in.values[valueType]
			if !seen {
				v = in.traceVariable(valueType, traceValuePrefix+label)
				in.values[valueType] = v
			}
			stores = append(stores, spirv.NewInstructionBuilder().AddWords(v, value).Build(spirv.OpStore))
		}
	}
	for _, s := range stores {
		in.ledger = append(in.ledger, Record{Words: s.Encode(), SourceName: source})
	}
	return stores
}

func (in *instrumenter) traceVariable(ty uint32, name string) uint32 {
	id := in.ix.variable(spirv.StorageClassPrivate, ty)
	in.ix.setName(id, in.ix.unique(name))
	in.traces[id] = true
	return id
}

func (in *instrumenter) typeOf(id uint32) uint32 {
	inst, ok := in.ix.def(id)
	if !ok {
		return 0
	}
	ty, _ := inst.ResultType()
	return ty
}

// target names the destination of a store: the variable name followed by
// struct member names or index values of an access chain.
func (in *instrumenter) target(ptr uint32) string {
	return in.chainTarget(ptr, make(map[uint32]bool))
}

// chainTarget walks access chains back to their root. A chain that loops
// back on itself ends at the repeated id.
func (in *instrumenter) chainTarget(ptr uint32, visited map[uint32]bool) string {
	inst, ok := in.ix.def(ptr)
	if !ok || visited[ptr] || len(inst.Words) < 3 ||
		(inst.Opcode != spirv.OpAccessChain && inst.Opcode != spirv.OpInBoundsAccessChain) {
		return in.ix.name(ptr)
	}
	visited[ptr] = true
	base := inst.Words[2]
	name := in.chainTarget(base, visited)
	_, ty, ok := in.ix.pointee(base)
	if !ok {
		return name
	}
	for _, idx := range inst.Words[3:] {
		tyInst, ok := in.ix.def(ty)
		if !ok {
			return name
		}
		v, isConst := in.constant(idx)
		switch tyInst.Opcode {
		case spirv.OpTypeStruct:
			if !isConst || int(v)+1 >= len(tyInst.Words) {
				return name
			}
			member, ok := in.members[ty][v]
			if !ok || member == "" {
				member = fmt.Sprintf("member_%d", v)
			}
			name += "." + member
			ty = tyInst.Words[1+v]
		case spirv.OpTypeVector, spirv.OpTypeMatrix, spirv.OpTypeArray, spirv.OpTypeRuntimeArray:
			if len(tyInst.Words) < 2 {
				return name
			}
			if isConst {
				name += fmt.Sprintf("[%d]", v)
			} else {
				name += fmt.Sprintf("[%s]", in.ix.name(idx))
			}
			ty = tyInst.Words[1]
		default:
			return name
		}
	}
	return name
}

func (in *instrumenter) constant(id uint32) (uint32, bool) {
	inst, ok := in.ix.def(id)
	if !ok || inst.Opcode != spirv.OpConstant || len(inst.Words) != 3 {
		return 0, false
	}
	return inst.Words[2], true
}

// image names the texture variable an image operand was loaded from.
func (in *instrumenter) image(id uint32) string {
	inst, ok := in.ix.def(id)
	if !ok || len(inst.Words) < 3 || inst.Words[2] == id {
		return in.ix.name(id)
	}
	switch inst.Opcode {
	case spirv.OpSampledImage, spirv.OpImage:
		return in.image(inst.Words[2])
	case spirv.OpLoad:
		return in.target(inst.Words[2])
	}
	return in.ix.name(id)
}

func (in *instrumenter) extendInterfaces(m *spirv.Module) error {
	eps, err := m.EntryPointList()
	if err != nil {
		return err
	}
	for i, ep := range eps {
		listed := make(map[uint32]bool, len(ep.Interface))
		for _, id := range ep.Interface {
			listed[id] = true
		}
		for _, inst := range m.Globals {
			if inst.Opcode == spirv.OpVariable && in.traces[inst.Words[1]] && !listed[inst.Words[1]] {
				ep.Interface = append(ep.Interface, inst.Words[1])
			}
		}
		m.EntryPoints[i] = ep.Encode()
	}
	return nil
}
