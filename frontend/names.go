// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package frontend

import (
	"slices"

	"github.com/gogpu/naga/ir"

	"github.com/gogpu/spvtrace/spirv"
)

// restoreNames adds OpName entries for module-scope variables and functions
// from the IR they were generated from. naga emits names for entry point
// arguments, parameters and locals only, and the transformer and decompiler
// read declaration names from OpName.
//
// The pairing relies on the emission order of github.com/gogpu/naga v0.14.8
// (the version pinned in go.mod): module-scope variables other than entry
// point inputs and outputs appear in IR declaration order, followed by the
// interface variables; functions appear in IR order. Each pair must also
// agree on storage class, binding and the shape of the pointee type, so a
// reordering is detected rather than swapping names. A pairing that
// disagrees is abandoned. Existing names are kept. It returns the number of
// names added.
func restoreNames(m *spirv.Module, module *ir.Module) int {
	names := m.Names()
	pending := make(map[uint32]string)

	var vars []spirv.Instruction
	for _, inst := range m.Globals {
		if inst.Opcode != spirv.OpVariable || len(inst.Words) < 3 {
			continue
		}
		switch spirv.StorageClass(inst.Words[2]) {
		case spirv.StorageClassInput, spirv.StorageClassOutput:
			continue
		}
		vars = append(vars, inst)
	}
	if globals := pairGlobals(m, vars, module); globals != nil {
		for id, name := range globals {
			pending[id] = name
		}
	}

	if len(m.Functions) == len(module.Functions) {
		for i := range m.Functions {
			if name := module.Functions[i].Name; name != "" {
				pending[m.Functions[i].ID()] = name
			}
		}
	}

	added := 0
	// Walk declarations in binary order so OpName entries are deterministic.
	for _, inst := range vars {
		added += setPending(m, names, pending, inst.Words[1])
	}
	for i := range m.Functions {
		added += setPending(m, names, pending, m.Functions[i].ID())
	}
	return added
}

func setPending(m *spirv.Module, names map[uint32]string, pending map[uint32]string, id uint32) int {
	name, ok := pending[id]
	if !ok {
		return 0
	}
	if _, named := names[id]; named {
		return 0
	}
	m.SetName(id, name)
	return 1
}

func pairGlobals(m *spirv.Module, vars []spirv.Instruction, module *ir.Module) map[uint32]string {
	globals := module.GlobalVariables
	if len(vars) < len(globals) {
		return nil
	}
	defs := m.Definitions()
	out := make(map[uint32]string, len(globals))
	for i, g := range globals {
		id := vars[i].Words[1]
		if spirv.StorageClass(vars[i].Words[2]) != storageClass(g.Space) {
			return nil
		}
		if !pointeeMatches(defs, vars[i].Words[0], module, g) {
			return nil
		}
		if g.Binding != nil {
			set, ok1 := m.Decoration(id, spirv.DecorationDescriptorSet)
			binding, ok2 := m.Decoration(id, spirv.DecorationBinding)
			if !ok1 || !ok2 || len(set) != 1 || len(binding) != 1 ||
				set[0] != g.Binding.Group || binding[0] != g.Binding.Binding {
				return nil
			}
		}
		if g.Name != "" {
			out[id] = g.Name
		}
	}
	return out
}

// pointeeMatches reports whether the pointer type ptr points at a type of
// the same kind as the type of g. Buffers whose type is not a struct are
// wrapped in one, so a struct pointee also matches them.
func pointeeMatches(defs map[uint32]*spirv.Instruction, ptr uint32, module *ir.Module, g ir.GlobalVariable) bool {
	ptrInst, ok := defs[ptr]
	if !ok || ptrInst.Opcode != spirv.OpTypePointer || len(ptrInst.Words) < 3 {
		return false
	}
	pointee, ok := defs[ptrInst.Words[2]]
	if !ok {
		return false
	}
	if int(g.Type) >= len(module.Types) {
		return false
	}
	switch g.Space {
	case ir.SpaceUniform, ir.SpaceStorage, ir.SpacePushConstant:
		if pointee.Opcode == spirv.OpTypeStruct {
			return true
		}
	}
	want := typeOpcodes(module.Types[g.Type].Inner)
	return want == nil || slices.Contains(want, pointee.Opcode)
}

// typeOpcodes returns the SPIR-V type opcodes an IR type can be emitted as,
// or nil when any is accepted.
func typeOpcodes(inner ir.TypeInner) []spirv.OpCode {
	scalar := func(kind ir.ScalarKind) []spirv.OpCode {
		switch kind {
		case ir.ScalarBool:
			return []spirv.OpCode{spirv.OpTypeBool}
		case ir.ScalarFloat:
			return []spirv.OpCode{spirv.OpTypeFloat}
		}
		return []spirv.OpCode{spirv.OpTypeInt}
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return scalar(t.Kind)
	case ir.AtomicType:
		return scalar(t.Scalar.Kind)
	case ir.VectorType:
		return []spirv.OpCode{spirv.OpTypeVector}
	case ir.MatrixType:
		return []spirv.OpCode{spirv.OpTypeMatrix}
	case ir.ArrayType, ir.BindingArrayType:
		return []spirv.OpCode{spirv.OpTypeArray, spirv.OpTypeRuntimeArray}
	case ir.StructType:
		return []spirv.OpCode{spirv.OpTypeStruct}
	case ir.ImageType:
		return []spirv.OpCode{spirv.OpTypeImage}
	case ir.SamplerType:
		return []spirv.OpCode{spirv.OpTypeSampler}
	}
	return nil
}

func storageClass(space ir.AddressSpace) spirv.StorageClass {
	switch space {
	case ir.SpaceFunction:
		return spirv.StorageClassFunction
	case ir.SpacePrivate:
		return spirv.StorageClassPrivate
	case ir.SpaceWorkGroup:
		return spirv.StorageClassWorkgroup
	case ir.SpaceUniform:
		return spirv.StorageClassUniform
	case ir.SpaceStorage:
		return spirv.StorageClassStorageBuffer
	case ir.SpacePushConstant:
		return spirv.StorageClassPushConstant
	}
	return spirv.StorageClassUniformConstant
}
