// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"
	"slices"

	"github.com/gogpu/spvtrace/spirv"
)

// index caches lookups over a module being edited and appends new
// module-level declarations.
type index struct {
	m     *spirv.Module
	defs  map[uint32]spirv.Instruction
	names map[uint32]string
	taken map[string]bool
}

func newIndex(m *spirv.Module) *index {
	ix := &index{
		m:     m,
		defs:  make(map[uint32]spirv.Instruction),
		names: m.Names(),
		taken: make(map[string]bool),
	}
	m.Walk(func(inst *spirv.Instruction) {
		if id, ok := inst.ResultID(); ok {
			ix.defs[id] = *inst
		}
	})
	for _, name := range ix.names {
		ix.taken[name] = true
	}
	return ix
}

// def returns the defining instruction of id.
func (ix *index) def(id uint32) (spirv.Instruction, bool) {
	inst, ok := ix.defs[id]
	return inst, ok
}

// name returns the debug name of id, or "%<id>" when it has none.
func (ix *index) name(id uint32) string {
	if n, ok := ix.names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("%%%d", id)
}

// setName names id and records the name as taken.
func (ix *index) setName(id uint32, name string) {
	ix.m.SetName(id, name)
	ix.names[id] = name
	ix.taken[name] = true
}

// unique returns base, or base with the smallest "_N" suffix that is not
// taken yet.
func (ix *index) unique(base string) string {
	if !ix.taken[base] {
		return base
	}
	for n := 0; ; n++ {
		if c := fmt.Sprintf("%s_%d", base, n); !ix.taken[c] {
			return c
		}
	}
}

func (ix *index) addGlobal(inst spirv.Instruction) {
	ix.m.Globals = append(ix.m.Globals, inst)
	if id, ok := inst.ResultID(); ok {
		ix.defs[id] = inst
	}
}

// findGlobal returns the first declaration with opcode op whose operands
// after the result id equal operands.
func (ix *index) findGlobal(op spirv.OpCode, operands ...uint32) (uint32, bool) {
	for _, inst := range ix.m.Globals {
		if inst.Opcode == op && len(inst.Words) >= 1 && slices.Equal(inst.Words[1:], operands) {
			return inst.Words[0], true
		}
	}
	return 0, false
}

// declareType returns an existing type declaration or appends a new one.
func (ix *index) declareType(op spirv.OpCode, operands ...uint32) uint32 {
	if id, ok := ix.findGlobal(op, operands...); ok {
		return id
	}
	id := ix.m.AllocID()
	ix.addGlobal(spirv.NewInstructionBuilder().AddWord(id).AddWords(operands...).Build(op))
	return id
}

func (ix *index) uintType() uint32 {
	return ix.declareType(spirv.OpTypeInt, 32, 0)
}

func (ix *index) pointerType(storage spirv.StorageClass, pointee uint32) uint32 {
	return ix.declareType(spirv.OpTypePointer, uint32(storage), pointee)
}

// uintConstant returns an OpConstant of the 32-bit unsigned type.
func (ix *index) uintConstant(v uint32) uint32 {
	ty := ix.uintType()
	for _, inst := range ix.m.Globals {
		if inst.Opcode == spirv.OpConstant && len(inst.Words) == 3 && inst.Words[0] == ty && inst.Words[2] == v {
			return inst.Words[1]
		}
	}
	id := ix.m.AllocID()
	ix.addGlobal(spirv.NewInstructionBuilder().AddWords(ty, id, v).Build(spirv.OpConstant))
	return id
}

// variable appends a module-scope OpVariable.
func (ix *index) variable(storage spirv.StorageClass, pointee uint32) uint32 {
	ptr := ix.pointerType(storage, pointee)
	id := ix.m.AllocID()
	ix.addGlobal(spirv.NewInstructionBuilder().AddWords(ptr, id, uint32(storage)).Build(spirv.OpVariable))
	return id
}

// pointee returns the storage class and pointee type of a pointer-typed id.
func (ix *index) pointee(id uint32) (spirv.StorageClass, uint32, bool) {
	inst, ok := ix.def(id)
	if !ok {
		return 0, 0, false
	}
	ty, ok := inst.ResultType()
	if !ok {
		return 0, 0, false
	}
	ptr, ok := ix.def(ty)
	if !ok || ptr.Opcode != spirv.OpTypePointer || len(ptr.Words) < 3 {
		return 0, 0, false
	}
	return spirv.StorageClass(ptr.Words[1]), ptr.Words[2], true
}

// storageOf returns the storage class of a module-scope variable.
func (ix *index) storageOf(id uint32) (spirv.StorageClass, bool) {
	inst, ok := ix.def(id)
	if !ok || inst.Opcode != spirv.OpVariable || len(inst.Words) < 3 {
		return 0, false
	}
	return spirv.StorageClass(inst.Words[2]), true
}

// typeLabel names a scalar or vector type of bool, 32-bit int, uint or
// float components. Other types cannot be probed.
func (ix *index) typeLabel(ty uint32) (string, bool) {
	inst, ok := ix.def(ty)
	if !ok {
		return "", false
	}
	switch inst.Opcode {
	case spirv.OpTypeBool:
		return "bool", true
	case spirv.OpTypeInt:
		if len(inst.Words) < 3 || inst.Words[1] != 32 {
			return "", false
		}
		if inst.Words[2] != 0 {
			return "int", true
		}
		return "uint", true
	case spirv.OpTypeFloat:
		if len(inst.Words) < 2 || inst.Words[1] != 32 {
			return "", false
		}
		return "float", true
	case spirv.OpTypeVector:
		if len(inst.Words) < 3 || inst.Words[1] == ty {
			return "", false
		}
		comp, ok := ix.typeLabel(inst.Words[1])
		if !ok {
			return "", false
		}
		return fmt.Sprintf("v%d%s", inst.Words[2], comp), true
	}
	return "", false
}

// isInteger reports whether ty is an integer scalar or a vector of integers.
func (ix *index) isInteger(ty uint32) bool {
	inst, ok := ix.def(ty)
	if !ok {
		return false
	}
	switch inst.Opcode {
	case spirv.OpTypeInt:
		return true
	case spirv.OpTypeVector:
		return len(inst.Words) > 1 && inst.Words[1] != ty && ix.isInteger(inst.Words[1])
	}
	return false
}
