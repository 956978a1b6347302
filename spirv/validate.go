// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"errors"
	"fmt"
)

// ValidationError describes one structural problem found by Validate.
type ValidationError struct {
	Op      OpCode
	ID      uint32
	Message string
}

func (e *ValidationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("spirv: %s %%%d: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("spirv: %s: %s", e.Op, e.Message)
}

// maxValidationErrors bounds the errors joined by Validate.
const maxValidationErrors = 16

// Validate checks that the module is well formed enough to be consumed by the
// disassembler and decompiler: every instruction matches the grammar, result
// ids are below the bound and defined once, every referenced id is defined
// somewhere in the module and entry points name functions.
//
// No instruction may reference its own result. Types, constants and global
// variables reference only earlier declarations, except for pointers
// declared by OpTypeForwardPointer. Inside a function, values are defined
// before use; labels, functions and OpPhi operands may be referenced ahead.
func (m *Module) Validate() error {
	var errs []error
	report := func(op OpCode, id uint32, format string, args ...any) {
		if len(errs) < maxValidationErrors {
			errs = append(errs, &ValidationError{Op: op, ID: id, Message: fmt.Sprintf(format, args...)})
		}
	}

	if m.Header.Magic != MagicNumber {
		report(OpNop, 0, "bad magic number 0x%08x", m.Header.Magic)
	}
	if m.MemoryModel == nil {
		report(OpMemoryModel, 0, "missing memory model")
	}

	defined := make(map[uint32]OpCode)
	m.Walk(func(inst *Instruction) {
		if _, err := inst.Operands(); err != nil {
			report(inst.Opcode, 0, "%v", err)
			return
		}
		id, ok := inst.ResultID()
		if !ok {
			return
		}
		switch {
		case id == 0:
			report(inst.Opcode, id, "result id 0 is reserved")
		case id >= m.Header.Bound:
			report(inst.Opcode, id, "result id exceeds bound %d", m.Header.Bound)
		}
		if _, dup := defined[id]; dup {
			report(inst.Opcode, id, "id defined more than once")
		}
		defined[id] = inst.Opcode
	})

	m.Walk(func(inst *Instruction) {
		refs, err := inst.IDOperands()
		if err != nil {
			return
		}
		for _, pos := range refs {
			ref := inst.Words[pos]
			if _, ok := defined[ref]; !ok {
				report(inst.Opcode, ref, "reference to undefined id")
			}
		}
	})

	m.validateOrder(report)

	for _, inst := range m.EntryPoints {
		ep, err := DecodeEntryPoint(inst)
		if err != nil {
			report(OpEntryPoint, 0, "%v", err)
			continue
		}
		if defined[ep.Function] != OpFunction {
			report(OpEntryPoint, ep.Function, "entry point %q does not name a function", ep.Name)
		}
	}

	for i := range m.Functions {
		f := &m.Functions[i]
		if f.End.Opcode != OpFunctionEnd {
			report(OpFunction, f.ID(), "function is not closed")
		}
		for bi := range f.Blocks {
			if t := f.Blocks[bi].Terminator(); t == nil || !t.Opcode.IsTerminator() {
				report(OpLabel, f.Blocks[bi].ID(), "block has no terminator")
			}
		}
	}

	return errors.Join(errs...)
}

// validateOrder reports self references and uses ahead of definitions in
// the global and function sections.
func (m *Module) validateOrder(report func(op OpCode, id uint32, format string, args ...any)) {
	check := func(inst *Instruction, ahead func(ref uint32) bool) {
		refs, err := inst.IDOperands()
		if err != nil {
			return
		}
		self, hasResult := inst.ResultID()
		for _, pos := range refs {
			ref := inst.Words[pos]
			switch {
			case hasResult && ref == self:
				report(inst.Opcode, self, "instruction references its own result")
			case ahead(ref):
				report(inst.Opcode, ref, "id used before its definition")
			}
		}
	}

	pending := make(map[uint32]bool)
	for i := range m.Globals {
		if id, ok := m.Globals[i].ResultID(); ok {
			pending[id] = true
		}
	}
	forward := make(map[uint32]bool)
	for i := range m.Globals {
		inst := &m.Globals[i]
		if inst.Opcode == OpTypeForwardPointer {
			if len(inst.Words) > 0 {
				forward[inst.Words[0]] = true
			}
			continue
		}
		check(inst, func(ref uint32) bool {
			return pending[ref] && !forward[ref]
		})
		if id, ok := inst.ResultID(); ok {
			delete(pending, id)
		}
	}

	for fi := range m.Functions {
		f := &m.Functions[fi]
		local := make(map[uint32]bool)
		for bi := range f.Blocks {
			for ii := range f.Blocks[bi].Body {
				if id, ok := f.Blocks[bi].Body[ii].ResultID(); ok {
					local[id] = true
				}
			}
		}
		for bi := range f.Blocks {
			for ii := range f.Blocks[bi].Body {
				inst := &f.Blocks[bi].Body[ii]
				if inst.Opcode == OpPhi {
					if id, ok := inst.ResultID(); ok {
						delete(local, id)
					}
					continue
				}
				check(inst, func(ref uint32) bool { return local[ref] })
				if id, ok := inst.ResultID(); ok {
					delete(local, id)
				}
			}
		}
	}
}
