// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "fmt"

// Names returns the OpName of every named id.
func (m *Module) Names() map[uint32]string {
	names := make(map[uint32]string)
	for _, inst := range m.DebugNames {
		if inst.Opcode == OpName && len(inst.Words) >= 2 {
			names[inst.Words[0]] = inst.StringAt(1)
		}
	}
	return names
}

// MemberNames returns the OpMemberName entries by struct id and member index.
func (m *Module) MemberNames() map[uint32]map[uint32]string {
	names := make(map[uint32]map[uint32]string)
	for _, inst := range m.DebugNames {
		if inst.Opcode != OpMemberName || len(inst.Words) < 3 {
			continue
		}
		members := names[inst.Words[0]]
		if members == nil {
			members = make(map[uint32]string)
			names[inst.Words[0]] = members
		}
		members[inst.Words[1]] = inst.StringAt(2)
	}
	return names
}

// SetName sets the OpName of id, replacing an existing one or appending a new
// entry after the last OpName.
func (m *Module) SetName(id uint32, name string) {
	named := NewInstructionBuilder().AddWord(id).AddString(name).Build(OpName)
	last := -1
	for i, inst := range m.DebugNames {
		if inst.Opcode != OpName {
			continue
		}
		if inst.Words[0] == id {
			m.DebugNames[i] = named
			return
		}
		last = i
	}
	if last < 0 {
		m.DebugNames = append([]Instruction{named}, m.DebugNames...)
		return
	}
	m.DebugNames = append(m.DebugNames, Instruction{})
	copy(m.DebugNames[last+2:], m.DebugNames[last+1:])
	m.DebugNames[last+1] = named
}

// Decorations returns the OpDecorate instructions that target id.
func (m *Module) Decorations(id uint32) []Instruction {
	var out []Instruction
	for _, inst := range m.Annotations {
		if inst.Opcode == OpDecorate && len(inst.Words) >= 2 && inst.Words[0] == id {
			out = append(out, inst)
		}
	}
	return out
}

// Decoration returns the arguments of decoration d on id.
func (m *Module) Decoration(id uint32, d Decoration) ([]uint32, bool) {
	for _, inst := range m.Annotations {
		if inst.Opcode == OpDecorate && len(inst.Words) >= 2 && inst.Words[0] == id && Decoration(inst.Words[1]) == d {
			return inst.Words[2:], true
		}
	}
	return nil, false
}

// MemberDecoration returns the arguments of decoration d on a struct member.
func (m *Module) MemberDecoration(id, member uint32, d Decoration) ([]uint32, bool) {
	for _, inst := range m.Annotations {
		if inst.Opcode == OpMemberDecorate && len(inst.Words) >= 3 &&
			inst.Words[0] == id && inst.Words[1] == member && Decoration(inst.Words[2]) == d {
			return inst.Words[3:], true
		}
	}
	return nil, false
}

// Definitions maps every result id to the instruction that defines it.
func (m *Module) Definitions() map[uint32]*Instruction {
	defs := make(map[uint32]*Instruction)
	m.Walk(func(inst *Instruction) {
		if id, ok := inst.ResultID(); ok {
			defs[id] = inst
		}
	})
	return defs
}

// Function returns the function with the given id.
func (m *Module) Function(id uint32) *Function {
	for i := range m.Functions {
		if m.Functions[i].ID() == id {
			return &m.Functions[i]
		}
	}
	return nil
}

// EntryPoint is a decoded OpEntryPoint.
type EntryPoint struct {
	Model     ExecutionModel
	Function  uint32
	Name      string
	Interface []uint32
}

// DecodeEntryPoint decodes an OpEntryPoint instruction.
func DecodeEntryPoint(inst Instruction) (EntryPoint, error) {
	if inst.Opcode != OpEntryPoint || len(inst.Words) < 3 {
		return EntryPoint{}, fmt.Errorf("not an entry point: %s", inst.Opcode)
	}
	name, n, err := DecodeString(inst.Words[2:])
	if err != nil {
		return EntryPoint{}, fmt.Errorf("entry point name: %w", err)
	}
	return EntryPoint{
		Model:     ExecutionModel(inst.Words[0]),
		Function:  inst.Words[1],
		Name:      name,
		Interface: append([]uint32(nil), inst.Words[2+n:]...),
	}, nil
}

// Encode builds the OpEntryPoint instruction for e.
func (e EntryPoint) Encode() Instruction {
	return NewInstructionBuilder().
		AddWord(uint32(e.Model)).
		AddWord(e.Function).
		AddString(e.Name).
		AddWords(e.Interface...).
		Build(OpEntryPoint)
}

// EntryPointList decodes every entry point of the module, in order.
func (m *Module) EntryPointList() ([]EntryPoint, error) {
	out := make([]EntryPoint, 0, len(m.EntryPoints))
	for _, inst := range m.EntryPoints {
		ep, err := DecodeEntryPoint(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}

// ExtInstImport returns the id of the extended instruction set with the
// given name.
func (m *Module) ExtInstImport(name string) (uint32, bool) {
	for _, inst := range m.ExtInstImports {
		if inst.StringAt(1) == name {
			return inst.Words[0], true
		}
	}
	return 0, false
}
