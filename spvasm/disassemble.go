// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvasm converts SPIR-V binaries to and from the textual assembly
// format printed by spirv-dis.
//
// Disassembly is deterministic and reassembles to an equivalent module:
// Disassemble, Assemble and Disassemble again yields identical text.
package spvasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// Options controls disassembly output.
type Options struct {
	// Indent is the column at which opcodes start. Result ids are
	// right-aligned in front of it.
	Indent int

	// FriendlyNames prints ids by OpName and by type or constant structure
	// instead of by number.
	FriendlyNames bool

	// Header prints the module header as leading comments.
	Header bool
}

// DefaultOptions returns the spirv-dis compatible defaults.
func DefaultOptions() Options {
	return Options{
		Indent:        15,
		FriendlyNames: true,
		Header:        true,
	}
}

// Disassemble converts a SPIR-V word stream to assembly text using
// DefaultOptions.
func Disassemble(words []uint32) (string, error) {
	return DisassembleWithOptions(words, DefaultOptions())
}

// DisassembleWithOptions converts a SPIR-V word stream to assembly text.
func DisassembleWithOptions(words []uint32, opts Options) (string, error) {
	m, err := spirv.Parse(words)
	if err != nil {
		return "", fmt.Errorf("disassemble error: %w", err)
	}

	d := &disassembler{module: m, opts: opts}
	if err := d.decode(); err != nil {
		return "", fmt.Errorf("disassemble error: %w", err)
	}
	d.names = newNameMapper(m, opts.FriendlyNames)

	var sb strings.Builder
	if opts.Header {
		h := m.Header
		fmt.Fprintf(&sb, "; SPIR-V\n")
		fmt.Fprintf(&sb, "; Version: %s\n", h.Version)
		fmt.Fprintf(&sb, "; Generator: 0x%08X\n", h.Generator)
		fmt.Fprintf(&sb, "; Bound: %d\n", h.Bound)
		fmt.Fprintf(&sb, "; Schema: %d\n", h.Schema)
	}
	for i := range d.insts {
		d.writeInstruction(&sb, d.insts[i], d.operands[i])
	}
	return sb.String(), nil
}

type disassembler struct {
	module   *spirv.Module
	opts     Options
	names    *nameMapper
	insts    []*spirv.Instruction
	operands [][]spirv.OperandValue

	types   map[uint32]intInfo // scalar type info by type id
	typeOf  map[uint32]uint32  // result type by result id
	extSets map[uint32]string  // OpExtInstImport names
}

func (d *disassembler) decode() error {
	d.types = make(map[uint32]intInfo)
	d.typeOf = make(map[uint32]uint32)
	d.extSets = make(map[uint32]string)

	var firstErr error
	d.module.Walk(func(inst *spirv.Instruction) {
		if firstErr != nil {
			return
		}
		ops, err := inst.Operands()
		if err != nil {
			firstErr = err
			return
		}
		d.insts = append(d.insts, inst)
		d.operands = append(d.operands, ops)

		id, hasID := inst.ResultID()
		if ty, ok := inst.ResultType(); ok && hasID {
			d.typeOf[id] = ty
		}
		switch inst.Opcode {
		case spirv.OpTypeInt:
			d.types[id] = intInfo{width: inst.Words[1], signed: inst.Words[2] != 0}
		case spirv.OpTypeFloat:
			d.types[id] = intInfo{width: inst.Words[1], float: true}
		case spirv.OpExtInstImport:
			d.extSets[id] = inst.StringAt(1)
		}
	})
	return firstErr
}

func (d *disassembler) writeInstruction(sb *strings.Builder, inst *spirv.Instruction, ops []spirv.OperandValue) {
	var parts []string
	lhs := ""
	for _, op := range ops {
		if op.Kind == spirv.KindResultID {
			lhs = "%" + d.names.ref(op.Value()) + " = "
			continue
		}
		parts = append(parts, d.operand(inst, op))
	}

	pad := d.opts.Indent - len(lhs)
	if pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString(lhs)
	sb.WriteString(inst.Opcode.String())
	for _, p := range parts {
		sb.WriteByte(' ')
		sb.WriteString(p)
	}
	sb.WriteByte('\n')
}

func (d *disassembler) operand(inst *spirv.Instruction, op spirv.OperandValue) string {
	switch op.Kind {
	case spirv.KindResultType, spirv.KindID:
		return "%" + d.names.ref(op.Value())
	case spirv.KindString:
		return quote(op.Text)
	case spirv.KindEnum:
		return spirv.EnumName(op.Enum, op.Value())
	case spirv.KindExtInst:
		if d.extSets[inst.Words[2]] == spirv.GLSLStd450 {
			if name, ok := spirv.GLSLStd450Name(op.Value()); ok {
				return name
			}
		}
		return strconv.FormatUint(uint64(op.Value()), 10)
	case spirv.KindContextLiteral:
		if info, ok := d.types[inst.Words[0]]; ok {
			return formatScalar(op.Words, info)
		}
		return joinWords(op.Words)
	case spirv.KindLiteral:
		if inst.Opcode == spirv.OpSwitch && op.Offset >= 2 {
			if info, ok := d.types[d.typeOf[inst.Words[0]]]; ok && info.signed {
				return formatScalar(op.Words, info)
			}
		}
		return strconv.FormatUint(uint64(op.Value()), 10)
	}
	return joinWords(op.Words)
}

func joinWords(words []uint32) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strconv.FormatUint(uint64(w), 10)
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
