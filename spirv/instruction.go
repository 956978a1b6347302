// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"errors"
	"fmt"
)

// Instruction is one SPIR-V instruction. Words holds the operands that follow
// the opcode word: result type, result id and the remaining operands, in
// binary order.
type Instruction struct {
	Opcode OpCode
	Words  []uint32
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) *InstructionBuilder {
	b.words = append(b.words, word)
	return b
}

// AddWords adds several words to the instruction.
func (b *InstructionBuilder) AddWords(words ...uint32) *InstructionBuilder {
	b.words = append(b.words, words...)
	return b
}

// AddString adds a nul-terminated UTF-8 string padded to a word boundary.
func (b *InstructionBuilder) AddString(s string) *InstructionBuilder {
	b.words = append(b.words, EncodeString(s)...)
	return b
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

// Encode encodes the instruction to binary.
func (i Instruction) Encode() []uint32 {
	wordCount := uint32(len(i.Words) + 1) // +1 for opcode word
	result := make([]uint32, 0, wordCount)
	result = append(result, (wordCount<<16)|uint32(i.Opcode))
	result = append(result, i.Words...)
	return result
}

// WordCount returns the encoded length of the instruction.
func (i Instruction) WordCount() int { return len(i.Words) + 1 }

// Clone returns a deep copy of the instruction.
func (i Instruction) Clone() Instruction {
	return Instruction{Opcode: i.Opcode, Words: append([]uint32(nil), i.Words...)}
}

// ResultID returns the id defined by the instruction.
func (i Instruction) ResultID() (uint32, bool) {
	_, idx := HasResult(i.Opcode)
	if idx < 0 || idx >= len(i.Words) {
		return 0, false
	}
	return i.Words[idx], true
}

// ResultType returns the result type id of the instruction.
func (i Instruction) ResultType() (uint32, bool) {
	idx, _ := HasResult(i.Opcode)
	if idx < 0 || idx >= len(i.Words) {
		return 0, false
	}
	return i.Words[idx], true
}

// EncodeString packs s as a nul-terminated little-endian word sequence.
func EncodeString(s string) []uint32 {
	bytes := []byte(s)
	bytes = append(bytes, 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	words := make([]uint32, 0, len(bytes)/4)
	for i := 0; i < len(bytes); i += 4 {
		word := uint32(bytes[i]) |
			uint32(bytes[i+1])<<8 |
			uint32(bytes[i+2])<<16 |
			uint32(bytes[i+3])<<24
		words = append(words, word)
	}
	return words
}

// ErrUnterminatedString is returned when a string operand has no nul byte.
var ErrUnterminatedString = errors.New("unterminated string literal")

// DecodeString reads a nul-terminated string from words and returns it with
// the number of words it occupies.
func DecodeString(words []uint32) (string, int, error) {
	buf := make([]byte, 0, len(words)*4)
	for n, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), n + 1, nil
			}
			buf = append(buf, c)
		}
	}
	return "", 0, ErrUnterminatedString
}

// OperandValue is one decoded operand of an instruction.
type OperandValue struct {
	Kind   OperandKind
	Enum   EnumKind
	Offset int // index of the first word in Instruction.Words
	Words  []uint32
	Text   string // decoded KindString value
}

// Value returns the first word of the operand.
func (v OperandValue) Value() uint32 {
	if len(v.Words) == 0 {
		return 0
	}
	return v.Words[0]
}

// IsID reports whether the operand refers to or defines an id.
func (v OperandValue) IsID() bool {
	return v.Kind == KindID || v.Kind == KindResultType || v.Kind == KindResultID
}

// Operands decodes the operands of the instruction using the grammar. Mask,
// decoration and execution mode tails are flattened: the enum comes first,
// followed by its arguments as KindID or KindLiteral values.
func (i Instruction) Operands() ([]OperandValue, error) {
	layout, ok := grammar[i.Opcode]
	if !ok {
		return nil, fmt.Errorf("unsupported opcode %s", i.Opcode)
	}
	out := make([]OperandValue, 0, len(i.Words))
	pos := 0
	for _, op := range layout {
		for {
			if pos >= len(i.Words) {
				if op.Quant == One {
					return nil, fmt.Errorf("%s: missing operand %d", i.Opcode, len(out))
				}
				break
			}
			vals, n, err := decodeOperand(op, i.Words, pos)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", i.Opcode, err)
			}
			out = append(out, vals...)
			pos += n
			if op.Quant != Variadic {
				break
			}
		}
	}
	if pos != len(i.Words) {
		return nil, fmt.Errorf("%s: %d unexpected trailing words", i.Opcode, len(i.Words)-pos)
	}
	return out, nil
}

func decodeOperand(op Operand, words []uint32, pos int) ([]OperandValue, int, error) {
	one := func(kind OperandKind, ek EnumKind, at int) OperandValue {
		return OperandValue{Kind: kind, Enum: ek, Offset: at, Words: words[at : at+1]}
	}
	switch op.Kind {
	case KindResultType, KindResultID, KindID, KindLiteral, KindExtInst:
		return []OperandValue{one(op.Kind, 0, pos)}, 1, nil
	case KindEnum:
		return []OperandValue{one(KindEnum, op.Enum, pos)}, 1, nil
	case KindContextLiteral:
		return []OperandValue{{Kind: KindContextLiteral, Offset: pos, Words: words[pos:]}}, len(words) - pos, nil
	case KindString:
		s, n, err := DecodeString(words[pos:])
		if err != nil {
			return nil, 0, err
		}
		return []OperandValue{{Kind: KindString, Offset: pos, Words: words[pos : pos+n], Text: s}}, n, nil
	case KindPairLiteralID, KindPairIDID:
		if pos+1 >= len(words) {
			return nil, 0, errors.New("incomplete operand pair")
		}
		first := KindLiteral
		if op.Kind == KindPairIDID {
			first = KindID
		}
		return []OperandValue{one(first, 0, pos), one(KindID, 0, pos+1)}, 2, nil
	case KindOperandTail:
		vals := []OperandValue{one(KindEnum, op.Enum, pos)}
		count, areIDs := TailArgs(op.Enum, words[pos])
		if pos+1+count > len(words) {
			return nil, 0, fmt.Errorf("%s operands need %d arguments", EnumName(op.Enum, words[pos]), count)
		}
		kind := KindLiteral
		if areIDs {
			kind = KindID
		}
		for k := 1; k <= count; k++ {
			vals = append(vals, one(kind, 0, pos+k))
		}
		return vals, 1 + count, nil
	case KindDecorationTail:
		vals := []OperandValue{one(KindEnum, EnumDecoration, pos)}
		rest := len(words) - pos - 1
		if Decoration(words[pos]) == DecorationBuiltIn && rest == 1 {
			return append(vals, one(KindEnum, EnumBuiltIn, pos+1)), 2, nil
		}
		for k := 1; k <= rest; k++ {
			vals = append(vals, one(KindLiteral, 0, pos+k))
		}
		return vals, 1 + rest, nil
	case KindExecutionModeTail:
		vals := []OperandValue{one(KindEnum, EnumExecutionMode, pos)}
		rest := len(words) - pos - 1
		for k := 1; k <= rest; k++ {
			vals = append(vals, one(KindLiteral, 0, pos+k))
		}
		return vals, 1 + rest, nil
	}
	return nil, 0, fmt.Errorf("unknown operand kind %d", op.Kind)
}

// IDOperands returns the positions in Words of every id the instruction
// references, including its result type but not its result id.
func (i Instruction) IDOperands() ([]int, error) {
	ops, err := i.Operands()
	if err != nil {
		return nil, err
	}
	var refs []int
	for _, op := range ops {
		if op.Kind == KindID || op.Kind == KindResultType {
			refs = append(refs, op.Offset)
		}
	}
	return refs, nil
}

// StringAt decodes the string operand starting at Words[index].
func (i Instruction) StringAt(index int) string {
	if index >= len(i.Words) {
		return ""
	}
	s, _, err := DecodeString(i.Words[index:])
	if err != nil {
		return ""
	}
	return s
}
