// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// Assemble converts assembly text to a SPIR-V word stream.
//
// Named ids are bound to numbers in order of first appearance, skipping the
// numbers taken by explicit numeric ids. Header comments written by
// Disassemble set the version, generator, bound and schema words. The result
// is checked with spirv.Module.Validate.
func Assemble(text string) ([]uint32, error) {
	lx := NewLexer(text)
	tokens, err := lx.Tokenize()
	if err != nil {
		return nil, err
	}

	a := &assembler{
		source:  text,
		tokens:  tokens,
		ids:     make(map[string]uint32),
		types:   make(map[uint32]intInfo),
		extSets: make(map[uint32]string),
		header: spirv.Header{
			Magic:     spirv.MagicNumber,
			Version:   spirv.Version1_0,
			Generator: spirv.GeneratorID,
		},
	}
	if err := a.readHeader(lx.comments); err != nil {
		return nil, err
	}
	a.bindIDs()

	body := make([]uint32, 0, len(tokens))
	for a.peek().Kind != TokenEOF {
		inst, err := a.instruction()
		if err != nil {
			return nil, err
		}
		body = append(body, inst.Encode()...)
	}

	if a.header.Bound < a.maxID+1 {
		a.header.Bound = a.maxID + 1
	}
	words := make([]uint32, 0, spirv.HeaderWords+len(body))
	words = append(words,
		a.header.Magic,
		a.header.Version.Word(),
		a.header.Generator,
		a.header.Bound,
		a.header.Schema,
	)
	words = append(words, body...)

	m, err := spirv.Parse(words)
	if err != nil {
		return nil, fmt.Errorf("assemble error: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("assemble error: %w", err)
	}
	return words, nil
}

type assembler struct {
	source string
	tokens []Token
	pos    int

	header  spirv.Header
	ids     map[string]uint32
	maxID   uint32
	types   map[uint32]intInfo
	extSets map[uint32]string
}

func (a *assembler) readHeader(comments []comment) error {
	firstLine := a.tokens[0].Line
	for _, c := range comments {
		if a.tokens[0].Kind != TokenEOF && c.Line >= firstLine {
			break
		}
		key, value, ok := strings.Cut(c.Text, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch key {
		case "Version":
			major, minor, ok := strings.Cut(value, ".")
			ma, err1 := strconv.ParseUint(major, 10, 8)
			mi, err2 := strconv.ParseUint(minor, 10, 8)
			if !ok || err1 != nil || err2 != nil {
				return newError(c.Line, 1, a.source, "invalid version %q", value)
			}
			a.header.Version = spirv.Version{Major: uint8(ma), Minor: uint8(mi)}
		case "Generator", "Bound", "Schema":
			v, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return newError(c.Line, 1, a.source, "invalid %s %q", strings.ToLower(key), value)
			}
			switch key {
			case "Generator":
				a.header.Generator = uint32(v)
			case "Bound":
				a.header.Bound = uint32(v)
			case "Schema":
				a.header.Schema = uint32(v)
			}
		}
	}
	return nil
}

// bindIDs assigns numbers to every id token.
func (a *assembler) bindIDs() {
	used := make(map[uint32]bool)
	for _, t := range a.tokens {
		if t.Kind != TokenID {
			continue
		}
		if n, err := strconv.ParseUint(t.Lexeme, 10, 32); err == nil {
			used[uint32(n)] = true
			a.ids[t.Lexeme] = uint32(n)
			a.maxID = max(a.maxID, uint32(n))
		}
	}
	next := uint32(1)
	for _, t := range a.tokens {
		if t.Kind != TokenID {
			continue
		}
		if _, bound := a.ids[t.Lexeme]; bound {
			continue
		}
		for used[next] {
			next++
		}
		used[next] = true
		a.ids[t.Lexeme] = next
		a.maxID = max(a.maxID, next)
	}
}

func (a *assembler) peek() Token { return a.tokens[a.pos] }

func (a *assembler) peekAt(offset int) Token {
	if a.pos+offset >= len(a.tokens) {
		return a.tokens[len(a.tokens)-1]
	}
	return a.tokens[a.pos+offset]
}

func (a *assembler) next() Token {
	t := a.tokens[a.pos]
	if t.Kind != TokenEOF {
		a.pos++
	}
	return t
}

func (a *assembler) errorAt(t Token, format string, args ...any) *Error {
	return newError(t.Line, t.Column, a.source, format, args...)
}

// atInstructionStart reports whether the current token begins a new
// instruction.
func (a *assembler) atInstructionStart() bool {
	t := a.peek()
	switch t.Kind {
	case TokenEOF, TokenOpcode:
		return true
	case TokenID:
		return a.peekAt(1).Kind == TokenEqual
	}
	return false
}

func (a *assembler) instruction() (spirv.Instruction, error) {
	var result *Token
	if t := a.peek(); t.Kind == TokenID && a.peekAt(1).Kind == TokenEqual {
		result = &t
		a.next()
		a.next()
	}
	opTok := a.next()
	if opTok.Kind != TokenOpcode {
		return spirv.Instruction{}, a.errorAt(opTok, "expected opcode, found %s %q", opTok.Kind, opTok.Lexeme)
	}
	layout, ok := spirv.Grammar(opTok.Op)
	if !ok {
		return spirv.Instruction{}, a.errorAt(opTok, "unsupported opcode %s", opTok.Op)
	}
	if _, idIndex := spirv.HasResult(opTok.Op); idIndex < 0 && result != nil {
		return spirv.Instruction{}, a.errorAt(*result, "%s does not produce a result", opTok.Op)
	}

	e := &encoder{a: a, op: opTok, result: result, b: spirv.NewInstructionBuilder()}
	for _, slot := range layout {
		if err := e.slot(slot); err != nil {
			return spirv.Instruction{}, err
		}
	}
	if !a.atInstructionStart() {
		return spirv.Instruction{}, a.errorAt(a.peek(), "unexpected operand %q for %s", a.peek().Lexeme, opTok.Op)
	}

	inst := e.b.Build(opTok.Op)
	id, _ := inst.ResultID()
	switch opTok.Op {
	case spirv.OpTypeInt:
		if len(inst.Words) >= 3 {
			a.types[id] = intInfo{width: inst.Words[1], signed: inst.Words[2] != 0}
		}
	case spirv.OpTypeFloat:
		if len(inst.Words) >= 2 {
			a.types[id] = intInfo{width: inst.Words[1], float: true}
		}
	case spirv.OpExtInstImport:
		a.extSets[id] = inst.StringAt(1)
	}
	return inst, nil
}

// encoder encodes the operands of one instruction.
type encoder struct {
	a      *assembler
	op     Token
	result *Token
	b      *spirv.InstructionBuilder
}

func (e *encoder) add(w ...uint32) {
	e.b.AddWords(w...)
}

func (e *encoder) slot(slot spirv.Operand) error {
	if slot.Kind == spirv.KindResultID {
		if e.result == nil {
			return e.a.errorAt(e.op, "%s requires a result id", e.op.Op)
		}
		e.add(e.a.ids[e.result.Lexeme])
		return nil
	}
	switch slot.Quant {
	case spirv.One:
		if e.a.atInstructionStart() {
			return e.a.errorAt(e.a.peek(), "missing operand for %s", e.op.Op)
		}
		return e.operand(slot)
	case spirv.Optional:
		if e.a.atInstructionStart() {
			return nil
		}
		return e.operand(slot)
	}
	for !e.a.atInstructionStart() {
		if err := e.operand(slot); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) operand(slot spirv.Operand) error {
	switch slot.Kind {
	case spirv.KindResultType, spirv.KindID:
		return e.id()
	case spirv.KindLiteral:
		return e.literal()
	case spirv.KindContextLiteral:
		return e.contextLiteral()
	case spirv.KindString:
		t := e.a.next()
		if t.Kind != TokenString {
			return e.a.errorAt(t, "expected string, found %s", t.Kind)
		}
		e.b.AddString(t.Lexeme)
		return nil
	case spirv.KindEnum:
		return e.enum(slot.Enum)
	case spirv.KindExtInst:
		return e.extInst()
	case spirv.KindPairLiteralID:
		if err := e.literal(); err != nil {
			return err
		}
		return e.id()
	case spirv.KindPairIDID:
		if err := e.id(); err != nil {
			return err
		}
		return e.id()
	case spirv.KindOperandTail:
		return e.operandTail(slot.Enum)
	case spirv.KindDecorationTail:
		t := e.a.peek()
		if err := e.enum(spirv.EnumDecoration); err != nil {
			return err
		}
		if d, _ := spirv.LookupEnum(spirv.EnumDecoration, t.Lexeme); spirv.Decoration(d) == spirv.DecorationBuiltIn {
			return e.enum(spirv.EnumBuiltIn)
		}
		return e.literalsToEnd()
	case spirv.KindExecutionModeTail:
		if err := e.enum(spirv.EnumExecutionMode); err != nil {
			return err
		}
		return e.literalsToEnd()
	}
	return e.a.errorAt(e.op, "unsupported operand kind %d", slot.Kind)
}

func (e *encoder) id() error {
	t := e.a.next()
	if t.Kind != TokenID {
		return e.a.errorAt(t, "expected id, found %s %q", t.Kind, t.Lexeme)
	}
	e.add(e.a.ids[t.Lexeme])
	return nil
}

func (e *encoder) literal() error {
	t := e.a.next()
	if t.Kind != TokenNumber {
		return e.a.errorAt(t, "expected number, found %s %q", t.Kind, t.Lexeme)
	}
	v, err := strconv.ParseInt(t.Lexeme, 0, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
		return e.a.errorAt(t, "invalid 32-bit literal %q", t.Lexeme)
	}
	e.add(uint32(v))
	return nil
}

func (e *encoder) literalsToEnd() error {
	for !e.a.atInstructionStart() {
		if err := e.literal(); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) enum(kind spirv.EnumKind) error {
	t := e.a.next()
	if t.Kind != TokenIdent && t.Kind != TokenNumber {
		return e.a.errorAt(t, "expected enumerant, found %s %q", t.Kind, t.Lexeme)
	}
	v, ok := spirv.LookupEnum(kind, t.Lexeme)
	if !ok {
		return e.a.errorAt(t, "invalid enumerant %q", t.Lexeme)
	}
	e.add(v)
	return nil
}

func (e *encoder) operandTail(kind spirv.EnumKind) error {
	t := e.a.peek()
	if err := e.enum(kind); err != nil {
		return err
	}
	mask, _ := spirv.LookupEnum(kind, t.Lexeme)
	count, areIDs := spirv.TailArgs(kind, mask)
	for i := 0; i < count; i++ {
		var err error
		if areIDs {
			err = e.id()
		} else {
			err = e.literal()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) extInst() error {
	t := e.a.next()
	if t.Kind == TokenNumber {
		v, err := strconv.ParseUint(t.Lexeme, 0, 32)
		if err != nil {
			return e.a.errorAt(t, "invalid instruction number %q", t.Lexeme)
		}
		e.add(uint32(v))
		return nil
	}
	if t.Kind != TokenIdent {
		return e.a.errorAt(t, "expected extended instruction, found %s", t.Kind)
	}
	// The set id is the third operand word.
	set := e.b.Build(e.op.Op).Words[2]
	if e.a.extSets[set] != spirv.GLSLStd450 {
		return e.a.errorAt(t, "unknown extended instruction %q", t.Lexeme)
	}
	v, ok := spirv.LookupGLSLStd450(t.Lexeme)
	if !ok {
		return e.a.errorAt(t, "unknown %s instruction %q", spirv.GLSLStd450, t.Lexeme)
	}
	e.add(v)
	return nil
}

func (e *encoder) contextLiteral() error {
	resultType := e.b.Build(e.op.Op).Words[0]
	info, known := e.a.types[resultType]
	if !known {
		return e.literalsToEnd()
	}
	t := e.a.next()
	if t.Kind != TokenNumber {
		return e.a.errorAt(t, "expected number, found %s %q", t.Kind, t.Lexeme)
	}
	words, err := parseScalar(t.Lexeme, info)
	if err != nil {
		return e.a.errorAt(t, "%v", err)
	}
	e.add(words...)
	return nil
}

// parseScalar is the inverse of formatScalar.
func parseScalar(lit string, info intInfo) ([]uint32, error) {
	wide := info.width > 32
	lower := strings.ToLower(lit)
	rawBits := strings.HasPrefix(lower, "0x") && !strings.Contains(lower, "p")

	if info.float {
		if rawBits || info.width != 32 && !wide {
			v, err := strconv.ParseUint(lit, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid float bits %q", lit)
			}
			if wide {
				return []uint32{uint32(v), uint32(v >> 32)}, nil
			}
			return []uint32{uint32(v)}, nil
		}
		if wide {
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid float literal %q", lit)
			}
			bits := math.Float64bits(f)
			return []uint32{uint32(bits), uint32(bits >> 32)}, nil
		}
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q", lit)
		}
		return []uint32{math.Float32bits(float32(f))}, nil
	}

	var bits uint64
	if strings.HasPrefix(lit, "-") {
		v, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", lit)
		}
		bits = uint64(v)
	} else {
		v, err := strconv.ParseUint(lit, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", lit)
		}
		bits = v
	}
	if wide {
		return []uint32{uint32(bits), uint32(bits >> 32)}, nil
	}
	return []uint32{uint32(bits)}, nil
}
