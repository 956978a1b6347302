// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "fmt"

// Header is the five-word SPIR-V module header.
type Header struct {
	Magic     uint32
	Version   Version
	Generator uint32
	Bound     uint32 // max ID + 1
	Schema    uint32
}

// Section identifies a logical layout section of a module.
type Section int

// Logical sections, in the order they must appear.
const (
	SectionCapability Section = iota
	SectionExtension
	SectionExtInstImport
	SectionMemoryModel
	SectionEntryPoint
	SectionExecutionMode
	SectionDebugSource
	SectionDebugName
	SectionDebugModuleProcessed
	SectionAnnotation
	SectionGlobal
	SectionFunction
)

var sectionNames = [...]string{
	"capability", "extension", "ext-inst-import", "memory-model", "entry-point",
	"execution-mode", "debug-source", "debug-name", "module-processed",
	"annotation", "global", "function",
}

func (s Section) String() string {
	if int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return fmt.Sprintf("section(%d)", int(s))
}

// SectionOf returns the section an instruction with opcode op belongs to.
// OpLine, OpNoLine and OpUndef are reported as SectionGlobal; they are also
// accepted inside functions.
func SectionOf(op OpCode) Section {
	switch op {
	case OpCapability:
		return SectionCapability
	case OpExtension:
		return SectionExtension
	case OpExtInstImport:
		return SectionExtInstImport
	case OpMemoryModel:
		return SectionMemoryModel
	case OpEntryPoint:
		return SectionEntryPoint
	case OpExecutionMode:
		return SectionExecutionMode
	case OpString, OpSource, OpSourceExtension, OpSourceContinued:
		return SectionDebugSource
	case OpName, OpMemberName:
		return SectionDebugName
	case OpModuleProcessed:
		return SectionDebugModuleProcessed
	case OpDecorate, OpMemberDecorate, OpDecorationGroup, OpGroupDecorate, OpGroupMemberDecorate:
		return SectionAnnotation
	case OpVariable, OpUndef, OpLine, OpNoLine, OpTypeForwardPointer:
		return SectionGlobal
	}
	if op.IsType() || op.IsConstant() {
		return SectionGlobal
	}
	return SectionFunction
}

// Block is a basic block: its OpLabel and the instructions up to and
// including the terminator.
type Block struct {
	Label Instruction
	Body  []Instruction
}

// ID returns the label id of the block.
func (b *Block) ID() uint32 {
	return b.Label.Words[0]
}

// Terminator returns the last instruction of the block.
func (b *Block) Terminator() *Instruction {
	if len(b.Body) == 0 {
		return nil
	}
	return &b.Body[len(b.Body)-1]
}

// Merge returns the merge instruction preceding the terminator, if any.
func (b *Block) Merge() *Instruction {
	if len(b.Body) < 2 {
		return nil
	}
	if m := &b.Body[len(b.Body)-2]; m.Opcode.IsMerge() {
		return m
	}
	return nil
}

// Function is a function definition or declaration.
type Function struct {
	Def    Instruction // OpFunction
	Params []Instruction
	Blocks []Block
	End    Instruction // OpFunctionEnd
}

// ID returns the function result id.
func (f *Function) ID() uint32 {
	return f.Def.Words[1]
}

// ReturnType returns the function return type id.
func (f *Function) ReturnType() uint32 {
	return f.Def.Words[0]
}

// TypeID returns the OpTypeFunction id of the function.
func (f *Function) TypeID() uint32 {
	return f.Def.Words[3]
}

// LocalVariables returns the leading OpVariable instructions of the entry
// block.
func (f *Function) LocalVariables() []Instruction {
	if len(f.Blocks) == 0 {
		return nil
	}
	body := f.Blocks[0].Body
	return body[:f.PrologueLen()]
}

// PrologueLen returns the number of OpVariable instructions at the start of
// the entry block. Instructions inserted at this index run first.
func (f *Function) PrologueLen() int {
	if len(f.Blocks) == 0 {
		return 0
	}
	n := 0
	for _, inst := range f.Blocks[0].Body {
		if inst.Opcode != OpVariable && inst.Opcode != OpLine && inst.Opcode != OpNoLine {
			break
		}
		n++
	}
	return n
}

func (f *Function) clone() Function {
	out := Function{
		Def:    f.Def.Clone(),
		Params: cloneInstructions(f.Params),
		Blocks: make([]Block, len(f.Blocks)),
		End:    f.End.Clone(),
	}
	for i, b := range f.Blocks {
		out.Blocks[i] = Block{Label: b.Label.Clone(), Body: cloneInstructions(b.Body)}
	}
	return out
}

// Module is a parsed SPIR-V module split into its logical sections.
type Module struct {
	Header Header

	Capabilities    []Instruction
	Extensions      []Instruction
	ExtInstImports  []Instruction
	MemoryModel     *Instruction
	EntryPoints     []Instruction
	ExecutionModes  []Instruction
	DebugSource     []Instruction // OpString, OpSource*
	DebugNames      []Instruction // OpName, OpMemberName
	ModuleProcessed []Instruction
	Annotations     []Instruction // OpDecorate, OpMemberDecorate
	Globals         []Instruction // types, constants, global variables
	Functions       []Function
}

// NewModule returns an empty module with the given version.
func NewModule(version Version) *Module {
	return &Module{
		Header: Header{
			Magic:     MagicNumber,
			Version:   version,
			Generator: GeneratorID,
			Bound:     1,
		},
	}
}

// ParseError reports a malformed instruction stream.
type ParseError struct {
	Offset  int // word offset of the offending instruction
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("spirv: word %d: %s", e.Offset, e.Message)
}

// Parse splits a SPIR-V word stream into a Module. The input is copied.
func Parse(words []uint32) (*Module, error) {
	if len(words) < HeaderWords {
		return nil, &ParseError{Offset: 0, Message: fmt.Sprintf("stream too short: %d words", len(words))}
	}
	if words[0] != MagicNumber {
		return nil, &ParseError{Offset: 0, Message: fmt.Sprintf("bad magic number 0x%08x", words[0])}
	}
	m := &Module{
		Header: Header{
			Magic:     words[0],
			Version:   VersionFromWord(words[1]),
			Generator: words[2],
			Bound:     words[3],
			Schema:    words[4],
		},
	}

	p := parser{module: m}
	for offset := HeaderWords; offset < len(words); {
		first := words[offset]
		count := int(first >> 16)
		if count == 0 {
			return nil, &ParseError{Offset: offset, Message: "zero word count"}
		}
		if offset+count > len(words) {
			return nil, &ParseError{Offset: offset, Message: fmt.Sprintf("truncated instruction: needs %d words, %d left", count, len(words)-offset)}
		}
		inst := Instruction{
			Opcode: OpCode(first & 0xFFFF),
			Words:  append([]uint32(nil), words[offset+1:offset+count]...),
		}
		if err := p.add(inst); err != nil {
			return nil, &ParseError{Offset: offset, Message: err.Error()}
		}
		offset += count
	}
	if p.fn != nil {
		return nil, &ParseError{Offset: len(words), Message: "unterminated function"}
	}
	return m, nil
}

type parser struct {
	module  *Module
	section Section
	fn      *Function
	block   *Block
}

func (p *parser) add(inst Instruction) error {
	if p.fn != nil {
		return p.addToFunction(inst)
	}
	sec := SectionOf(inst.Opcode)
	if sec == SectionFunction && inst.Opcode != OpFunction {
		return fmt.Errorf("%s outside a function", inst.Opcode)
	}
	if sec < p.section {
		return fmt.Errorf("%s in %s section after %s section", inst.Opcode, sec, p.section)
	}
	p.section = sec

	m := p.module
	switch sec {
	case SectionCapability:
		m.Capabilities = append(m.Capabilities, inst)
	case SectionExtension:
		m.Extensions = append(m.Extensions, inst)
	case SectionExtInstImport:
		m.ExtInstImports = append(m.ExtInstImports, inst)
	case SectionMemoryModel:
		if m.MemoryModel != nil {
			return fmt.Errorf("duplicate %s", inst.Opcode)
		}
		m.MemoryModel = &inst
	case SectionEntryPoint:
		m.EntryPoints = append(m.EntryPoints, inst)
	case SectionExecutionMode:
		m.ExecutionModes = append(m.ExecutionModes, inst)
	case SectionDebugSource:
		m.DebugSource = append(m.DebugSource, inst)
	case SectionDebugName:
		m.DebugNames = append(m.DebugNames, inst)
	case SectionDebugModuleProcessed:
		m.ModuleProcessed = append(m.ModuleProcessed, inst)
	case SectionAnnotation:
		m.Annotations = append(m.Annotations, inst)
	case SectionGlobal:
		m.Globals = append(m.Globals, inst)
	case SectionFunction:
		if len(inst.Words) < 4 {
			return fmt.Errorf("%s: expected 4 operands, got %d", inst.Opcode, len(inst.Words))
		}
		m.Functions = append(m.Functions, Function{Def: inst})
		p.fn = &m.Functions[len(m.Functions)-1]
	}
	return nil
}

func (p *parser) addToFunction(inst Instruction) error {
	switch {
	case inst.Opcode == OpFunctionEnd:
		if p.block != nil {
			return fmt.Errorf("block %%%d has no terminator", p.block.ID())
		}
		p.fn.End = inst
		p.fn = nil
		return nil
	case inst.Opcode == OpFunctionParameter:
		if len(p.fn.Blocks) > 0 {
			return fmt.Errorf("%s after the first block", inst.Opcode)
		}
		p.fn.Params = append(p.fn.Params, inst)
		return nil
	case inst.Opcode == OpLabel:
		if p.block != nil {
			return fmt.Errorf("block %%%d has no terminator", p.block.ID())
		}
		if len(inst.Words) != 1 {
			return fmt.Errorf("%s: expected 1 operand", inst.Opcode)
		}
		p.fn.Blocks = append(p.fn.Blocks, Block{Label: inst})
		p.block = &p.fn.Blocks[len(p.fn.Blocks)-1]
		return nil
	case inst.Opcode == OpFunction:
		return fmt.Errorf("nested %s", inst.Opcode)
	}
	if p.block == nil {
		if inst.Opcode == OpLine || inst.Opcode == OpNoLine {
			return fmt.Errorf("%s before the first block is not supported", inst.Opcode)
		}
		return fmt.Errorf("%s outside a block", inst.Opcode)
	}
	sec := SectionOf(inst.Opcode)
	if sec != SectionFunction && inst.Opcode != OpVariable && inst.Opcode != OpUndef &&
		inst.Opcode != OpLine && inst.Opcode != OpNoLine {
		return fmt.Errorf("%s inside a function", inst.Opcode)
	}
	p.block.Body = append(p.block.Body, inst)
	if inst.Opcode.IsTerminator() {
		p.block = nil
	}
	return nil
}

// Encode writes the module back to a word stream in section order.
func (m *Module) Encode() []uint32 {
	words := make([]uint32, 0, m.wordCount())
	words = append(words,
		m.Header.Magic,
		m.Header.Version.Word(),
		m.Header.Generator,
		m.Header.Bound,
		m.Header.Schema,
	)
	m.Walk(func(inst *Instruction) {
		words = append(words, (uint32(inst.WordCount())<<16)|uint32(inst.Opcode))
		words = append(words, inst.Words...)
	})
	return words
}

func (m *Module) wordCount() int {
	n := HeaderWords
	m.Walk(func(inst *Instruction) { n += inst.WordCount() })
	return n
}

// Walk calls fn for every instruction in binary order. fn may modify the
// instruction in place.
func (m *Module) Walk(fn func(inst *Instruction)) {
	each := func(list []Instruction) {
		for i := range list {
			fn(&list[i])
		}
	}
	each(m.Capabilities)
	each(m.Extensions)
	each(m.ExtInstImports)
	if m.MemoryModel != nil {
		fn(m.MemoryModel)
	}
	each(m.EntryPoints)
	each(m.ExecutionModes)
	each(m.DebugSource)
	each(m.DebugNames)
	each(m.ModuleProcessed)
	each(m.Annotations)
	each(m.Globals)
	for fi := range m.Functions {
		f := &m.Functions[fi]
		fn(&f.Def)
		each(f.Params)
		for bi := range f.Blocks {
			b := &f.Blocks[bi]
			fn(&b.Label)
			each(b.Body)
		}
		fn(&f.End)
	}
}

// AllocID allocates a new id and grows the bound.
func (m *Module) AllocID() uint32 {
	id := m.Header.Bound
	m.Header.Bound++
	return id
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := &Module{
		Header:          m.Header,
		Capabilities:    cloneInstructions(m.Capabilities),
		Extensions:      cloneInstructions(m.Extensions),
		ExtInstImports:  cloneInstructions(m.ExtInstImports),
		EntryPoints:     cloneInstructions(m.EntryPoints),
		ExecutionModes:  cloneInstructions(m.ExecutionModes),
		DebugSource:     cloneInstructions(m.DebugSource),
		DebugNames:      cloneInstructions(m.DebugNames),
		ModuleProcessed: cloneInstructions(m.ModuleProcessed),
		Annotations:     cloneInstructions(m.Annotations),
		Globals:         cloneInstructions(m.Globals),
	}
	if m.MemoryModel != nil {
		mm := m.MemoryModel.Clone()
		out.MemoryModel = &mm
	}
	if m.Functions != nil {
		out.Functions = make([]Function, len(m.Functions))
		for i := range m.Functions {
			out.Functions[i] = m.Functions[i].clone()
		}
	}
	return out
}

func cloneInstructions(list []Instruction) []Instruction {
	if list == nil {
		return nil
	}
	out := make([]Instruction, len(list))
	for i, inst := range list {
		out[i] = inst.Clone()
	}
	return out
}
