// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ids of the fixture module built by fragmentModule.
const (
	fxGLSL  = 1
	fxVoid  = 2
	fxFnTy  = 3
	fxFloat = 4
	fxVec4  = 5
	fxPtr   = 6
	fxOut   = 7
	fxOne   = 8
	fxColor = 9
	fxMain  = 10
	fxLabel = 11
	fxBound = 12
)

// fragmentModule returns a minimal fragment shader writing a constant color.
func fragmentModule() []uint32 {
	var insts []Instruction
	add := func(op OpCode, build func(b *InstructionBuilder)) {
		b := NewInstructionBuilder()
		build(b)
		insts = append(insts, b.Build(op))
	}
	add(OpCapability, func(b *InstructionBuilder) { b.AddWord(uint32(CapabilityShader)) })
	add(OpExtInstImport, func(b *InstructionBuilder) { b.AddWord(fxGLSL).AddString(GLSLStd450) })
	add(OpMemoryModel, func(b *InstructionBuilder) { b.AddWords(0, 1) })
	add(OpEntryPoint, func(b *InstructionBuilder) {
		b.AddWord(uint32(ExecutionModelFragment)).AddWord(fxMain).AddString("main").AddWord(fxOut)
	})
	add(OpExecutionMode, func(b *InstructionBuilder) { b.AddWord(fxMain).AddWord(uint32(ExecutionModeOriginUpperLeft)) })
	add(OpName, func(b *InstructionBuilder) { b.AddWord(fxOut).AddString("color") })
	add(OpDecorate, func(b *InstructionBuilder) { b.AddWords(fxOut, uint32(DecorationLocation), 0) })
	add(OpTypeVoid, func(b *InstructionBuilder) { b.AddWord(fxVoid) })
	add(OpTypeFunction, func(b *InstructionBuilder) { b.AddWords(fxFnTy, fxVoid) })
	add(OpTypeFloat, func(b *InstructionBuilder) { b.AddWords(fxFloat, 32) })
	add(OpTypeVector, func(b *InstructionBuilder) { b.AddWords(fxVec4, fxFloat, 4) })
	add(OpTypePointer, func(b *InstructionBuilder) { b.AddWords(fxPtr, uint32(StorageClassOutput), fxVec4) })
	add(OpVariable, func(b *InstructionBuilder) { b.AddWords(fxPtr, fxOut, uint32(StorageClassOutput)) })
	add(OpConstant, func(b *InstructionBuilder) { b.AddWords(fxFloat, fxOne, math.Float32bits(1)) })
	add(OpConstantComposite, func(b *InstructionBuilder) { b.AddWords(fxVec4, fxColor, fxOne, fxOne, fxOne, fxOne) })
	add(OpFunction, func(b *InstructionBuilder) { b.AddWords(fxVoid, fxMain, 0, fxFnTy) })
	add(OpLabel, func(b *InstructionBuilder) { b.AddWord(fxLabel) })
	add(OpStore, func(b *InstructionBuilder) { b.AddWords(fxOut, fxColor) })
	add(OpReturn, func(b *InstructionBuilder) {})
	add(OpFunctionEnd, func(b *InstructionBuilder) {})

	words := []uint32{MagicNumber, Version1_0.Word(), GeneratorID, fxBound, 0}
	for _, inst := range insts {
		words = append(words, inst.Encode()...)
	}
	return words
}

func TestParse_Sections(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	assert.Equal(t, Version1_0, m.Header.Version)
	assert.Equal(t, uint32(fxBound), m.Header.Bound)
	assert.Len(t, m.Capabilities, 1)
	assert.Len(t, m.ExtInstImports, 1)
	require.NotNil(t, m.MemoryModel)
	assert.Len(t, m.EntryPoints, 1)
	assert.Len(t, m.ExecutionModes, 1)
	assert.Len(t, m.DebugNames, 1)
	assert.Len(t, m.Annotations, 1)
	assert.Len(t, m.Globals, 8)
	require.Len(t, m.Functions, 1)

	fn := m.Functions[0]
	assert.Equal(t, uint32(fxMain), fn.ID())
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, uint32(fxLabel), fn.Blocks[0].ID())
	assert.Equal(t, OpReturn, fn.Blocks[0].Terminator().Opcode)
	assert.Nil(t, fn.Blocks[0].Merge())
	assert.Equal(t, 0, fn.PrologueLen())
}

func TestParse_EncodeIsLossless(t *testing.T) {
	words := fragmentModule()
	m, err := Parse(words)
	require.NoError(t, err)
	assert.Equal(t, words, m.Encode())
}

func TestParse_CopiesInput(t *testing.T) {
	words := fragmentModule()
	m, err := Parse(words)
	require.NoError(t, err)

	m.Globals[0].Words[0] = 99
	again, err := Parse(words)
	require.NoError(t, err)
	assert.Equal(t, uint32(fxVoid), again.Globals[0].Words[0])
}

func TestParse_Rejects(t *testing.T) {
	valid := fragmentModule()

	tests := []struct {
		name  string
		words func() []uint32
		want  string
	}{
		{
			name:  "short stream",
			words: func() []uint32 { return valid[:3] },
			want:  "stream too short",
		},
		{
			name: "bad magic",
			words: func() []uint32 {
				w := append([]uint32(nil), valid...)
				w[0] = 0xDEADBEEF
				return w
			},
			want: "bad magic number",
		},
		{
			name:  "truncated instruction",
			words: func() []uint32 { return valid[:len(valid)-3] },
			want:  "truncated instruction",
		},
		{
			name: "zero word count",
			words: func() []uint32 {
				return append(append([]uint32(nil), valid[:HeaderWords]...), uint32(OpNop))
			},
			want: "zero word count",
		},
		{
			name: "out of order sections",
			words: func() []uint32 {
				w := append([]uint32(nil), valid[:HeaderWords]...)
				w = append(w, NewInstructionBuilder().AddWords(0, 1).Build(OpMemoryModel).Encode()...)
				w = append(w, NewInstructionBuilder().AddWord(uint32(CapabilityShader)).Build(OpCapability).Encode()...)
				return w
			},
			want: "after memory-model section",
		},
		{
			name: "unterminated function",
			words: func() []uint32 {
				w := append([]uint32(nil), valid[:HeaderWords]...)
				w = append(w, NewInstructionBuilder().AddWords(fxVoid, fxMain, 0, fxFnTy).Build(OpFunction).Encode()...)
				return w
			},
			want: "unterminated function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.words())
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Contains(t, perr.Message, tt.want)
		})
	}
}

func TestModule_AllocID(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	assert.Equal(t, uint32(fxBound), m.AllocID())
	assert.Equal(t, uint32(fxBound+1), m.AllocID())
	assert.Equal(t, uint32(fxBound+2), m.Header.Bound)
}

func TestModule_CloneIsDeep(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	c := m.Clone()
	c.Functions[0].Blocks[0].Body[0].Words[1] = fxOne
	c.MemoryModel.Words[0] = 7
	assert.Equal(t, uint32(fxColor), m.Functions[0].Blocks[0].Body[0].Words[1])
	assert.Equal(t, uint32(0), m.MemoryModel.Words[0])
}

func TestModule_Index(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	assert.Equal(t, map[uint32]string{fxOut: "color"}, m.Names())

	loc, ok := m.Decoration(fxOut, DecorationLocation)
	require.True(t, ok)
	assert.Equal(t, []uint32{0}, loc)
	assert.Len(t, m.Decorations(fxOut), 1)

	defs := m.Definitions()
	assert.Equal(t, OpVariable, defs[fxOut].Opcode)
	assert.Equal(t, OpLabel, defs[fxLabel].Opcode)
	assert.Equal(t, OpFunction, defs[fxMain].Opcode)

	eps, err := m.EntryPointList()
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, EntryPoint{Model: ExecutionModelFragment, Function: fxMain, Name: "main", Interface: []uint32{fxOut}}, eps[0])
	assert.Equal(t, m.EntryPoints[0], eps[0].Encode())

	id, ok := m.ExtInstImport(GLSLStd450)
	assert.True(t, ok)
	assert.Equal(t, uint32(fxGLSL), id)
}

func TestModule_SetName(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	m.SetName(fxOut, "renamed")
	m.SetName(fxMain, "main")
	assert.Equal(t, map[uint32]string{fxOut: "renamed", fxMain: "main"}, m.Names())
	assert.Len(t, m.DebugNames, 2)
}

func TestModule_Validate(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	t.Run("undefined reference", func(t *testing.T) {
		bad := m.Clone()
		bad.Functions[0].Blocks[0].Body[0].Words[1] = 50
		bad.Header.Bound = 60
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reference to undefined id")
	})

	t.Run("id above bound", func(t *testing.T) {
		bad := m.Clone()
		bad.Header.Bound = fxMain
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds bound")
	})

	t.Run("duplicate definition", func(t *testing.T) {
		bad := m.Clone()
		bad.Globals[1].Words[0] = fxVoid
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defined more than once")
	})

	t.Run("self reference", func(t *testing.T) {
		bad := m.Clone()
		bad.Globals[3].Words[1] = fxVec4
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "references its own result")
	})

	t.Run("type used before its definition", func(t *testing.T) {
		bad := m.Clone()
		bad.Globals[3], bad.Globals[4] = bad.Globals[4], bad.Globals[3]
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id used before its definition")
	})

	t.Run("value used before its definition", func(t *testing.T) {
		bad := m.Clone()
		const loaded = fxBound
		bad.Header.Bound = fxBound + 1
		body := bad.Functions[0].Blocks[0].Body
		load := NewInstructionBuilder().AddWords(fxVec4, loaded, fxOut).Build(OpLoad)
		store := NewInstructionBuilder().AddWords(fxOut, loaded).Build(OpStore)
		bad.Functions[0].Blocks[0].Body = append([]Instruction{store, load}, body...)
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id used before its definition")

		bad.Functions[0].Blocks[0].Body = append([]Instruction{load, store}, body...)
		require.NoError(t, bad.Validate())
	})

	t.Run("forward pointer", func(t *testing.T) {
		const nodeID = fxBound
		ok := m.Clone()
		ok.Header.Bound = fxBound + 1
		forward := NewInstructionBuilder().AddWords(fxPtr, uint32(StorageClassOutput)).Build(OpTypeForwardPointer)
		node := NewInstructionBuilder().AddWords(nodeID, fxPtr).Build(OpTypeStruct)
		globals := append([]Instruction{}, ok.Globals[:4]...)
		globals = append(globals, forward, node)
		ok.Globals = append(globals, ok.Globals[4:]...)
		require.NoError(t, ok.Validate())

		bad := ok.Clone()
		bad.Globals = append(bad.Globals[:4:4], bad.Globals[5:]...)
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id used before its definition")
	})
}

func TestInstruction_Operands(t *testing.T) {
	m, err := Parse(fragmentModule())
	require.NoError(t, err)

	ops, err := m.EntryPoints[0].Operands()
	require.NoError(t, err)
	require.Len(t, ops, 4)
	assert.Equal(t, KindEnum, ops[0].Kind)
	assert.Equal(t, EnumExecutionModel, ops[0].Enum)
	assert.Equal(t, KindString, ops[2].Kind)
	assert.Equal(t, "main", ops[2].Text)
	assert.Equal(t, KindID, ops[3].Kind)

	ops, err = m.Annotations[0].Operands()
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, EnumDecoration, ops[1].Enum)
	assert.Equal(t, KindLiteral, ops[2].Kind)

	refs, err := m.Globals[7].IDOperands()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3, 4, 5}, refs)

	id, ok := m.Globals[5].ResultID()
	assert.True(t, ok)
	assert.Equal(t, uint32(fxOut), id)
	ty, ok := m.Globals[5].ResultType()
	assert.True(t, ok)
	assert.Equal(t, uint32(fxPtr), ty)

	_, ok = m.Functions[0].Blocks[0].Body[0].ResultID()
	assert.False(t, ok)
}

func TestInstruction_OperandTails(t *testing.T) {
	sample := NewInstructionBuilder().
		AddWords(1, 2, 3, 4, ImageOperandsLod|ImageOperandsConstOffset, 5, 6).
		Build(OpImageSampleExplicitLod)
	ops, err := sample.Operands()
	require.NoError(t, err)
	require.Len(t, ops, 7)
	assert.Equal(t, KindEnum, ops[4].Kind)
	assert.Equal(t, KindID, ops[5].Kind)
	assert.Equal(t, KindID, ops[6].Kind)

	short := NewInstructionBuilder().AddWords(1, 2, 3, 4, ImageOperandsGrad, 5).Build(OpImageSampleExplicitLod)
	_, err = short.Operands()
	assert.Error(t, err)

	builtin := NewInstructionBuilder().AddWords(7, uint32(DecorationBuiltIn), uint32(BuiltInPosition)).Build(OpDecorate)
	ops, err = builtin.Operands()
	require.NoError(t, err)
	assert.Equal(t, EnumBuiltIn, ops[2].Enum)

	sw := NewInstructionBuilder().AddWords(1, 2, 0, 3, 1, 4).Build(OpSwitch)
	ops, err = sw.Operands()
	require.NoError(t, err)
	require.Len(t, ops, 6)
	assert.Equal(t, KindLiteral, ops[2].Kind)
	assert.Equal(t, KindID, ops[3].Kind)
}

func TestStringEncoding(t *testing.T) {
	tests := []struct {
		in    string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"GLSL.std.450", 4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			words := EncodeString(tt.in)
			assert.Len(t, words, tt.words)
			s, n, err := DecodeString(append(words, 0xFFFFFFFF))
			require.NoError(t, err)
			assert.Equal(t, tt.in, s)
			assert.Equal(t, tt.words, n)
		})
	}

	_, _, err := DecodeString([]uint32{0x61616161})
	assert.ErrorIs(t, err, ErrUnterminatedString)
}

func TestFromBytes(t *testing.T) {
	words := fragmentModule()
	data := ToBytes(words)
	assert.Equal(t, uint32(MagicNumber), binary.LittleEndian.Uint32(data))

	got, err := FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, words, got)

	swapped := make([]byte, len(data))
	for i, w := range words {
		binary.BigEndian.PutUint32(swapped[i*4:], w)
	}
	got, err = FromBytes(swapped)
	require.NoError(t, err)
	assert.Equal(t, words, got)

	_, err = FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = FromBytes([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrNotSPIRV)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "OpImageSampleImplicitLod", OpImageSampleImplicitLod.String())
	assert.Equal(t, "Op9999", OpCode(9999).String())
	op, ok := LookupOpCode("OpLoopMerge")
	assert.True(t, ok)
	assert.Equal(t, OpLoopMerge, op)

	assert.Equal(t, "Fragment", ExecutionModelFragment.String())
	assert.Equal(t, "Input", StorageClassInput.String())
	assert.Equal(t, "None", EnumName(EnumFunctionControl, 0))
	assert.Equal(t, "Inline|Const", EnumName(EnumFunctionControl, 0x9))
	assert.Equal(t, "12345", EnumName(EnumStorageClass, 12345))

	v, ok := LookupEnum(EnumImageOperands, "Lod|ConstOffset")
	assert.True(t, ok)
	assert.Equal(t, uint32(0xA), v)

	name, ok := GLSLStd450Name(GLSLstd450FClamp)
	assert.True(t, ok)
	assert.Equal(t, "FClamp", name)
}
