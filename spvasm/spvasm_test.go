// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/naga"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvtrace/spirv"
)

// fragmentText is a canonical disassembly: it reassembles and disassembles
// to the same text.
const fragmentText = `; SPIR-V
; Version: 1.0
; Generator: 0x00000000
; Bound: 38
; Schema: 0
               OpCapability Shader
          %1 = OpExtInstImport "GLSL.std.450"
               OpMemoryModel Logical GLSL450
               OpEntryPoint Fragment %main "main" %uv %color
               OpExecutionMode %main OriginUpperLeft
               OpName %main "main"
               OpName %uv "uv"
               OpName %color "color"
               OpName %tex "tex"
               OpName %samp "samp"
               OpDecorate %uv Location 0
               OpDecorate %color Location 0
               OpDecorate %tex DescriptorSet 0
               OpDecorate %tex Binding 0
               OpDecorate %samp DescriptorSet 0
               OpDecorate %samp Binding 1
       %void = OpTypeVoid
    %fn_void = OpTypeFunction %void
      %float = OpTypeFloat 32
    %v2float = OpTypeVector %float 2
    %v4float = OpTypeVector %float 4
%_ptr_Input_v2float = OpTypePointer Input %v2float
         %uv = OpVariable %_ptr_Input_v2float Input
%_ptr_Output_v4float = OpTypePointer Output %v4float
      %color = OpVariable %_ptr_Output_v4float Output
%type_2d_image = OpTypeImage %float 2D 0 0 0 1 Unknown
%_ptr_UniformConstant_type_2d_image = OpTypePointer UniformConstant %type_2d_image
        %tex = OpVariable %_ptr_UniformConstant_type_2d_image UniformConstant
%type_sampler = OpTypeSampler
%_ptr_UniformConstant_type_sampler = OpTypePointer UniformConstant %type_sampler
       %samp = OpVariable %_ptr_UniformConstant_type_sampler UniformConstant
%type_sampled_image = OpTypeSampledImage %type_2d_image
  %float_0_5 = OpConstant %float 0.5
    %float_1 = OpConstant %float 1
        %int = OpTypeInt 32 1
     %int_n3 = OpConstant %int -3
       %bool = OpTypeBool
       %true = OpConstantTrue %bool
       %main = OpFunction %void None %fn_void
         %30 = OpLabel
         %31 = OpLoad %v2float %uv
         %32 = OpLoad %type_2d_image %tex
         %33 = OpLoad %type_sampler %samp
         %34 = OpSampledImage %type_sampled_image %32 %33
         %35 = OpImageSampleImplicitLod %v4float %34 %31
         %36 = OpVectorTimesScalar %v4float %35 %float_0_5
         %37 = OpExtInst %v4float %1 FAbs %36
               OpStore %color %37
               OpReturn
               OpFunctionEnd
`

const sampleWGSL = `
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    var c = textureSample(tex, samp, uv);
    if c.a < 0.5 {
        c = vec4<f32>(1.0, 0.0, 0.0, 1.0);
    }
    return c;
}
`

func TestRoundTripFixture(t *testing.T) {
	words, err := Assemble(fragmentText)
	require.NoError(t, err)

	text, err := Disassemble(words)
	require.NoError(t, err)
	assert.Equal(t, fragmentText, text)

	again, err := Assemble(text)
	require.NoError(t, err)
	assert.Equal(t, words, again)
}

func TestRoundTripNaga(t *testing.T) {
	opts := naga.DefaultOptions()
	opts.Debug = true
	data, err := naga.CompileWithOptions(sampleWGSL, opts)
	require.NoError(t, err)
	words, err := spirv.FromBytes(data)
	require.NoError(t, err)

	first, err := Disassemble(words)
	require.NoError(t, err)
	reassembled, err := Assemble(first)
	require.NoError(t, err)
	second, err := Disassemble(reassembled)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "OpImageSampleImplicitLod")
	assert.Contains(t, first, `OpName %uv "uv"`)
}

func TestAssembleBindsNamedIDs(t *testing.T) {
	words, err := Assemble(fragmentText)
	require.NoError(t, err)

	m, err := spirv.Parse(words)
	require.NoError(t, err)
	assert.Equal(t, uint32(38), m.Header.Bound)
	assert.Equal(t, uint32(1), m.ExtInstImports[0].Words[0], "explicit ids keep their number")
	assert.Equal(t, uint32(30), m.Functions[0].Blocks[0].ID())

	names := m.Names()
	assert.Equal(t, "main", names[m.Functions[0].ID()])
	for id := range names {
		assert.NotEqual(t, uint32(1), id)
		assert.Less(t, id, uint32(30), "named ids fill the lowest free numbers")
	}
}

func TestAssembleHeaderDefaults(t *testing.T) {
	words, err := Assemble("OpCapability Shader\nOpMemoryModel Logical GLSL450\n")
	require.NoError(t, err)
	require.Len(t, words, spirv.HeaderWords+2+3)
	assert.Equal(t, uint32(spirv.MagicNumber), words[0])
	assert.Equal(t, spirv.Version1_0.Word(), words[1])
	assert.Equal(t, uint32(1), words[3])
}

func TestStructuralNames(t *testing.T) {
	const text = `OpCapability Shader
OpMemoryModel Logical GLSL450
%f = OpTypeFloat 32
%a = OpConstant %f 1
%b = OpConstant %f 1
%nan = OpConstant %f 0x7fc00000
%u = OpTypeInt 32 0
%big = OpConstant %u 4294967295
%d = OpTypeFloat 64
%pi = OpConstant %d 3.25
%v3 = OpTypeVector %f 3
%m = OpTypeMatrix %v3 4
%arr = OpTypeArray %v3 %big
%rt = OpTypeRuntimeArray %f
`
	words, err := Assemble(text)
	require.NoError(t, err)
	out, err := DisassembleWithOptions(words, Options{Indent: 0, FriendlyNames: true})
	require.NoError(t, err)

	for _, want := range []string{
		"%float = OpTypeFloat 32",
		"%float_1 = OpConstant %float 1",
		"%float_1_0 = OpConstant %float 1",
		"%float_0x7fc00000 = OpConstant %float 0x7fc00000",
		"%uint_4294967295 = OpConstant %uint 4294967295",
		"%double_3_25 = OpConstant %double 3.25",
		"%v3float = OpTypeVector %float 3",
		"%mat4v3float = OpTypeMatrix %v3float 4",
		"%_arr_v3float_uint_4294967295 = OpTypeArray %v3float %uint_4294967295",
		"%_runtimearr_float = OpTypeRuntimeArray %float",
	} {
		assert.Contains(t, out, want+"\n")
	}
}

func TestDisassembleOptions(t *testing.T) {
	words, err := Assemble(fragmentText)
	require.NoError(t, err)

	out, err := DisassembleWithOptions(words, Options{Indent: 15})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "               OpCapability Shader\n"))
	assert.Contains(t, out, "          %1 = OpExtInstImport \"GLSL.std.450\"\n")
	assert.NotContains(t, out, "%main")
	assert.NotContains(t, out, "; SPIR-V")

	again, err := Assemble(out)
	require.NoError(t, err)
	assert.Equal(t, words, again, "numeric ids reassemble to the same binary")
}

func TestDisassembleErrors(t *testing.T) {
	_, err := Disassemble([]uint32{spirv.MagicNumber, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disassemble error")

	var perr *spirv.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
		msg    string
	}{
		{"unknown opcode", "  OpFoo", 1, 3, "unknown opcode OpFoo"},
		{"unexpected result", "%x = OpCapability Shader", 1, 1, "OpCapability does not produce a result"},
		{"missing result", "OpTypeVoid", 1, 1, "OpTypeVoid requires a result id"},
		{"bad enumerant", "OpCapability Shader\nOpMemoryModel Logical Bogus", 2, 23, "invalid enumerant \"Bogus\""},
		{"missing operand", "OpMemoryModel Logical", 1, 22, "missing operand for OpMemoryModel"},
		{"extra operand", "OpCapability Shader Matrix", 1, 21, "unexpected operand \"Matrix\" for OpCapability"},
		{"bad literal", "%i = OpTypeInt 32 x", 1, 19, "expected number, found identifier \"x\""},
		{"unterminated string", "OpExtension \"SPV_foo", 1, 13, "unterminated string"},
		{"bad character", "OpCapability Shader\n  $", 2, 3, "unexpected character '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.input)
			require.Error(t, err)

			var aerr *Error
			require.True(t, errors.As(err, &aerr), "got %T: %v", err, err)
			assert.Equal(t, tt.line, aerr.Line)
			assert.Equal(t, tt.column, aerr.Column)
			assert.Equal(t, tt.msg, aerr.Message)
		})
	}
}

func TestAssembleValidates(t *testing.T) {
	_, err := Assemble("OpCapability Shader\nOpMemoryModel Logical GLSL450\n%p = OpTypePointer Input %missing\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assemble error")
	assert.Contains(t, err.Error(), "reference to undefined id")

	var verr *spirv.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestFormatWithContext(t *testing.T) {
	_, err := Assemble("  OpFoo")
	var aerr *Error
	require.True(t, errors.As(err, &aerr))

	want := "error: unknown opcode OpFoo\n" +
		"  --> line 1:3\n" +
		"   |\n" +
		"  1|   OpFoo\n" +
		"   |   ^\n"
	assert.Equal(t, want, aerr.FormatWithContext())
	assert.Equal(t, "1:3: unknown opcode OpFoo", aerr.Error())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"color", "color"},
		{"my var", "my_var"},
		{"1st", "_1st"},
		{"", "_"},
		{"a.b", "a_b"},
		{"e\u0301", "_"},
		{"\u00e9", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestQuotedStrings(t *testing.T) {
	const text = `OpCapability Shader
OpMemoryModel Logical GLSL450
OpName %f "a \"quoted\" \\name"
%f = OpTypeFloat 32
`
	words, err := Assemble(text)
	require.NoError(t, err)
	m, err := spirv.Parse(words)
	require.NoError(t, err)
	assert.Equal(t, `a "quoted" \name`, m.DebugNames[0].StringAt(1))

	out, err := Disassemble(words)
	require.NoError(t, err)
	assert.Contains(t, out, `OpName %a__quoted___name "a \"quoted\" \\name"`)
}

func TestDiff(t *testing.T) {
	after := strings.Replace(fragmentText,
		"               OpStore %color %37\n",
		"               OpStore %color %37\n               OpStore %color %36\n", 1)

	lines := Diff(fragmentText, after)
	inserted, deleted := DiffStats(lines)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, deleted)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "fragment_diff", []byte(FormatDiff(lines)))
}

func TestDiffIdentical(t *testing.T) {
	lines := Diff(fragmentText, fragmentText)
	inserted, deleted := DiffStats(lines)
	assert.Zero(t, inserted)
	assert.Zero(t, deleted)
	assert.Len(t, lines, strings.Count(fragmentText, "\n"))
}

func BenchmarkDisassemble(b *testing.B) {
	words, err := Assemble(fragmentText)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Disassemble(words); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(fragmentText); err != nil {
			b.Fatal(err)
		}
	}
}
