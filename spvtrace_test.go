// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvtrace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gogpu/spvtrace/decompile"
	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/spirv"
	"github.com/gogpu/spvtrace/spvasm"
)

const passThroughText = `
               OpCapability Shader
               OpMemoryModel Logical GLSL450
               OpEntryPoint Fragment %main "main" %uv %color
               OpExecutionMode %main OriginUpperLeft
               OpName %main "main"
               OpName %uv "uv"
               OpName %color "color"
               OpDecorate %uv Location 0
               OpDecorate %color Location 0
       %void = OpTypeVoid
    %fn_void = OpTypeFunction %void
      %float = OpTypeFloat 32
    %v4float = OpTypeVector %float 4
  %ptr_in_v4 = OpTypePointer Input %v4float
         %uv = OpVariable %ptr_in_v4 Input
 %ptr_out_v4 = OpTypePointer Output %v4float
      %color = OpVariable %ptr_out_v4 Output
       %main = OpFunction %void None %fn_void
      %entry = OpLabel
          %v = OpLoad %v4float %uv
               OpStore %color %v
               OpReturn
               OpFunctionEnd
`

const textureSource = `
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const vertexSource = `
struct Camera {
    view_proj: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) color: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = camera.view_proj * vec4<f32>(position, 1.0);
    out.color = color;
    return out;
}
`

const vertexStructSource = `
struct VOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) @interpolate(flat) id: u32,
}

@vertex
fn main(@builtin(vertex_index) vi: u32) -> VOut {
    var o: VOut;
    o.pos = vec4<f32>(0.0, 0.0, 0.0, 1.0);
    o.id = vi;
    return o;
}
`

const branchSource = `
@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    var c = vec4<f32>(uv, 0.0, 1.0);
    if uv.x > 0.5 {
        c = vec4<f32>(1.0, 0.0, 0.0, 1.0);
    }
    return c;
}
`

type compileCall struct {
	source  string
	stage   frontend.Stage
	profile frontend.Profile
}

// fakeCompiler returns words for every compile and fails the calls listed
// in fail, counted from zero.
type fakeCompiler struct {
	words []uint32
	fail  map[int]error

	mu    sync.Mutex
	calls []compileCall
}

func (c *fakeCompiler) Compile(source string, stage frontend.Stage, profile frontend.Profile) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.calls)
	c.calls = append(c.calls, compileCall{source, stage, profile})
	if err := c.fail[n]; err != nil {
		return nil, err
	}
	return append([]uint32(nil), c.words...), nil
}

func (c *fakeCompiler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func assemble(t *testing.T, text string) []uint32 {
	t.Helper()
	words, err := spvasm.Assemble(text)
	require.NoError(t, err)
	return words
}

func fakePipeline(t *testing.T) (*Pipeline, *fakeCompiler) {
	t.Helper()
	c := &fakeCompiler{words: assemble(t, passThroughText)}
	return &Pipeline{
		Compiler: c,
		Decompile: func(words []uint32, target decompile.Target) (string, error) {
			return "regenerated", nil
		},
	}, c
}

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name string
		opts CompileOptions
		want Stage
		ok   bool
	}{
		{"none", CompileOptions{}, StageNone, false},
		{"stage vertex", CompileOptions{Stage: StageVertex}, StageVertex, true},
		{"flag fragment", CompileOptions{IsFragmentShader: true}, StageFragment, true},
		{"flag agrees", CompileOptions{Stage: StageVertex, IsVertexShader: true}, StageVertex, true},
		{"flags conflict", CompileOptions{IsVertexShader: true, IsFragmentShader: true}, StageNone, false},
		{"stage conflicts", CompileOptions{Stage: StageVertex, IsFragmentShader: true}, StageNone, false},
		{"out of range", CompileOptions{Stage: Stage(9)}, StageNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.opts.ResolveStage()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	stage, ok := opts.ResolveStage()
	require.True(t, ok)
	assert.Equal(t, StageFragment, stage)
	assert.Equal(t, "dbg_", opts.NamesPrefix)
	assert.Equal(t, "dbg_out_", opts.OutputPrefix)
	assert.Empty(t, opts.steps())
}

func TestConvertRejectsStage(t *testing.T) {
	for _, opts := range []CompileOptions{
		{},
		{IsVertexShader: true, IsFragmentShader: true},
		{Stage: StageFragment, IsVertexShader: true, MakeDebuggable: true},
	} {
		p, c := fakePipeline(t)
		res := p.Convert(context.Background(), "source", opts)
		assert.False(t, res.OK)
		assert.Equal(t, FailureConfig, res.Stage)
		assert.Equal(t, "error: Only Fragment and Vertex shaders supported.", res.Diagnostic)
		assert.Contains(t, res.Diagnostic, "Only Fragment and Vertex shaders supported.")
		assert.Zero(t, c.count())
	}
}

func TestConvertOriginalFailure(t *testing.T) {
	p, c := fakePipeline(t)
	c.fail = map[int]error{0: &frontend.Diagnostic{Message: "Compile failed\nInfoLog: boom"}}

	res := p.Convert(context.Background(), "source", DefaultOptions())
	assert.False(t, res.OK)
	assert.Equal(t, FailureOriginal, res.Stage)
	assert.Equal(t, "With original source code\nCompile failed\nInfoLog: boom", res.Diagnostic)
	assert.Equal(t, 1, c.count())

	c.fail = map[int]error{1: errors.New("plain")}
	res = p.Convert(context.Background(), "source", DefaultOptions())
	assert.Equal(t, "With original source code\nplain", res.Diagnostic)
}

func TestConvertTransformFailure(t *testing.T) {
	p, c := fakePipeline(t)
	c.words = []uint32{spirv.MagicNumber, 1}

	opts := DefaultOptions()
	opts.PrefixDeclarationNames = true
	opts.MakeDebuggable = true
	res := p.Convert(context.Background(), "source", opts)
	assert.False(t, res.OK)
	assert.Equal(t, FailureTransform, res.Stage)
	assert.Equal(t, "error: transformer produced no code.", res.Diagnostic)
}

func TestConvertDecompileFailure(t *testing.T) {
	p, _ := fakePipeline(t)
	p.Decompile = func([]uint32, decompile.Target) (string, error) {
		return "", &decompile.Error{Op: spirv.OpPhi, ID: 7, Message: "phi instructions are not supported"}
	}

	res := p.Convert(context.Background(), "source", DefaultOptions())
	assert.False(t, res.OK)
	assert.Equal(t, FailureAfterChanges, res.Stage)
	assert.Equal(t, "After changes\ndecompile: OpPhi %7: phi instructions are not supported", res.Diagnostic)
}

func TestConvertVerifyFailure(t *testing.T) {
	p, c := fakePipeline(t)
	c.fail = map[int]error{1: &frontend.Diagnostic{Message: "Compile failed\nInfoLog: bad"}}

	opts := DefaultOptions()
	opts.VerifyAfterTransform = true
	res := p.Convert(context.Background(), "source", opts)
	assert.False(t, res.OK)
	assert.Equal(t, FailureAfterChanges, res.Stage)
	assert.Equal(t, "After changes\nCompile failed\nInfoLog: bad", res.Diagnostic)

	require.Len(t, c.calls, 2)
	assert.Equal(t, compileCall{"source", StageFragment, frontend.ProfileRestricted}, c.calls[0])
	assert.Equal(t, compileCall{"regenerated", StageFragment, frontend.ProfileBroad}, c.calls[1])
}

func TestConvertPassesTransformedStream(t *testing.T) {
	p, _ := fakePipeline(t)
	var got []uint32
	p.Decompile = func(words []uint32, target decompile.Target) (string, error) {
		assert.Equal(t, decompile.TargetDesktop, target)
		got = words
		return "regenerated", nil
	}

	opts := DefaultOptions()
	opts.PrefixDeclarationNames = true
	opts.NamesPrefix = "pre_"
	opts.MakeDebuggable = true
	res := p.Convert(context.Background(), "source", opts)
	require.True(t, res.OK, res.Diagnostic)
	assert.Equal(t, "regenerated", res.Source)
	assert.Equal(t, FailureNone, res.Stage)
	assert.NotEmpty(t, res.Ledger)
	assert.Empty(t, res.Disassembly)

	m, err := spirv.Parse(got)
	require.NoError(t, err)
	names := m.Names()
	var prefixed []string
	for _, name := range names {
		if strings.HasPrefix(name, "pre_") {
			prefixed = append(prefixed, name)
		}
	}
	assert.ElementsMatch(t, []string{"pre_uv", "pre_color", "pre_main"}, prefixed)
}

func TestConvertDisassembly(t *testing.T) {
	p, _ := fakePipeline(t)
	opts := DefaultOptions()
	opts.ProduceDisassembly = true

	res := p.Convert(context.Background(), "source", opts)
	require.True(t, res.OK)
	assert.Contains(t, res.Disassembly, "OpEntryPoint Fragment")

	p.Disassemble = func([]uint32) (string, error) { return "", errors.New("broken") }
	res = p.Convert(context.Background(), "source", opts)
	require.True(t, res.OK, "disassembly failures are ignored")
	assert.Empty(t, res.Disassembly)
}

func TestConvertCanceled(t *testing.T) {
	p, c := fakePipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Convert(ctx, "source", DefaultOptions())
	assert.False(t, res.OK)
	assert.Equal(t, FailureOriginal, res.Stage)
	assert.Equal(t, "error: context canceled", res.Diagnostic)
	assert.Zero(t, c.count())
}

func TestConvertLogsRunID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p, _ := fakePipeline(t)
	p.Logger = zap.New(core)

	p.Convert(context.Background(), "source", DefaultOptions())
	p.Convert(context.Background(), "source", DefaultOptions())

	ids := make(map[string]bool)
	for _, entry := range logs.All() {
		id, ok := entry.ContextMap()["run_id"].(string)
		require.True(t, ok, entry.Message)
		ids[id] = true
	}
	assert.Len(t, ids, 2)
	assert.NotZero(t, logs.FilterMessage("decompiled").Len())
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{OK: true}.Err())

	err := failure(FailureTransform, "error: transformer produced no code.").Err()
	var ce *ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, FailureTransform, ce.Stage)
	assert.Equal(t, "convert failed (transform): error: transformer produced no code.", err.Error())
}

func TestFailureStageString(t *testing.T) {
	assert.Equal(t, "after-changes", FailureAfterChanges.String())
	assert.Equal(t, "FailureStage(42)", FailureStage(42).String())
}

func TestConvertRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stage  Stage
	}{
		{"texture", textureSource, StageFragment},
		{"branch", branchSource, StageFragment},
		{"vertex", vertexSource, StageVertex},
		{"vertex struct output", vertexStructSource, StageVertex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Stage = tt.stage
			opts.VerifyAfterTransform = true
			res := Convert(tt.source, opts)
			require.True(t, res.OK, res.Diagnostic)
			assert.Empty(t, res.Ledger)
			assert.Contains(t, res.Source, "_1();")
		})
	}
}

func TestConvertAllTransformations(t *testing.T) {
	tests := []struct {
		name   string
		source string
		stage  Stage
	}{
		{"branch", branchSource, StageFragment},
		{"vertex", vertexSource, StageVertex},
		{"vertex struct output", vertexStructSource, StageVertex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := CompileOptions{
				Stage:                        tt.stage,
				PrefixDeclarationNames:       true,
				AddSyntheticOutputsForInputs: true,
				MakeDebuggable:               true,
				ProduceDisassembly:           true,
				VerifyAfterTransform:         true,
			}
			res := Convert(tt.source, opts)
			require.True(t, res.OK, res.Diagnostic)
			assert.NotEmpty(t, res.Ledger)
			assert.Contains(t, res.Disassembly, "dbg_trace_step")
			assert.Contains(t, res.Source, "dbg_trace_step")
		})
	}
}

func TestConvertSyntheticOutputs(t *testing.T) {
	opts := DefaultOptions()
	opts.Stage = StageVertex
	opts.AddSyntheticOutputsForInputs = true
	opts.VerifyAfterTransform = true
	res := Convert(vertexSource, opts)
	require.True(t, res.OK, res.Diagnostic)
	assert.Contains(t, res.Source, "dbg_out_position")
	assert.Contains(t, res.Source, "dbg_out_color")
}

func TestConvertTextureSampleLedger(t *testing.T) {
	opts := DefaultOptions()
	opts.MakeDebuggable = true
	opts.VerifyAfterTransform = true

	res := Convert(textureSource, opts)
	require.True(t, res.OK, res.Diagnostic)

	var found bool
	for _, rec := range res.Ledger {
		if strings.Contains(rec.SourceName, "sample(") && strings.Contains(rec.SourceName, "tex") {
			found = true
		}
	}
	assert.True(t, found, "ledger: %v", res.Ledger.Sources())
}

func TestConvertConcurrent(t *testing.T) {
	p := NewPipeline()
	opts := DefaultOptions()
	opts.MakeDebuggable = true

	var wg sync.WaitGroup
	results := make([]Result, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Convert(context.Background(), textureSource, opts)
		}(i)
	}
	wg.Wait()
	for _, res := range results {
		require.True(t, res.OK, res.Diagnostic)
		assert.Equal(t, results[0].Source, res.Source)
	}
}
