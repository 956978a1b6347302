// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package frontend

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/naga/ir"

	"github.com/gogpu/spvtrace/spirv"
)

const fragmentSource = `
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

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return camera.view_proj * vec4<f32>(position, 1.0);
}
`

func compile(t *testing.T, source string, stage Stage, profile Profile) *spirv.Module {
	t.Helper()
	words, err := NewNaga().Compile(source, stage, profile)
	require.NoError(t, err)
	m, err := spirv.Parse(words)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	return m
}

func namesOf(m *spirv.Module) map[string]uint32 {
	out := make(map[string]uint32)
	for id, name := range m.Names() {
		out[name] = id
	}
	return out
}

func TestCompileFragment(t *testing.T) {
	m := compile(t, fragmentSource, StageFragment, ProfileRestricted)
	assert.Equal(t, spirv.Version1_0, m.Header.Version)

	names := namesOf(m)
	for _, name := range []string{"tex", "samp", "main", "uv"} {
		assert.Contains(t, names, name)
	}
	set, ok := m.Decoration(names["samp"], spirv.DecorationBinding)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, set)

	eps, err := m.EntryPointList()
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, spirv.ExecutionModelFragment, eps[0].Model)
	assert.Equal(t, names["main"], eps[0].Function)
}

func TestCompileVertexBroad(t *testing.T) {
	m := compile(t, vertexSource, StageVertex, ProfileBroad)
	assert.Equal(t, spirv.Version1_3, m.Header.Version)

	names := namesOf(m)
	assert.Contains(t, names, "camera")
	assert.Contains(t, names, "vs_main")
	assert.Contains(t, names, "position")
}

func TestStageMismatch(t *testing.T) {
	_, err := NewNaga().Compile(fragmentSource, StageVertex, ProfileRestricted)
	require.Error(t, err)

	var diag *Diagnostic
	require.True(t, errors.As(err, &diag))
	assert.Equal(t, KindLink, diag.Kind)
	assert.Equal(t, "link failed\nInfoLog:\nno vertex entry point", diag.Message)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"syntax", "@fragment fn main( -> @location(0) vec4<f32> {"},
		{"undefined", "@fragment fn main() -> @location(0) vec4<f32> { return missing; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNaga()
			_, err := n.Compile(tt.source, StageFragment, ProfileRestricted)
			require.Error(t, err)

			var diag *Diagnostic
			require.True(t, errors.As(err, &diag))
			assert.Equal(t, KindCompile, diag.Kind)
			assert.True(t, strings.HasPrefix(diag.Message, "Compile failed\nInfoLog: "), diag.Message)
			assert.Equal(t, diag.Message, err.Error())
			assert.NotNil(t, errors.Unwrap(err))

			active, opened := n.Sessions()
			assert.Zero(t, active)
			assert.Equal(t, 1, opened)
		})
	}
}

func TestInvalidStage(t *testing.T) {
	n := NewNaga()
	_, err := n.Compile(fragmentSource, StageNone, ProfileRestricted)
	var diag *Diagnostic
	require.True(t, errors.As(err, &diag))
	assert.Equal(t, KindLink, diag.Kind)
	active, _ := n.Sessions()
	assert.Zero(t, active)
}

func TestSessionsAreReleased(t *testing.T) {
	n := NewNaga()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = n.Compile(fragmentSource, StageFragment, ProfileRestricted)
		}()
	}
	wg.Wait()
	active, opened := n.Sessions()
	assert.Zero(t, active)
	assert.Equal(t, 8, opened)
}

func TestProfile(t *testing.T) {
	assert.Equal(t, spirv.Version1_0, ProfileRestricted.Version())
	assert.Equal(t, spirv.Version1_3, ProfileBroad.Version())

	assert.True(t, ProfileRestricted.Allows(spirv.CapabilityShader))
	assert.True(t, ProfileRestricted.Allows(spirv.CapabilityDerivativeControl))
	assert.False(t, ProfileRestricted.Allows(spirv.CapabilityFloat64))
	assert.True(t, ProfileBroad.Allows(spirv.CapabilityFloat64))

	assert.Equal(t, "restricted", ProfileRestricted.String())
	assert.Equal(t, "broad", ProfileBroad.String())
}

func TestStage(t *testing.T) {
	model, ok := StageVertex.ExecutionModel()
	assert.True(t, ok)
	assert.Equal(t, spirv.ExecutionModelVertex, model)
	model, ok = StageFragment.ExecutionModel()
	assert.True(t, ok)
	assert.Equal(t, spirv.ExecutionModelFragment, model)
	_, ok = StageNone.ExecutionModel()
	assert.False(t, ok)
	assert.Equal(t, "fragment", StageFragment.String())
}

func TestRestoreNamesKeepsExisting(t *testing.T) {
	words, err := NewNaga().Compile(fragmentSource, StageFragment, ProfileRestricted)
	require.NoError(t, err)
	m, err := spirv.Parse(words)
	require.NoError(t, err)

	before := m.Names()
	assert.Zero(t, restoreNames(m, &ir.Module{}), "an empty IR pairs nothing")
	assert.Equal(t, before, m.Names())
}

// privatePair builds a module with a private f32 and a private vec4<f32>, in
// that order, and returns it with their ids.
func privatePair() (m *spirv.Module, scalar, vector uint32) {
	m = spirv.NewModule(spirv.Version1_0)
	add := func(op spirv.OpCode, words ...uint32) {
		m.Globals = append(m.Globals, spirv.NewInstructionBuilder().AddWords(words...).Build(op))
	}
	float, vec4 := m.AllocID(), m.AllocID()
	ptrFloat, ptrVec4 := m.AllocID(), m.AllocID()
	scalar, vector = m.AllocID(), m.AllocID()
	private := uint32(spirv.StorageClassPrivate)
	add(spirv.OpTypeFloat, float, 32)
	add(spirv.OpTypeVector, vec4, float, 4)
	add(spirv.OpTypePointer, ptrFloat, private, float)
	add(spirv.OpTypePointer, ptrVec4, private, vec4)
	add(spirv.OpVariable, ptrFloat, scalar, private)
	add(spirv.OpVariable, ptrVec4, vector, private)
	return m, scalar, vector
}

func TestRestoreNamesMatchesTypes(t *testing.T) {
	types := []ir.Type{
		{Name: "f32", Inner: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
		{Inner: ir.VectorType{Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}},
	}
	weight := ir.GlobalVariable{Name: "weight", Space: ir.SpacePrivate, Type: 0}
	tint := ir.GlobalVariable{Name: "tint", Space: ir.SpacePrivate, Type: 1}

	m, scalar, vector := privatePair()
	added := restoreNames(m, &ir.Module{Types: types, GlobalVariables: []ir.GlobalVariable{weight, tint}})
	assert.Equal(t, 2, added)
	assert.Equal(t, map[uint32]string{scalar: "weight", vector: "tint"}, m.Names())

	m, _, _ = privatePair()
	added = restoreNames(m, &ir.Module{Types: types, GlobalVariables: []ir.GlobalVariable{tint, weight}})
	assert.Zero(t, added, "globals emitted in another order keep their ids unnamed")
	assert.Empty(t, m.Names())
}

func BenchmarkCompile(b *testing.B) {
	n := NewNaga()
	for i := 0; i < b.N; i++ {
		if _, err := n.Compile(fragmentSource, StageFragment, ProfileRestricted); err != nil {
			b.Fatal(err)
		}
	}
}
