// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv_test

import (
	"runtime"
	"testing"

	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/spirv"
)

// ---------------------------------------------------------------------------
// Test shader sources for SPIR-V word model benchmarks
// ---------------------------------------------------------------------------

const spirvBenchSmall = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

const spirvBenchMedium = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec4<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(0.0, 0.5),
        vec2<f32>(-0.5, -0.5),
        vec2<f32>(0.5, -0.5)
    );
    out.position = vec4<f32>(pos[idx], 0.0, 1.0);
    out.color = vec4<f32>(1.0, 0.0, 0.0, 1.0);
    return out;
}
`

const spirvBenchLarge = `
struct Camera {
    view_proj: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) world_pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@vertex
fn vs_main(
    @location(0) pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = camera.view_proj * vec4<f32>(pos, 1.0);
    out.world_pos = pos;
    out.normal = normalize(normal);
    out.uv = uv;
    return out;
}
`

type spirvBenchCase struct {
	name   string
	source string
}

var spirvBenchShaders = []spirvBenchCase{
	{"small", spirvBenchSmall},
	{"medium", spirvBenchMedium},
	{"large", spirvBenchLarge},
}

// compileWords is a benchmark helper that compiles WGSL to SPIR-V words.
func compileWords(b *testing.B, source string) []uint32 {
	b.Helper()
	words, err := frontend.NewNaga().Compile(source, frontend.StageVertex, frontend.ProfileBroad)
	if err != nil {
		b.Fatalf("compile failed: %v", err)
	}
	return words
}

// BenchmarkParse measures classifying a stream into sections.
func BenchmarkParse(b *testing.B) {
	for _, bc := range spirvBenchShaders {
		b.Run(bc.name, func(b *testing.B) {
			words := compileWords(b, bc.source)
			b.ReportAllocs()
			b.SetBytes(int64(len(words) * 4))
			b.ResetTimer()

			var m *spirv.Module
			for i := 0; i < b.N; i++ {
				var err error
				m, err = spirv.Parse(words)
				if err != nil {
					b.Fatal(err)
				}
			}
			runtime.KeepAlive(m)
		})
	}
}

// BenchmarkEncode measures writing a parsed module back to words.
func BenchmarkEncode(b *testing.B) {
	for _, bc := range spirvBenchShaders {
		b.Run(bc.name, func(b *testing.B) {
			m, err := spirv.Parse(compileWords(b, bc.source))
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()

			var out []uint32
			for i := 0; i < b.N; i++ {
				out = m.Encode()
			}
			runtime.KeepAlive(out)
		})
	}
}

// BenchmarkValidate measures the id and structure checks.
func BenchmarkValidate(b *testing.B) {
	for _, bc := range spirvBenchShaders {
		b.Run(bc.name, func(b *testing.B) {
			m, err := spirv.Parse(compileWords(b, bc.source))
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := m.Validate(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
