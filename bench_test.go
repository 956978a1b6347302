// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvtrace

import (
	"context"
	"runtime"
	"testing"
)

// shaderLargeFragment is a fragment shader with loops, branches, texture
// sampling and helper functions.
const shaderLargeFragment = `
@group(0) @binding(0) var albedo: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

struct Light {
    direction: vec3<f32>,
    intensity: f32,
}

@group(1) @binding(0) var<uniform> light: Light;

fn shade(n: vec3<f32>, base: vec3<f32>) -> vec3<f32> {
    let d = max(dot(n, -light.direction), 0.0);
    return base * d * light.intensity;
}

@fragment
fn fs_main(@location(0) uv: vec2<f32>, @location(1) normal: vec3<f32>) -> @location(0) vec4<f32> {
    let base = textureSample(albedo, samp, uv).rgb;
    var color = vec3<f32>(0.0, 0.0, 0.0);
    for (var i: i32 = 0; i < 4; i = i + 1) {
        color = color + shade(normalize(normal), base) * 0.25;
    }
    if color.r > 1.0 {
        color = vec3<f32>(1.0, color.g, color.b);
    }
    return vec4<f32>(color, 1.0);
}
`

type shaderCase struct {
	name   string
	source string
	stage  Stage
}

var shadersByComplexity = []shaderCase{
	{"Small/Fragment", textureSource, StageFragment},
	{"Medium/Vertex", vertexSource, StageVertex},
	{"Large/Fragment", shaderLargeFragment, StageFragment},
}

// BenchmarkConvert measures a conversion with no transformations.
func BenchmarkConvert(b *testing.B) {
	for _, sc := range shadersByComplexity {
		b.Run(sc.name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.Stage = sc.stage
			benchmarkConvert(b, sc.source, opts)
		})
	}
}

// BenchmarkConvertDebuggable measures the full pipeline with every
// transformation and verification enabled.
func BenchmarkConvertDebuggable(b *testing.B) {
	for _, sc := range shadersByComplexity {
		b.Run(sc.name, func(b *testing.B) {
			benchmarkConvert(b, sc.source, CompileOptions{
				Stage:                        sc.stage,
				PrefixDeclarationNames:       true,
				AddSyntheticOutputsForInputs: true,
				MakeDebuggable:               true,
				VerifyAfterTransform:         true,
			})
		})
	}
}

func benchmarkConvert(b *testing.B, source string, opts CompileOptions) {
	p := NewPipeline()
	b.ReportAllocs()
	b.SetBytes(int64(len(source)))
	b.ResetTimer()

	var res Result
	for i := 0; i < b.N; i++ {
		res = p.Convert(context.Background(), source, opts)
		if !res.OK {
			b.Fatalf("convert failed: %s", res.Diagnostic)
		}
	}
	runtime.KeepAlive(res)
}
