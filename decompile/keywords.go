// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// unnamedIdentifier is used when a name sanitizes to nothing.
const unnamedIdentifier = "unnamed"

// reservedWords holds WGSL keywords, reserved words, predeclared types and
// the builtin functions the writer calls. Generated names must not shadow
// any of them.
var reservedWords = map[string]struct{}{}

func init() {
	for _, group := range [][]string{
		// Keywords
		{
			"alias", "break", "case", "const", "const_assert", "continue", "continuing",
			"default", "diagnostic", "discard", "else", "enable", "false", "fn", "for",
			"if", "let", "loop", "override", "requires", "return", "struct", "switch",
			"true", "var", "while",
		},
		// Reserved words
		{
			"NULL", "Self", "abstract", "active", "alignas", "alignof", "as", "asm",
			"asm_fragment", "async", "attribute", "auto", "await", "become", "binding_array",
			"cast", "catch", "class", "co_await", "co_return", "co_yield", "coherent",
			"column_major", "common", "compile", "compile_fragment", "concept", "const_cast",
			"consteval", "constexpr", "constinit", "crate", "debugger", "decltype", "delete",
			"demote", "demote_to_helper", "do", "dynamic_cast", "enum", "explicit", "export",
			"extends", "extern", "external", "fallthrough", "filter", "final", "finally",
			"friend", "from", "fxgroup", "get", "goto", "groupshared", "highp", "impl",
			"implements", "import", "inline", "instanceof", "interface", "layout", "lowp",
			"macro", "macro_rules", "match", "mediump", "meta", "mod", "module", "move",
			"mut", "mutable", "namespace", "new", "nil", "noexcept", "noinline",
			"nointerpolation", "noperspective", "null", "nullptr", "of", "operator",
			"package", "packoffset", "partition", "pass", "patch", "pixelfragment",
			"precise", "precision", "premerge", "priv", "protected", "pub", "public",
			"readonly", "ref", "regardless", "register", "reinterpret_cast", "require",
			"resource", "restrict", "self", "set", "shared", "sizeof", "smooth", "snorm",
			"static", "static_assert", "static_cast", "std", "subroutine", "super",
			"target", "template", "this", "thread_local", "throw", "trait", "try", "type",
			"typedef", "typeid", "typename", "typeof", "union", "unless", "unorm", "unsafe",
			"unsized", "use", "using", "varying", "virtual", "volatile", "wgsl", "where",
			"with", "writeonly", "yield",
		},
		// Predeclared types and enumerants
		{
			"bool", "f16", "f32", "i32", "u32", "vec2", "vec3", "vec4", "mat2x2",
			"mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4", "mat4x2", "mat4x3",
			"mat4x4", "array", "atomic", "ptr", "sampler", "sampler_comparison",
			"texture_1d", "texture_2d", "texture_2d_array", "texture_3d", "texture_cube",
			"texture_cube_array", "texture_multisampled_2d", "texture_storage_1d",
			"texture_storage_2d", "texture_storage_2d_array", "texture_storage_3d",
			"texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube",
			"texture_depth_cube_array", "texture_depth_multisampled_2d",
			"function", "private", "workgroup", "uniform", "storage", "handle",
			"read", "write", "read_write",
		},
		// Builtin functions
		{
			"abs", "acos", "acosh", "all", "any", "arrayLength", "asin", "asinh",
			"atan", "atan2", "atanh", "bitcast", "ceil", "clamp", "cos", "cosh",
			"countOneBits", "cross", "degrees", "determinant", "distance", "dot",
			"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
			"exp", "exp2", "extractBits", "faceForward", "firstLeadingBit",
			"firstTrailingBit", "floor", "fma", "fract", "fwidth", "fwidthCoarse",
			"fwidthFine", "insertBits", "inverseSqrt", "ldexp", "length", "log", "log2",
			"max", "min", "mix", "normalize", "pow", "quantizeToF16", "radians",
			"reflect", "refract", "reverseBits", "round", "select", "sign", "sin",
			"sinh", "smoothstep", "sqrt", "step", "tan", "tanh", "textureDimensions",
			"textureGather", "textureGatherCompare", "textureLoad", "textureNumLayers",
			"textureNumLevels", "textureNumSamples", "textureSample", "textureSampleBias",
			"textureSampleCompare", "textureSampleCompareLevel", "textureSampleGrad",
			"textureSampleLevel", "textureStore", "transpose", "trunc", "isnan", "isinf",
				"inverse", "outerProduct", "pack4x8snorm", "pack4x8unorm", "pack2x16snorm",
				"pack2x16unorm", "pack2x16float", "unpack4x8snorm", "unpack4x8unorm",
				"unpack2x16snorm", "unpack2x16unorm", "unpack2x16float",
		},
	} {
		for _, w := range group {
			reservedWords[w] = struct{}{}
		}
	}
}

// isReserved reports whether name cannot be used as a WGSL identifier.
func isReserved(name string) bool {
	if _, ok := reservedWords[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "__")
}

// identifier turns a debug name into a valid WGSL identifier. The name is
// NFC-normalized, characters outside [A-Za-z0-9_] become '_', and reserved
// words get a '_' suffix.
func identifier(name string) string {
	name = norm.NFC.String(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	s := strings.TrimLeft(sb.String(), "_")
	if s == "" {
		return unnamedIdentifier
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "n" + s
	}
	if isReserved(s) {
		s += "_"
	}
	return s
}
