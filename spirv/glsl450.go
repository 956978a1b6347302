// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

// GLSL.std.450 extended instruction numbers.
const (
	GLSLstd450Round                 uint32 = 1
	GLSLstd450RoundEven             uint32 = 2
	GLSLstd450Trunc                 uint32 = 3
	GLSLstd450FAbs                  uint32 = 4
	GLSLstd450SAbs                  uint32 = 5
	GLSLstd450FSign                 uint32 = 6
	GLSLstd450SSign                 uint32 = 7
	GLSLstd450Floor                 uint32 = 8
	GLSLstd450Ceil                  uint32 = 9
	GLSLstd450Fract                 uint32 = 10
	GLSLstd450Radians               uint32 = 11
	GLSLstd450Degrees               uint32 = 12
	GLSLstd450Sin                   uint32 = 13
	GLSLstd450Cos                   uint32 = 14
	GLSLstd450Tan                   uint32 = 15
	GLSLstd450Asin                  uint32 = 16
	GLSLstd450Acos                  uint32 = 17
	GLSLstd450Atan                  uint32 = 18
	GLSLstd450Sinh                  uint32 = 19
	GLSLstd450Cosh                  uint32 = 20
	GLSLstd450Tanh                  uint32 = 21
	GLSLstd450Asinh                 uint32 = 22
	GLSLstd450Acosh                 uint32 = 23
	GLSLstd450Atanh                 uint32 = 24
	GLSLstd450Atan2                 uint32 = 25
	GLSLstd450Pow                   uint32 = 26
	GLSLstd450Exp                   uint32 = 27
	GLSLstd450Log                   uint32 = 28
	GLSLstd450Exp2                  uint32 = 29
	GLSLstd450Log2                  uint32 = 30
	GLSLstd450Sqrt                  uint32 = 31
	GLSLstd450InverseSqrt           uint32 = 32
	GLSLstd450Determinant           uint32 = 33
	GLSLstd450MatrixInverse         uint32 = 34
	GLSLstd450Modf                  uint32 = 35
	GLSLstd450ModfStruct            uint32 = 36
	GLSLstd450FMin                  uint32 = 37
	GLSLstd450UMin                  uint32 = 38
	GLSLstd450SMin                  uint32 = 39
	GLSLstd450FMax                  uint32 = 40
	GLSLstd450UMax                  uint32 = 41
	GLSLstd450SMax                  uint32 = 42
	GLSLstd450FClamp                uint32 = 43
	GLSLstd450UClamp                uint32 = 44
	GLSLstd450SClamp                uint32 = 45
	GLSLstd450FMix                  uint32 = 46
	GLSLstd450IMix                  uint32 = 47
	GLSLstd450Step                  uint32 = 48
	GLSLstd450SmoothStep            uint32 = 49
	GLSLstd450Fma                   uint32 = 50
	GLSLstd450Frexp                 uint32 = 51
	GLSLstd450FrexpStruct           uint32 = 52
	GLSLstd450Ldexp                 uint32 = 53
	GLSLstd450PackSnorm4x8          uint32 = 54
	GLSLstd450PackUnorm4x8          uint32 = 55
	GLSLstd450PackSnorm2x16         uint32 = 56
	GLSLstd450PackUnorm2x16         uint32 = 57
	GLSLstd450PackHalf2x16          uint32 = 58
	GLSLstd450PackDouble2x32        uint32 = 59
	GLSLstd450UnpackSnorm2x16       uint32 = 60
	GLSLstd450UnpackUnorm2x16       uint32 = 61
	GLSLstd450UnpackHalf2x16        uint32 = 62
	GLSLstd450UnpackSnorm4x8        uint32 = 63
	GLSLstd450UnpackUnorm4x8        uint32 = 64
	GLSLstd450UnpackDouble2x32      uint32 = 65
	GLSLstd450Length                uint32 = 66
	GLSLstd450Distance              uint32 = 67
	GLSLstd450Cross                 uint32 = 68
	GLSLstd450Normalize             uint32 = 69
	GLSLstd450FaceForward           uint32 = 70
	GLSLstd450Reflect               uint32 = 71
	GLSLstd450Refract               uint32 = 72
	GLSLstd450FindILsb              uint32 = 73
	GLSLstd450FindSMsb              uint32 = 74
	GLSLstd450FindUMsb              uint32 = 75
	GLSLstd450InterpolateAtCentroid uint32 = 76
	GLSLstd450InterpolateAtSample   uint32 = 77
	GLSLstd450InterpolateAtOffset   uint32 = 78
	GLSLstd450NMin                  uint32 = 79
	GLSLstd450NMax                  uint32 = 80
	GLSLstd450NClamp                uint32 = 81
)

var glslStd450Names = map[uint32]string{
	1:  "Round",
	2:  "RoundEven",
	3:  "Trunc",
	4:  "FAbs",
	5:  "SAbs",
	6:  "FSign",
	7:  "SSign",
	8:  "Floor",
	9:  "Ceil",
	10: "Fract",
	11: "Radians",
	12: "Degrees",
	13: "Sin",
	14: "Cos",
	15: "Tan",
	16: "Asin",
	17: "Acos",
	18: "Atan",
	19: "Sinh",
	20: "Cosh",
	21: "Tanh",
	22: "Asinh",
	23: "Acosh",
	24: "Atanh",
	25: "Atan2",
	26: "Pow",
	27: "Exp",
	28: "Log",
	29: "Exp2",
	30: "Log2",
	31: "Sqrt",
	32: "InverseSqrt",
	33: "Determinant",
	34: "MatrixInverse",
	35: "Modf",
	36: "ModfStruct",
	37: "FMin",
	38: "UMin",
	39: "SMin",
	40: "FMax",
	41: "UMax",
	42: "SMax",
	43: "FClamp",
	44: "UClamp",
	45: "SClamp",
	46: "FMix",
	47: "IMix",
	48: "Step",
	49: "SmoothStep",
	50: "Fma",
	51: "Frexp",
	52: "FrexpStruct",
	53: "Ldexp",
	54: "PackSnorm4x8",
	55: "PackUnorm4x8",
	56: "PackSnorm2x16",
	57: "PackUnorm2x16",
	58: "PackHalf2x16",
	59: "PackDouble2x32",
	60: "UnpackSnorm2x16",
	61: "UnpackUnorm2x16",
	62: "UnpackHalf2x16",
	63: "UnpackSnorm4x8",
	64: "UnpackUnorm4x8",
	65: "UnpackDouble2x32",
	66: "Length",
	67: "Distance",
	68: "Cross",
	69: "Normalize",
	70: "FaceForward",
	71: "Reflect",
	72: "Refract",
	73: "FindILsb",
	74: "FindSMsb",
	75: "FindUMsb",
	76: "InterpolateAtCentroid",
	77: "InterpolateAtSample",
	78: "InterpolateAtOffset",
	79: "NMin",
	80: "NMax",
	81: "NClamp",
}

var glslStd450ByName = func() map[string]uint32 {
	m := make(map[string]uint32, len(glslStd450Names))
	for v, name := range glslStd450Names {
		m[name] = v
	}
	return m
}()

// GLSLStd450Name returns the mnemonic of a GLSL.std.450 instruction.
func GLSLStd450Name(inst uint32) (string, bool) {
	name, ok := glslStd450Names[inst]
	return name, ok
}

// LookupGLSLStd450 returns the GLSL.std.450 instruction number for name.
func LookupGLSLStd450(name string) (uint32, bool) {
	v, ok := glslStd450ByName[name]
	return v, ok
}
