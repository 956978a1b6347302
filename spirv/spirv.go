// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirv provides a word-level model of SPIR-V modules.
//
// The package parses a SPIR-V binary into ordered logical sections, lets
// callers edit instructions in place, and encodes the result back to words.
// Operand layouts come from a compact grammar table shared by the
// disassembler, the assembler and the instrumentation passes.
package spirv

import "fmt"

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the header word encoding of the version.
func (v Version) Word() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

// VersionFromWord decodes the version header word.
func VersionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator

	// HeaderWords is the number of words before the first instruction.
	HeaderWords = 5
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes used by the model. The full name table lives in opcodeNames.
const (
	OpNop                            OpCode = 0
	OpUndef                          OpCode = 1
	OpSourceContinued                OpCode = 2
	OpSource                         OpCode = 3
	OpSourceExtension                OpCode = 4
	OpName                           OpCode = 5
	OpMemberName                     OpCode = 6
	OpString                         OpCode = 7
	OpLine                           OpCode = 8
	OpExtension                      OpCode = 10
	OpExtInstImport                  OpCode = 11
	OpExtInst                        OpCode = 12
	OpMemoryModel                    OpCode = 14
	OpEntryPoint                     OpCode = 15
	OpExecutionMode                  OpCode = 16
	OpCapability                     OpCode = 17
	OpTypeVoid                       OpCode = 19
	OpTypeBool                       OpCode = 20
	OpTypeInt                        OpCode = 21
	OpTypeFloat                      OpCode = 22
	OpTypeVector                     OpCode = 23
	OpTypeMatrix                     OpCode = 24
	OpTypeImage                      OpCode = 25
	OpTypeSampler                    OpCode = 26
	OpTypeSampledImage               OpCode = 27
	OpTypeArray                      OpCode = 28
	OpTypeRuntimeArray               OpCode = 29
	OpTypeStruct                     OpCode = 30
	OpTypeOpaque                     OpCode = 31
	OpTypePointer                    OpCode = 32
	OpTypeFunction                   OpCode = 33
	OpTypeForwardPointer             OpCode = 39
	OpConstantTrue                   OpCode = 41
	OpConstantFalse                  OpCode = 42
	OpConstant                       OpCode = 43
	OpConstantComposite              OpCode = 44
	OpConstantSampler                OpCode = 45
	OpConstantNull                   OpCode = 46
	OpSpecConstantTrue               OpCode = 48
	OpSpecConstantFalse              OpCode = 49
	OpSpecConstant                   OpCode = 50
	OpSpecConstantComposite          OpCode = 51
	OpSpecConstantOp                 OpCode = 52
	OpFunction                       OpCode = 54
	OpFunctionParameter              OpCode = 55
	OpFunctionEnd                    OpCode = 56
	OpFunctionCall                   OpCode = 57
	OpVariable                       OpCode = 59
	OpImageTexelPointer              OpCode = 60
	OpLoad                           OpCode = 61
	OpStore                          OpCode = 62
	OpCopyMemory                     OpCode = 63
	OpAccessChain                    OpCode = 65
	OpInBoundsAccessChain            OpCode = 66
	OpPtrAccessChain                 OpCode = 67
	OpArrayLength                    OpCode = 68
	OpDecorate                       OpCode = 71
	OpMemberDecorate                 OpCode = 72
	OpDecorationGroup                OpCode = 73
	OpGroupDecorate                  OpCode = 74
	OpGroupMemberDecorate            OpCode = 75
	OpVectorExtractDynamic           OpCode = 77
	OpVectorInsertDynamic            OpCode = 78
	OpVectorShuffle                  OpCode = 79
	OpCompositeConstruct             OpCode = 80
	OpCompositeExtract               OpCode = 81
	OpCompositeInsert                OpCode = 82
	OpCopyObject                     OpCode = 83
	OpTranspose                      OpCode = 84
	OpSampledImage                   OpCode = 86
	OpImageSampleImplicitLod         OpCode = 87
	OpImageSampleExplicitLod         OpCode = 88
	OpImageSampleDrefImplicitLod     OpCode = 89
	OpImageSampleDrefExplicitLod     OpCode = 90
	OpImageSampleProjImplicitLod     OpCode = 91
	OpImageSampleProjExplicitLod     OpCode = 92
	OpImageSampleProjDrefImplicitLod OpCode = 93
	OpImageSampleProjDrefExplicitLod OpCode = 94
	OpImageFetch                     OpCode = 95
	OpImageGather                    OpCode = 96
	OpImageDrefGather                OpCode = 97
	OpImageRead                      OpCode = 98
	OpImageWrite                     OpCode = 99
	OpImage                          OpCode = 100
	OpImageQuerySizeLod              OpCode = 103
	OpImageQuerySize                 OpCode = 104
	OpImageQueryLod                  OpCode = 105
	OpImageQueryLevels               OpCode = 106
	OpImageQuerySamples              OpCode = 107
	OpConvertFToU                    OpCode = 109
	OpConvertFToS                    OpCode = 110
	OpConvertSToF                    OpCode = 111
	OpConvertUToF                    OpCode = 112
	OpUConvert                       OpCode = 113
	OpSConvert                       OpCode = 114
	OpFConvert                       OpCode = 115
	OpQuantizeToF16                  OpCode = 116
	OpBitcast                        OpCode = 124
	OpSNegate                        OpCode = 126
	OpFNegate                        OpCode = 127
	OpIAdd                           OpCode = 128
	OpFAdd                           OpCode = 129
	OpISub                           OpCode = 130
	OpFSub                           OpCode = 131
	OpIMul                           OpCode = 132
	OpFMul                           OpCode = 133
	OpUDiv                           OpCode = 134
	OpSDiv                           OpCode = 135
	OpFDiv                           OpCode = 136
	OpUMod                           OpCode = 137
	OpSRem                           OpCode = 138
	OpSMod                           OpCode = 139
	OpFRem                           OpCode = 140
	OpFMod                           OpCode = 141
	OpVectorTimesScalar              OpCode = 142
	OpMatrixTimesScalar              OpCode = 143
	OpVectorTimesMatrix              OpCode = 144
	OpMatrixTimesVector              OpCode = 145
	OpMatrixTimesMatrix              OpCode = 146
	OpOuterProduct                   OpCode = 147
	OpDot                            OpCode = 148
	OpAny                            OpCode = 154
	OpAll                            OpCode = 155
	OpIsNan                          OpCode = 156
	OpIsInf                          OpCode = 157
	OpLogicalEqual                   OpCode = 164
	OpLogicalNotEqual                OpCode = 165
	OpLogicalOr                      OpCode = 166
	OpLogicalAnd                     OpCode = 167
	OpLogicalNot                     OpCode = 168
	OpSelect                         OpCode = 169
	OpIEqual                         OpCode = 170
	OpINotEqual                      OpCode = 171
	OpUGreaterThan                   OpCode = 172
	OpSGreaterThan                   OpCode = 173
	OpUGreaterThanEqual              OpCode = 174
	OpSGreaterThanEqual              OpCode = 175
	OpULessThan                      OpCode = 176
	OpSLessThan                      OpCode = 177
	OpULessThanEqual                 OpCode = 178
	OpSLessThanEqual                 OpCode = 179
	OpFOrdEqual                      OpCode = 180
	OpFUnordEqual                    OpCode = 181
	OpFOrdNotEqual                   OpCode = 182
	OpFUnordNotEqual                 OpCode = 183
	OpFOrdLessThan                   OpCode = 184
	OpFUnordLessThan                 OpCode = 185
	OpFOrdGreaterThan                OpCode = 186
	OpFUnordGreaterThan              OpCode = 187
	OpFOrdLessThanEqual              OpCode = 188
	OpFUnordLessThanEqual            OpCode = 189
	OpFOrdGreaterThanEqual           OpCode = 190
	OpFUnordGreaterThanEqual         OpCode = 191
	OpShiftRightLogical              OpCode = 194
	OpShiftRightArithmetic           OpCode = 195
	OpShiftLeftLogical               OpCode = 196
	OpBitwiseOr                      OpCode = 197
	OpBitwiseXor                     OpCode = 198
	OpBitwiseAnd                     OpCode = 199
	OpNot                            OpCode = 200
	OpBitFieldInsert                 OpCode = 201
	OpBitFieldSExtract               OpCode = 202
	OpBitFieldUExtract               OpCode = 203
	OpBitReverse                     OpCode = 204
	OpBitCount                       OpCode = 205
	OpDPdx                           OpCode = 207
	OpDPdy                           OpCode = 208
	OpFwidth                         OpCode = 209
	OpDPdxFine                       OpCode = 210
	OpDPdyFine                       OpCode = 211
	OpFwidthFine                     OpCode = 212
	OpDPdxCoarse                     OpCode = 213
	OpDPdyCoarse                     OpCode = 214
	OpFwidthCoarse                   OpCode = 215
	OpControlBarrier                 OpCode = 224
	OpMemoryBarrier                  OpCode = 225
	OpAtomicLoad                     OpCode = 227
	OpAtomicStore                    OpCode = 228
	OpAtomicExchange                 OpCode = 229
	OpAtomicCompareExchange          OpCode = 230
	OpAtomicIIncrement               OpCode = 232
	OpAtomicIDecrement               OpCode = 233
	OpAtomicIAdd                     OpCode = 234
	OpAtomicISub                     OpCode = 235
	OpAtomicSMin                     OpCode = 236
	OpAtomicUMin                     OpCode = 237
	OpAtomicSMax                     OpCode = 238
	OpAtomicUMax                     OpCode = 239
	OpAtomicAnd                      OpCode = 240
	OpAtomicOr                       OpCode = 241
	OpAtomicXor                      OpCode = 242
	OpPhi                            OpCode = 245
	OpLoopMerge                      OpCode = 246
	OpSelectionMerge                 OpCode = 247
	OpLabel                          OpCode = 248
	OpBranch                         OpCode = 249
	OpBranchConditional              OpCode = 250
	OpSwitch                         OpCode = 251
	OpKill                           OpCode = 252
	OpReturn                         OpCode = 253
	OpReturnValue                    OpCode = 254
	OpUnreachable                    OpCode = 255
	OpNoLine                         OpCode = 317
	OpModuleProcessed                OpCode = 330
)

var opcodeNames = map[OpCode]string{
	0: "OpNop", 1: "OpUndef", 2: "OpSourceContinued", 3: "OpSource",
	4: "OpSourceExtension", 5: "OpName", 6: "OpMemberName", 7: "OpString",
	8: "OpLine", 10: "OpExtension", 11: "OpExtInstImport", 12: "OpExtInst",
	14: "OpMemoryModel", 15: "OpEntryPoint", 16: "OpExecutionMode",
	17: "OpCapability", 19: "OpTypeVoid", 20: "OpTypeBool",
	21: "OpTypeInt", 22: "OpTypeFloat", 23: "OpTypeVector",
	24: "OpTypeMatrix", 25: "OpTypeImage", 26: "OpTypeSampler",
	27: "OpTypeSampledImage", 28: "OpTypeArray", 29: "OpTypeRuntimeArray",
	30: "OpTypeStruct", 31: "OpTypeOpaque", 32: "OpTypePointer",
	33: "OpTypeFunction", 39: "OpTypeForwardPointer",
	41: "OpConstantTrue", 42: "OpConstantFalse",
	43: "OpConstant", 44: "OpConstantComposite", 45: "OpConstantSampler",
	46: "OpConstantNull", 48: "OpSpecConstantTrue", 49: "OpSpecConstantFalse",
	50: "OpSpecConstant", 51: "OpSpecConstantComposite", 52: "OpSpecConstantOp",
	54: "OpFunction", 55: "OpFunctionParameter", 56: "OpFunctionEnd",
	57: "OpFunctionCall", 59: "OpVariable", 60: "OpImageTexelPointer",
	61: "OpLoad", 62: "OpStore", 63: "OpCopyMemory",
	65: "OpAccessChain", 66: "OpInBoundsAccessChain", 67: "OpPtrAccessChain",
	68: "OpArrayLength", 71: "OpDecorate", 72: "OpMemberDecorate",
	73: "OpDecorationGroup", 74: "OpGroupDecorate", 75: "OpGroupMemberDecorate",
	77: "OpVectorExtractDynamic", 78: "OpVectorInsertDynamic",
	79: "OpVectorShuffle", 80: "OpCompositeConstruct", 81: "OpCompositeExtract",
	82: "OpCompositeInsert", 83: "OpCopyObject", 84: "OpTranspose",
	86: "OpSampledImage", 87: "OpImageSampleImplicitLod",
	88: "OpImageSampleExplicitLod", 89: "OpImageSampleDrefImplicitLod",
	90: "OpImageSampleDrefExplicitLod", 91: "OpImageSampleProjImplicitLod",
	92: "OpImageSampleProjExplicitLod", 93: "OpImageSampleProjDrefImplicitLod",
	94: "OpImageSampleProjDrefExplicitLod", 95: "OpImageFetch",
	96: "OpImageGather", 97: "OpImageDrefGather", 98: "OpImageRead",
	99: "OpImageWrite", 100: "OpImage",
	103: "OpImageQuerySizeLod", 104: "OpImageQuerySize",
	105: "OpImageQueryLod", 106: "OpImageQueryLevels", 107: "OpImageQuerySamples",
	109: "OpConvertFToU", 110: "OpConvertFToS", 111: "OpConvertSToF",
	112: "OpConvertUToF", 113: "OpUConvert", 114: "OpSConvert",
	115: "OpFConvert", 116: "OpQuantizeToF16", 124: "OpBitcast",
	126: "OpSNegate", 127: "OpFNegate", 128: "OpIAdd", 129: "OpFAdd",
	130: "OpISub", 131: "OpFSub", 132: "OpIMul", 133: "OpFMul",
	134: "OpUDiv", 135: "OpSDiv", 136: "OpFDiv", 137: "OpUMod",
	138: "OpSRem", 139: "OpSMod", 140: "OpFRem", 141: "OpFMod",
	142: "OpVectorTimesScalar", 143: "OpMatrixTimesScalar",
	144: "OpVectorTimesMatrix", 145: "OpMatrixTimesVector",
	146: "OpMatrixTimesMatrix", 147: "OpOuterProduct", 148: "OpDot",
	154: "OpAny", 155: "OpAll", 156: "OpIsNan", 157: "OpIsInf",
	164: "OpLogicalEqual", 165: "OpLogicalNotEqual",
	166: "OpLogicalOr", 167: "OpLogicalAnd", 168: "OpLogicalNot",
	169: "OpSelect", 170: "OpIEqual", 171: "OpINotEqual",
	172: "OpUGreaterThan", 173: "OpSGreaterThan", 174: "OpUGreaterThanEqual",
	175: "OpSGreaterThanEqual", 176: "OpULessThan", 177: "OpSLessThan",
	178: "OpULessThanEqual", 179: "OpSLessThanEqual",
	180: "OpFOrdEqual", 181: "OpFUnordEqual", 182: "OpFOrdNotEqual",
	183: "OpFUnordNotEqual", 184: "OpFOrdLessThan", 185: "OpFUnordLessThan",
	186: "OpFOrdGreaterThan", 187: "OpFUnordGreaterThan",
	188: "OpFOrdLessThanEqual", 189: "OpFUnordLessThanEqual",
	190: "OpFOrdGreaterThanEqual", 191: "OpFUnordGreaterThanEqual",
	194: "OpShiftRightLogical", 195: "OpShiftRightArithmetic",
	196: "OpShiftLeftLogical", 197: "OpBitwiseOr", 198: "OpBitwiseXor",
	199: "OpBitwiseAnd", 200: "OpNot", 201: "OpBitFieldInsert",
	202: "OpBitFieldSExtract", 203: "OpBitFieldUExtract",
	204: "OpBitReverse", 205: "OpBitCount",
	207: "OpDPdx", 208: "OpDPdy", 209: "OpFwidth", 210: "OpDPdxFine",
	211: "OpDPdyFine", 212: "OpFwidthFine", 213: "OpDPdxCoarse",
	214: "OpDPdyCoarse", 215: "OpFwidthCoarse",
	224: "OpControlBarrier", 225: "OpMemoryBarrier",
	227: "OpAtomicLoad", 228: "OpAtomicStore", 229: "OpAtomicExchange",
	230: "OpAtomicCompareExchange", 232: "OpAtomicIIncrement",
	233: "OpAtomicIDecrement", 234: "OpAtomicIAdd", 235: "OpAtomicISub",
	236: "OpAtomicSMin", 237: "OpAtomicUMin", 238: "OpAtomicSMax",
	239: "OpAtomicUMax", 240: "OpAtomicAnd", 241: "OpAtomicOr",
	242: "OpAtomicXor",
	245: "OpPhi", 246: "OpLoopMerge", 247: "OpSelectionMerge",
	248: "OpLabel", 249: "OpBranch", 250: "OpBranchConditional",
	251: "OpSwitch", 252: "OpKill", 253: "OpReturn", 254: "OpReturnValue",
	255: "OpUnreachable", 317: "OpNoLine", 330: "OpModuleProcessed",
}

var opcodeByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op%d", uint16(op))
}

// Known reports whether the opcode has a grammar entry.
func (op OpCode) Known() bool {
	_, ok := grammar[op]
	return ok
}

// LookupOpCode returns the opcode with the given mnemonic, such as "OpLoad".
func LookupOpCode(name string) (OpCode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// IsTerminator reports whether the opcode ends a basic block.
func (op OpCode) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpSwitch, OpKill, OpReturn,
		OpReturnValue, OpUnreachable:
		return true
	}
	return false
}

// IsMerge reports whether the opcode is a structured merge instruction.
func (op OpCode) IsMerge() bool {
	return op == OpSelectionMerge || op == OpLoopMerge
}

// IsType reports whether the opcode declares a type.
func (op OpCode) IsType() bool {
	return op >= OpTypeVoid && op <= OpTypeFunction
}

// IsConstant reports whether the opcode declares a constant.
func (op OpCode) IsConstant() bool {
	return op >= OpConstantTrue && op <= OpSpecConstantOp && op != 47
}

// IsImageSample reports whether the opcode samples an image.
func (op OpCode) IsImageSample() bool {
	return op >= OpImageSampleImplicitLod && op <= OpImageSampleProjDrefExplicitLod
}
