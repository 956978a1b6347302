// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

// OperandKind classifies one operand slot of an instruction.
type OperandKind uint8

// Operand kinds.
const (
	// KindResultType is the <id> of the result type.
	KindResultType OperandKind = iota
	// KindResultID is the <id> defined by the instruction.
	KindResultID
	// KindID is an <id> reference.
	KindID
	// KindLiteral is a 32-bit literal integer.
	KindLiteral
	// KindContextLiteral is a literal whose width and meaning come from the
	// result type (OpConstant values).
	KindContextLiteral
	// KindString is a nul-terminated UTF-8 string literal.
	KindString
	// KindEnum is a value of the operand's Enum.
	KindEnum
	// KindExtInst is an extended instruction number.
	KindExtInst
	// KindPairLiteralID is a (literal, <id>) pair, as in OpSwitch targets.
	KindPairLiteralID
	// KindPairIDID is an (<id>, <id>) pair, as in OpPhi operands.
	KindPairIDID
	// KindOperandTail is a mask enum followed by the <id> or literal
	// arguments its bits require (image operands, memory access).
	KindOperandTail
	// KindDecorationTail is a decoration followed by its literal arguments.
	KindDecorationTail
	// KindExecutionModeTail is an execution mode followed by literals.
	KindExecutionModeTail
)

// Quantifier says how many times an operand may appear.
type Quantifier uint8

// Quantifiers.
const (
	One Quantifier = iota
	Optional
	Variadic
)

// Operand describes one operand slot.
type Operand struct {
	Kind  OperandKind
	Enum  EnumKind
	Quant Quantifier
}

var (
	resType    = Operand{Kind: KindResultType}
	resID      = Operand{Kind: KindResultID}
	idRef      = Operand{Kind: KindID}
	optIDRef   = Operand{Kind: KindID, Quant: Optional}
	idRefs     = Operand{Kind: KindID, Quant: Variadic}
	literal    = Operand{Kind: KindLiteral}
	literals   = Operand{Kind: KindLiteral, Quant: Variadic}
	strLit     = Operand{Kind: KindString}
	optStrLit  = Operand{Kind: KindString, Quant: Optional}
	ctxLiteral = Operand{Kind: KindContextLiteral, Quant: Variadic}
	imageOps   = Operand{Kind: KindOperandTail, Enum: EnumImageOperands, Quant: Optional}
	memoryOps  = Operand{Kind: KindOperandTail, Enum: EnumMemoryAccess, Quant: Optional}
	decoration = Operand{Kind: KindDecorationTail, Enum: EnumDecoration}
)

func enum(kind EnumKind) Operand { return Operand{Kind: KindEnum, Enum: kind} }

func optEnum(kind EnumKind) Operand { return Operand{Kind: KindEnum, Enum: kind, Quant: Optional} }

var (
	unaryOp  = []Operand{resType, resID, idRef}
	binaryOp = []Operand{resType, resID, idRef, idRef}
	sampleOp = []Operand{resType, resID, idRef, idRef, imageOps}
	drefOp   = []Operand{resType, resID, idRef, idRef, idRef, imageOps}
	atomicOp = []Operand{resType, resID, idRef, idRef, idRef, idRef}
)

// grammar lists the operand layout of every supported opcode, excluding the
// leading opcode word.
var grammar = map[OpCode][]Operand{
	OpNop:             nil,
	OpUndef:           {resType, resID},
	OpSourceContinued: {strLit},
	OpSource:          {enum(EnumSourceLanguage), literal, optIDRef, optStrLit},
	OpSourceExtension: {strLit},
	OpName:            {idRef, strLit},
	OpMemberName:      {idRef, literal, strLit},
	OpString:          {resID, strLit},
	OpLine:            {idRef, literal, literal},
	OpNoLine:          nil,
	OpModuleProcessed: {strLit},
	OpExtension:       {strLit},
	OpExtInstImport:   {resID, strLit},
	OpExtInst:         {resType, resID, idRef, {Kind: KindExtInst}, idRefs},
	OpMemoryModel:     {enum(EnumAddressingModel), enum(EnumMemoryModel)},
	OpEntryPoint:      {enum(EnumExecutionModel), idRef, strLit, idRefs},
	OpExecutionMode:   {idRef, {Kind: KindExecutionModeTail, Enum: EnumExecutionMode}},
	OpCapability:      {enum(EnumCapability)},

	OpTypeVoid:           {resID},
	OpTypeBool:           {resID},
	OpTypeInt:            {resID, literal, literal},
	OpTypeFloat:          {resID, literal},
	OpTypeVector:         {resID, idRef, literal},
	OpTypeMatrix:         {resID, idRef, literal},
	OpTypeImage:          {resID, idRef, enum(EnumDim), literal, literal, literal, literal, enum(EnumImageFormat), optEnum(EnumAccessQualifier)},
	OpTypeSampler:        {resID},
	OpTypeSampledImage:   {resID, idRef},
	OpTypeArray:          {resID, idRef, idRef},
	OpTypeRuntimeArray:   {resID, idRef},
	OpTypeStruct:         {resID, idRefs},
	OpTypeOpaque:         {resID, strLit},
	OpTypePointer:        {resID, enum(EnumStorageClass), idRef},
	OpTypeFunction:       {resID, idRef, idRefs},
	OpTypeForwardPointer: {idRef, enum(EnumStorageClass)},

	OpConstantTrue:          {resType, resID},
	OpConstantFalse:         {resType, resID},
	OpConstant:              {resType, resID, ctxLiteral},
	OpConstantComposite:     {resType, resID, idRefs},
	OpConstantSampler:       {resType, resID, enum(EnumSamplerAddressingMode), literal, enum(EnumSamplerFilterMode)},
	OpConstantNull:          {resType, resID},
	OpSpecConstantTrue:      {resType, resID},
	OpSpecConstantFalse:     {resType, resID},
	OpSpecConstant:          {resType, resID, ctxLiteral},
	OpSpecConstantComposite: {resType, resID, idRefs},

	OpFunction:          {resType, resID, enum(EnumFunctionControl), idRef},
	OpFunctionParameter: {resType, resID},
	OpFunctionEnd:       nil,
	OpFunctionCall:      {resType, resID, idRef, idRefs},

	OpVariable:            {resType, resID, enum(EnumStorageClass), optIDRef},
	OpImageTexelPointer:   {resType, resID, idRef, idRef, idRef},
	OpLoad:                {resType, resID, idRef, memoryOps},
	OpStore:               {idRef, idRef, memoryOps},
	OpCopyMemory:          {idRef, idRef, memoryOps},
	OpAccessChain:         {resType, resID, idRef, idRefs},
	OpInBoundsAccessChain: {resType, resID, idRef, idRefs},
	OpPtrAccessChain:      {resType, resID, idRef, idRef, idRefs},
	OpArrayLength:         {resType, resID, idRef, literal},

	OpDecorate:            {idRef, decoration},
	OpMemberDecorate:      {idRef, literal, decoration},
	OpDecorationGroup:     {resID},
	OpGroupDecorate:       {idRef, idRefs},
	OpGroupMemberDecorate: {idRef, {Kind: KindPairIDID, Quant: Variadic}},

	OpVectorExtractDynamic: {resType, resID, idRef, idRef},
	OpVectorInsertDynamic:  {resType, resID, idRef, idRef, idRef},
	OpVectorShuffle:        {resType, resID, idRef, idRef, literals},
	OpCompositeConstruct:   {resType, resID, idRefs},
	OpCompositeExtract:     {resType, resID, idRef, literals},
	OpCompositeInsert:      {resType, resID, idRef, idRef, literals},
	OpCopyObject:           unaryOp,
	OpTranspose:            unaryOp,

	OpSampledImage:                   binaryOp,
	OpImageSampleImplicitLod:         sampleOp,
	OpImageSampleExplicitLod:         sampleOp,
	OpImageSampleDrefImplicitLod:     drefOp,
	OpImageSampleDrefExplicitLod:     drefOp,
	OpImageSampleProjImplicitLod:     sampleOp,
	OpImageSampleProjExplicitLod:     sampleOp,
	OpImageSampleProjDrefImplicitLod: drefOp,
	OpImageSampleProjDrefExplicitLod: drefOp,
	OpImageFetch:                     sampleOp,
	OpImageGather:                    drefOp,
	OpImageDrefGather:                drefOp,
	OpImageRead:                      sampleOp,
	OpImageWrite:                     {idRef, idRef, idRef, imageOps},
	OpImage:                          unaryOp,
	OpImageQuerySizeLod:              binaryOp,
	OpImageQuerySize:                 unaryOp,
	OpImageQueryLod:                  binaryOp,
	OpImageQueryLevels:               unaryOp,
	OpImageQuerySamples:              unaryOp,

	OpConvertFToU:   unaryOp,
	OpConvertFToS:   unaryOp,
	OpConvertSToF:   unaryOp,
	OpConvertUToF:   unaryOp,
	OpUConvert:      unaryOp,
	OpSConvert:      unaryOp,
	OpFConvert:      unaryOp,
	OpQuantizeToF16: unaryOp,
	OpBitcast:       unaryOp,

	OpSNegate:                unaryOp,
	OpFNegate:                unaryOp,
	OpIAdd:                   binaryOp,
	OpFAdd:                   binaryOp,
	OpISub:                   binaryOp,
	OpFSub:                   binaryOp,
	OpIMul:                   binaryOp,
	OpFMul:                   binaryOp,
	OpUDiv:                   binaryOp,
	OpSDiv:                   binaryOp,
	OpFDiv:                   binaryOp,
	OpUMod:                   binaryOp,
	OpSRem:                   binaryOp,
	OpSMod:                   binaryOp,
	OpFRem:                   binaryOp,
	OpFMod:                   binaryOp,
	OpVectorTimesScalar:      binaryOp,
	OpMatrixTimesScalar:      binaryOp,
	OpVectorTimesMatrix:      binaryOp,
	OpMatrixTimesVector:      binaryOp,
	OpMatrixTimesMatrix:      binaryOp,
	OpOuterProduct:           binaryOp,
	OpDot:                    binaryOp,
	OpAny:                    unaryOp,
	OpAll:                    unaryOp,
	OpIsNan:                  unaryOp,
	OpIsInf:                  unaryOp,
	OpLogicalEqual:           binaryOp,
	OpLogicalNotEqual:        binaryOp,
	OpLogicalOr:              binaryOp,
	OpLogicalAnd:             binaryOp,
	OpLogicalNot:             unaryOp,
	OpSelect:                 {resType, resID, idRef, idRef, idRef},
	OpIEqual:                 binaryOp,
	OpINotEqual:              binaryOp,
	OpUGreaterThan:           binaryOp,
	OpSGreaterThan:           binaryOp,
	OpUGreaterThanEqual:      binaryOp,
	OpSGreaterThanEqual:      binaryOp,
	OpULessThan:              binaryOp,
	OpSLessThan:              binaryOp,
	OpULessThanEqual:         binaryOp,
	OpSLessThanEqual:         binaryOp,
	OpFOrdEqual:              binaryOp,
	OpFUnordEqual:            binaryOp,
	OpFOrdNotEqual:           binaryOp,
	OpFUnordNotEqual:         binaryOp,
	OpFOrdLessThan:           binaryOp,
	OpFUnordLessThan:         binaryOp,
	OpFOrdGreaterThan:        binaryOp,
	OpFUnordGreaterThan:      binaryOp,
	OpFOrdLessThanEqual:      binaryOp,
	OpFUnordLessThanEqual:    binaryOp,
	OpFOrdGreaterThanEqual:   binaryOp,
	OpFUnordGreaterThanEqual: binaryOp,
	OpShiftRightLogical:      binaryOp,
	OpShiftRightArithmetic:   binaryOp,
	OpShiftLeftLogical:       binaryOp,
	OpBitwiseOr:              binaryOp,
	OpBitwiseXor:             binaryOp,
	OpBitwiseAnd:             binaryOp,
	OpNot:                    unaryOp,
	OpBitFieldInsert:         {resType, resID, idRef, idRef, idRef, idRef},
	OpBitFieldSExtract:       {resType, resID, idRef, idRef, idRef},
	OpBitFieldUExtract:       {resType, resID, idRef, idRef, idRef},
	OpBitReverse:             unaryOp,
	OpBitCount:               unaryOp,

	OpDPdx:         unaryOp,
	OpDPdy:         unaryOp,
	OpFwidth:       unaryOp,
	OpDPdxFine:     unaryOp,
	OpDPdyFine:     unaryOp,
	OpFwidthFine:   unaryOp,
	OpDPdxCoarse:   unaryOp,
	OpDPdyCoarse:   unaryOp,
	OpFwidthCoarse: unaryOp,

	OpControlBarrier:        {idRef, idRef, idRef},
	OpMemoryBarrier:         {idRef, idRef},
	OpAtomicLoad:            {resType, resID, idRef, idRef, idRef},
	OpAtomicStore:           {idRef, idRef, idRef, idRef},
	OpAtomicExchange:        atomicOp,
	OpAtomicCompareExchange: {resType, resID, idRef, idRef, idRef, idRef, idRef, idRef},
	OpAtomicIIncrement:      {resType, resID, idRef, idRef, idRef},
	OpAtomicIDecrement:      {resType, resID, idRef, idRef, idRef},
	OpAtomicIAdd:            atomicOp,
	OpAtomicISub:            atomicOp,
	OpAtomicSMin:            atomicOp,
	OpAtomicUMin:            atomicOp,
	OpAtomicSMax:            atomicOp,
	OpAtomicUMax:            atomicOp,
	OpAtomicAnd:             atomicOp,
	OpAtomicOr:              atomicOp,
	OpAtomicXor:             atomicOp,

	OpPhi:               {resType, resID, {Kind: KindPairIDID, Quant: Variadic}},
	OpLoopMerge:         {idRef, idRef, {Kind: KindOperandTail, Enum: EnumLoopControl}},
	OpSelectionMerge:    {idRef, enum(EnumSelectionControl)},
	OpLabel:             {resID},
	OpBranch:            {idRef},
	OpBranchConditional: {idRef, idRef, idRef, literals},
	OpSwitch:            {idRef, idRef, {Kind: KindPairLiteralID, Quant: Variadic}},
	OpKill:              nil,
	OpReturn:            nil,
	OpReturnValue:       {idRef},
	OpUnreachable:       nil,
}

// Grammar returns the operand layout of op and whether op is supported.
func Grammar(op OpCode) ([]Operand, bool) {
	g, ok := grammar[op]
	return g, ok
}

// HasResult reports the positions of the result type and result id in the
// operand words of op, or -1 when absent.
func HasResult(op OpCode) (typeIndex, idIndex int) {
	typeIndex, idIndex = -1, -1
	for i, o := range grammar[op] {
		switch o.Kind {
		case KindResultType:
			typeIndex = i
		case KindResultID:
			idIndex = i
			return typeIndex, idIndex
		default:
			return typeIndex, idIndex
		}
	}
	return typeIndex, idIndex
}

// TailArgs returns the number of argument words a mask operand requires and
// whether those arguments are ids.
func TailArgs(kind EnumKind, mask uint32) (count int, areIDs bool) {
	switch kind {
	case EnumImageOperands:
		for _, bit := range []uint32{
			ImageOperandsBias, ImageOperandsLod, ImageOperandsConstOffset,
			ImageOperandsOffset, ImageOperandsConstOffsets, ImageOperandsSample,
			ImageOperandsMinLod,
		} {
			if mask&bit != 0 {
				count++
			}
		}
		if mask&ImageOperandsGrad != 0 {
			count += 2
		}
		return count, true
	case EnumMemoryAccess:
		if mask&0x2 != 0 {
			return 1, false
		}
		return 0, false
	case EnumLoopControl:
		if mask&0x8 != 0 {
			return 1, false
		}
		return 0, false
	}
	return 0, false
}
