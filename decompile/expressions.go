// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"fmt"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// infixOps lists instructions that map to a WGSL binary operator with
// operands of the result type.
var infixOps = map[spirv.OpCode]string{
	spirv.OpFAdd:              "+",
	spirv.OpFSub:              "-",
	spirv.OpFMul:              "*",
	spirv.OpFDiv:              "/",
	spirv.OpFRem:              "%",
	spirv.OpVectorTimesScalar: "*",
	spirv.OpMatrixTimesScalar: "*",
	spirv.OpVectorTimesMatrix: "*",
	spirv.OpMatrixTimesVector: "*",
	spirv.OpMatrixTimesMatrix: "*",
}

// compareOps lists comparisons of float or bool operands.
var compareOps = map[spirv.OpCode]string{
	spirv.OpFOrdEqual:              "==",
	spirv.OpFUnordEqual:            "==",
	spirv.OpFOrdNotEqual:           "!=",
	spirv.OpFUnordNotEqual:         "!=",
	spirv.OpFOrdLessThan:           "<",
	spirv.OpFUnordLessThan:         "<",
	spirv.OpFOrdGreaterThan:        ">",
	spirv.OpFUnordGreaterThan:      ">",
	spirv.OpFOrdLessThanEqual:      "<=",
	spirv.OpFUnordLessThanEqual:    "<=",
	spirv.OpFOrdGreaterThanEqual:   ">=",
	spirv.OpFUnordGreaterThanEqual: ">=",
	spirv.OpLogicalEqual:           "==",
	spirv.OpLogicalNotEqual:        "!=",
}

// intCompareOps lists integer comparisons. explicit marks opcodes whose
// signedness is fixed by the instruction rather than by the operand type.
var intCompareOps = map[spirv.OpCode]struct {
	op       string
	signed   bool
	explicit bool
}{
	spirv.OpIEqual:            {"==", false, false},
	spirv.OpINotEqual:         {"!=", false, false},
	spirv.OpUGreaterThan:      {">", false, true},
	spirv.OpSGreaterThan:      {">", true, true},
	spirv.OpUGreaterThanEqual: {">=", false, true},
	spirv.OpSGreaterThanEqual: {">=", true, true},
	spirv.OpULessThan:         {"<", false, true},
	spirv.OpSLessThan:         {"<", true, true},
	spirv.OpULessThanEqual:    {"<=", false, true},
	spirv.OpSLessThanEqual:    {"<=", true, true},
}

// intOps lists integer arithmetic. explicit marks opcodes whose signedness
// is fixed by the instruction rather than by the result type.
var intOps = map[spirv.OpCode]struct {
	op       string
	signed   bool
	explicit bool
}{
	spirv.OpIAdd:       {"+", false, false},
	spirv.OpISub:       {"-", false, false},
	spirv.OpIMul:       {"*", false, false},
	spirv.OpBitwiseOr:  {"|", false, false},
	spirv.OpBitwiseXor: {"^", false, false},
	spirv.OpBitwiseAnd: {"&", false, false},
	spirv.OpUDiv:       {"/", false, true},
	spirv.OpSDiv:       {"/", true, true},
	spirv.OpUMod:       {"%", false, true},
	spirv.OpSRem:       {"%", true, true},
}

// unaryFuncs lists instructions that map to a one-argument WGSL builtin.
var unaryFuncs = map[spirv.OpCode]string{
	spirv.OpAny:           "any",
	spirv.OpAll:           "all",
	spirv.OpIsNan:         "isnan",
	spirv.OpIsInf:         "isinf",
	spirv.OpTranspose:     "transpose",
	spirv.OpQuantizeToF16: "quantizeToF16",
	spirv.OpBitCount:      "countOneBits",
	spirv.OpBitReverse:    "reverseBits",
	spirv.OpDPdx:          "dpdx",
	spirv.OpDPdy:          "dpdy",
	spirv.OpFwidth:        "fwidth",
	spirv.OpDPdxFine:      "dpdxFine",
	spirv.OpDPdyFine:      "dpdyFine",
	spirv.OpFwidthFine:    "fwidthFine",
	spirv.OpDPdxCoarse:    "dpdxCoarse",
	spirv.OpDPdyCoarse:    "dpdyCoarse",
	spirv.OpFwidthCoarse:  "fwidthCoarse",
}

// glslFuncs maps GLSL.std.450 instructions to WGSL builtins taking the same
// operands.
var glslFuncs = map[uint32]string{
	spirv.GLSLstd450Round:           "round",
	spirv.GLSLstd450RoundEven:       "round",
	spirv.GLSLstd450Trunc:           "trunc",
	spirv.GLSLstd450FAbs:            "abs",
	spirv.GLSLstd450SAbs:            "abs",
	spirv.GLSLstd450FSign:           "sign",
	spirv.GLSLstd450SSign:           "sign",
	spirv.GLSLstd450Floor:           "floor",
	spirv.GLSLstd450Ceil:            "ceil",
	spirv.GLSLstd450Fract:           "fract",
	spirv.GLSLstd450Radians:         "radians",
	spirv.GLSLstd450Degrees:         "degrees",
	spirv.GLSLstd450Sin:             "sin",
	spirv.GLSLstd450Cos:             "cos",
	spirv.GLSLstd450Tan:             "tan",
	spirv.GLSLstd450Asin:            "asin",
	spirv.GLSLstd450Acos:            "acos",
	spirv.GLSLstd450Atan:            "atan",
	spirv.GLSLstd450Sinh:            "sinh",
	spirv.GLSLstd450Cosh:            "cosh",
	spirv.GLSLstd450Tanh:            "tanh",
	spirv.GLSLstd450Asinh:           "asinh",
	spirv.GLSLstd450Acosh:           "acosh",
	spirv.GLSLstd450Atanh:           "atanh",
	spirv.GLSLstd450Atan2:           "atan2",
	spirv.GLSLstd450Pow:             "pow",
	spirv.GLSLstd450Exp:             "exp",
	spirv.GLSLstd450Log:             "log",
	spirv.GLSLstd450Exp2:            "exp2",
	spirv.GLSLstd450Log2:            "log2",
	spirv.GLSLstd450Sqrt:            "sqrt",
	spirv.GLSLstd450InverseSqrt:     "inverseSqrt",
	spirv.GLSLstd450Determinant:     "determinant",
	spirv.GLSLstd450MatrixInverse:   "inverse",
	spirv.GLSLstd450FMin:            "min",
	spirv.GLSLstd450UMin:            "min",
	spirv.GLSLstd450SMin:            "min",
	spirv.GLSLstd450NMin:            "min",
	spirv.GLSLstd450FMax:            "max",
	spirv.GLSLstd450UMax:            "max",
	spirv.GLSLstd450SMax:            "max",
	spirv.GLSLstd450NMax:            "max",
	spirv.GLSLstd450FClamp:          "clamp",
	spirv.GLSLstd450UClamp:          "clamp",
	spirv.GLSLstd450SClamp:          "clamp",
	spirv.GLSLstd450NClamp:          "clamp",
	spirv.GLSLstd450FMix:            "mix",
	spirv.GLSLstd450Step:            "step",
	spirv.GLSLstd450SmoothStep:      "smoothstep",
	spirv.GLSLstd450Fma:             "fma",
	spirv.GLSLstd450Ldexp:           "ldexp",
	spirv.GLSLstd450PackSnorm4x8:    "pack4x8snorm",
	spirv.GLSLstd450PackUnorm4x8:    "pack4x8unorm",
	spirv.GLSLstd450PackSnorm2x16:   "pack2x16snorm",
	spirv.GLSLstd450PackUnorm2x16:   "pack2x16unorm",
	spirv.GLSLstd450PackHalf2x16:    "pack2x16float",
	spirv.GLSLstd450UnpackSnorm4x8:  "unpack4x8snorm",
	spirv.GLSLstd450UnpackUnorm4x8:  "unpack4x8unorm",
	spirv.GLSLstd450UnpackSnorm2x16: "unpack2x16snorm",
	spirv.GLSLstd450UnpackUnorm2x16: "unpack2x16unorm",
	spirv.GLSLstd450UnpackHalf2x16:  "unpack2x16float",
	spirv.GLSLstd450Length:          "length",
	spirv.GLSLstd450Distance:        "distance",
	spirv.GLSLstd450Cross:           "cross",
	spirv.GLSLstd450Normalize:       "normalize",
	spirv.GLSLstd450FaceForward:     "faceForward",
	spirv.GLSLstd450Reflect:         "reflect",
	spirv.GLSLstd450Refract:         "refract",
	spirv.GLSLstd450FindILsb:        "firstTrailingBit",
	spirv.GLSLstd450FindSMsb:        "firstLeadingBit",
	spirv.GLSLstd450FindUMsb:        "firstLeadingBit",
}

// value renders the expression computed by a bound instruction.
func (fc *funcContext) value(inst *spirv.Instruction) (string, error) {
	w := fc.w
	id := inst.Words[1]
	resultType := inst.Words[0]

	if op, ok := infixOps[inst.Opcode]; ok {
		return fc.binary(op, inst.Words[2], inst.Words[3])
	}
	if op, ok := compareOps[inst.Opcode]; ok {
		return fc.binary(op, inst.Words[2], inst.Words[3])
	}
	if op, ok := intOps[inst.Opcode]; ok {
		signed := op.signed
		if !op.explicit {
			kind, _ := w.scalarOf(resultType)
			signed = kind == kindSint
		}
		a, err := fc.intOperand(inst.Words[2], signed)
		if err != nil {
			return "", err
		}
		b, err := fc.intOperand(inst.Words[3], signed)
		if err != nil {
			return "", err
		}
		return fc.fit(fmt.Sprintf("(%s %s %s)", a, op.op, b), resultType, signed)
	}
	if op, ok := intCompareOps[inst.Opcode]; ok {
		signed := op.signed
		if !op.explicit {
			ty, _ := fc.typeOf(inst.Words[2])
			kind, _ := w.scalarOf(ty)
			signed = kind == kindSint
		}
		a, err := fc.intOperand(inst.Words[2], signed)
		if err != nil {
			return "", err
		}
		b, err := fc.intOperand(inst.Words[3], signed)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", a, op.op, b), nil
	}
	if name, ok := unaryFuncs[inst.Opcode]; ok {
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", name, a), nil
	}

	switch inst.Opcode {
	case spirv.OpLoad:
		return fc.lvalue(inst.Words[2])
	case spirv.OpCopyObject:
		return fc.expr(inst.Words[2])
	case spirv.OpFunctionCall:
		return fc.call(inst)
	case spirv.OpExtInst:
		return fc.extInst(inst)

	case spirv.OpFNegate:
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		return "(-" + a + ")", nil
	case spirv.OpSNegate:
		a, err := fc.intOperand(inst.Words[2], true)
		if err != nil {
			return "", err
		}
		return fc.fit("(-"+a+")", resultType, true)
	case spirv.OpNot:
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		return "(~" + a + ")", nil
	case spirv.OpLogicalNot:
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		return "(!" + a + ")", nil
	case spirv.OpLogicalAnd, spirv.OpLogicalOr:
		op := "&&"
		if inst.Opcode == spirv.OpLogicalOr {
			op = "||"
		}
		if _, n := w.scalarOf(resultType); n > 1 {
			op = op[:1]
		}
		return fc.binary(op, inst.Words[2], inst.Words[3])
	case spirv.OpFMod:
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		b, err := fc.expr(inst.Words[3])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s - %s * floor(%s / %s))", a, b, a, b), nil
	case spirv.OpSMod:
		a, err := fc.intOperand(inst.Words[2], true)
		if err != nil {
			return "", err
		}
		b, err := fc.intOperand(inst.Words[3], true)
		if err != nil {
			return "", err
		}
		return fc.fit(fmt.Sprintf("(((%s %% %s) + %s) %% %s)", a, b, b, b), resultType, true)
	case spirv.OpShiftLeftLogical, spirv.OpShiftRightLogical, spirv.OpShiftRightArithmetic:
		return fc.shift(inst)
	case spirv.OpDot:
		return fc.call2("dot", inst.Words[2], inst.Words[3])
	case spirv.OpOuterProduct:
		return fc.call2("outerProduct", inst.Words[2], inst.Words[3])
	case spirv.OpSelect:
		c, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		t, err := fc.expr(inst.Words[3])
		if err != nil {
			return "", err
		}
		f, err := fc.expr(inst.Words[4])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("select(%s, %s, %s)", f, t, c), nil

	case spirv.OpConvertFToU, spirv.OpConvertFToS, spirv.OpConvertSToF, spirv.OpConvertUToF,
		spirv.OpUConvert, spirv.OpSConvert, spirv.OpFConvert:
		return fc.convert(inst)
	case spirv.OpBitcast:
		ty, err := w.typeName(resultType)
		if err != nil {
			return "", err
		}
		a, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("bitcast<%s>(%s)", ty, a), nil
	case spirv.OpBitFieldInsert:
		args, err := fc.exprs(inst.Words[2:4])
		if err != nil {
			return "", err
		}
		offset, err := fc.intOperand(inst.Words[4], false)
		if err != nil {
			return "", err
		}
		count, err := fc.intOperand(inst.Words[5], false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("insertBits(%s, %s, %s)", strings.Join(args, ", "), offset, count), nil
	case spirv.OpBitFieldSExtract, spirv.OpBitFieldUExtract:
		signed := inst.Opcode == spirv.OpBitFieldSExtract
		base, err := fc.intOperand(inst.Words[2], signed)
		if err != nil {
			return "", err
		}
		offset, err := fc.intOperand(inst.Words[3], false)
		if err != nil {
			return "", err
		}
		count, err := fc.intOperand(inst.Words[4], false)
		if err != nil {
			return "", err
		}
		return fc.fit(fmt.Sprintf("extractBits(%s, %s, %s)", base, offset, count), resultType, signed)

	case spirv.OpCompositeConstruct:
		ty, err := w.typeName(resultType)
		if err != nil {
			return "", err
		}
		args, err := fc.exprs(inst.Words[2:])
		if err != nil {
			return "", err
		}
		return ty + "(" + strings.Join(args, ", ") + ")", nil
	case spirv.OpCompositeExtract:
		base, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		ty, _ := fc.typeOf(inst.Words[2])
		var sb strings.Builder
		sb.WriteString(base)
		for _, index := range inst.Words[3:] {
			if ty, err = fc.step(&sb, ty, index, false); err != nil {
				return "", err
			}
		}
		return sb.String(), nil
	case spirv.OpVectorExtractDynamic:
		base, err := fc.expr(inst.Words[2])
		if err != nil {
			return "", err
		}
		index, err := fc.expr(inst.Words[3])
		if err != nil {
			return "", err
		}
		return base + "[" + index + "]", nil
	case spirv.OpVectorShuffle:
		return fc.shuffle(inst)
	case spirv.OpArrayLength:
		base, err := fc.lvalue(inst.Words[2])
		if err != nil {
			return "", err
		}
		ty, _ := fc.typeOf(inst.Words[2])
		_, pointee, _ := w.pointee(ty)
		var sb strings.Builder
		sb.WriteString(base)
		if _, err := fc.step(&sb, pointee, inst.Words[3], false); err != nil {
			return "", err
		}
		return fmt.Sprintf("arrayLength(&%s)", sb.String()), nil
	}

	if inst.Opcode.IsImageSample() || isImageOp(inst.Opcode) {
		return fc.image(inst)
	}
	return "", errorf(inst.Opcode, id, "instruction is not supported")
}

func (fc *funcContext) exprs(ids []uint32) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		s, err := fc.expr(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (fc *funcContext) binary(op string, a, b uint32) (string, error) {
	x, err := fc.expr(a)
	if err != nil {
		return "", err
	}
	y, err := fc.expr(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", x, op, y), nil
}

func (fc *funcContext) call2(name string, a, b uint32) (string, error) {
	x, err := fc.expr(a)
	if err != nil {
		return "", err
	}
	y, err := fc.expr(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", name, x, y), nil
}

// intOperand renders an integer operand with the requested signedness,
// reinterpreting the bits when its type disagrees.
func (fc *funcContext) intOperand(id uint32, signed bool) (string, error) {
	s, err := fc.expr(id)
	if err != nil {
		return "", err
	}
	ty, _ := fc.typeOf(id)
	kind, _ := fc.w.scalarOf(ty)
	if (kind == kindSint) == signed || (kind != kindSint && kind != kindUint) {
		return s, nil
	}
	return fmt.Sprintf("bitcast<%s>(%s)", fc.w.intTypeName(ty, signed), s), nil
}

// fit reinterprets an integer expression of the given signedness as the
// result type.
func (fc *funcContext) fit(expr string, resultType uint32, signed bool) (string, error) {
	kind, _ := fc.w.scalarOf(resultType)
	if (kind == kindSint) == signed || (kind != kindSint && kind != kindUint) {
		return expr, nil
	}
	ty, err := fc.w.typeName(resultType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bitcast<%s>(%s)", ty, expr), nil
}

func (fc *funcContext) shift(inst *spirv.Instruction) (string, error) {
	resultType := inst.Words[0]
	kind, _ := fc.w.scalarOf(resultType)
	signed := kind == kindSint
	op := "<<"
	switch inst.Opcode {
	case spirv.OpShiftRightLogical:
		op, signed = ">>", false
	case spirv.OpShiftRightArithmetic:
		op, signed = ">>", true
	}
	base, err := fc.intOperand(inst.Words[2], signed)
	if err != nil {
		return "", err
	}
	amount, err := fc.intOperand(inst.Words[3], false)
	if err != nil {
		return "", err
	}
	return fc.fit(fmt.Sprintf("(%s %s %s)", base, op, amount), resultType, signed)
}

func (fc *funcContext) convert(inst *spirv.Instruction) (string, error) {
	resultType := inst.Words[0]
	var arg string
	var err error
	switch inst.Opcode {
	case spirv.OpConvertSToF, spirv.OpSConvert:
		arg, err = fc.intOperand(inst.Words[2], true)
	case spirv.OpConvertUToF, spirv.OpUConvert:
		arg, err = fc.intOperand(inst.Words[2], false)
	default:
		arg, err = fc.expr(inst.Words[2])
	}
	if err != nil {
		return "", err
	}
	switch inst.Opcode {
	case spirv.OpConvertFToS:
		return fc.fit(fmt.Sprintf("%s(%s)", fc.w.intTypeName(resultType, true), arg), resultType, true)
	case spirv.OpConvertFToU:
		return fc.fit(fmt.Sprintf("%s(%s)", fc.w.intTypeName(resultType, false), arg), resultType, false)
	}
	ty, err := fc.w.typeName(resultType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", ty, arg), nil
}

func (fc *funcContext) shuffle(inst *spirv.Instruction) (string, error) {
	a, b := inst.Words[2], inst.Words[3]
	components := inst.Words[4:]
	aType, _ := fc.typeOf(a)
	_, width := fc.w.scalarOf(aType)

	fromA, fromB := true, true
	for _, c := range components {
		if c == 0xFFFFFFFF {
			continue
		}
		if int(c) < width {
			fromB = false
		} else {
			fromA = false
		}
	}
	swizzle := func(id uint32, offset int) (string, error) {
		base, err := fc.expr(id)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, c := range components {
			i := 0
			if c != 0xFFFFFFFF {
				i = int(c) - offset
			}
			if i < 0 || i > 3 {
				return "", errorf(inst.Opcode, inst.Words[1], "shuffle component %d out of range", c)
			}
			sb.WriteByte("xyzw"[i])
		}
		return base + "." + sb.String(), nil
	}
	if fromA {
		return swizzle(a, 0)
	}
	if fromB {
		return swizzle(b, width)
	}

	ty, err := fc.w.typeName(inst.Words[0])
	if err != nil {
		return "", err
	}
	x, err := fc.expr(a)
	if err != nil {
		return "", err
	}
	y, err := fc.expr(b)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(components))
	for _, c := range components {
		switch {
		case c == 0xFFFFFFFF:
			parts = append(parts, x+".x")
		case int(c) < width:
			parts = append(parts, x+"."+string("xyzw"[c]))
		case int(c)-width < 4:
			parts = append(parts, y+"."+string("xyzw"[int(c)-width]))
		default:
			return "", errorf(inst.Opcode, inst.Words[1], "shuffle component %d out of range", c)
		}
	}
	return ty + "(" + strings.Join(parts, ", ") + ")", nil
}

func (fc *funcContext) extInst(inst *spirv.Instruction) (string, error) {
	if !fc.w.hasGLSLExt || inst.Words[2] != fc.w.glslExt {
		return "", errorf(inst.Opcode, inst.Words[1], "extended instruction set is not supported")
	}
	number := inst.Words[3]
	name, ok := glslFuncs[number]
	if !ok {
		return "", errorf(inst.Opcode, inst.Words[1], "GLSL.std.450 instruction %d is not supported", number)
	}
	args, err := fc.exprs(inst.Words[4:])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")), nil
}
