// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// scalarKind classifies the component type of scalars and vectors.
type scalarKind uint8

const (
	kindNone scalarKind = iota
	kindBool
	kindSint
	kindUint
	kindFloat
)

// storageFormats maps SPIR-V image formats to WGSL texel formats.
var storageFormats = map[uint32]string{
	1:  "rgba32float",
	2:  "rgba16float",
	3:  "r32float",
	4:  "rgba8unorm",
	5:  "rgba8snorm",
	6:  "rg32float",
	21: "rgba32sint",
	22: "rgba16sint",
	23: "rgba8sint",
	24: "r32sint",
	25: "rg32sint",
	30: "rgba32uint",
	31: "rgba16uint",
	32: "rgba8uint",
	33: "r32uint",
	35: "rg32uint",
}

func (w *writer) typeInst(id uint32) (*spirv.Instruction, error) {
	inst, ok := w.defs[id]
	if !ok || !inst.Opcode.IsType() {
		return nil, errorf(spirv.OpNop, id, "not a type")
	}
	return inst, nil
}

// typeName returns the WGSL spelling of a type.
func (w *writer) typeName(id uint32) (string, error) {
	if name, ok := w.typeNames[id]; ok {
		return name, nil
	}
	inst, err := w.typeInst(id)
	if err != nil {
		return "", err
	}
	if w.resolving[id] {
		return "", errorf(inst.Opcode, id, "type refers to itself")
	}
	w.resolving[id] = true
	defer delete(w.resolving, id)
	var name string
	switch inst.Opcode {
	case spirv.OpTypeBool:
		name = "bool"
	case spirv.OpTypeInt:
		if inst.Words[1] != 32 {
			return "", errorf(inst.Opcode, id, "%d-bit integers are not supported", inst.Words[1])
		}
		name = "u32"
		if inst.Words[2] != 0 {
			name = "i32"
		}
	case spirv.OpTypeFloat:
		if inst.Words[1] != 32 {
			return "", errorf(inst.Opcode, id, "%d-bit floats are not supported", inst.Words[1])
		}
		name = "f32"
	case spirv.OpTypeVector:
		comp, err := w.typeName(inst.Words[1])
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("vec%d<%s>", inst.Words[2], comp)
	case spirv.OpTypeMatrix:
		col, err := w.typeInst(inst.Words[1])
		if err != nil {
			return "", err
		}
		comp, err := w.typeName(col.Words[1])
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("mat%dx%d<%s>", inst.Words[2], col.Words[2], comp)
	case spirv.OpTypeArray:
		elem, err := w.typeName(inst.Words[1])
		if err != nil {
			return "", err
		}
		n, ok := w.constantWord(inst.Words[2])
		if !ok {
			return "", errorf(inst.Opcode, id, "array length is not a constant")
		}
		name = fmt.Sprintf("array<%s, %d>", elem, n)
	case spirv.OpTypeRuntimeArray:
		elem, err := w.typeName(inst.Words[1])
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("array<%s>", elem)
	case spirv.OpTypeStruct:
		s, ok := w.structs[id]
		if !ok {
			return "", errorf(inst.Opcode, id, "struct is not declared")
		}
		name = s.name
	case spirv.OpTypeImage:
		return w.imageTypeName(inst, 0)
	case spirv.OpTypeSampler:
		name = "sampler"
	default:
		return "", errorf(inst.Opcode, id, "type has no WGSL spelling")
	}
	w.typeNames[id] = name
	return name, nil
}

// imageTypeName spells an image type. variable, when non-zero, is the
// storage image variable whose decorations select the access mode.
func (w *writer) imageTypeName(inst *spirv.Instruction, variable uint32) (string, error) {
	id := inst.Words[0]
	dim := spirv.Dim(inst.Words[2])
	depth, arrayed, ms, sampled := inst.Words[3] == 1, inst.Words[4] == 1, inst.Words[5] == 1, inst.Words[6]

	var shape string
	switch {
	case dim == spirv.Dim1D && !arrayed:
		shape = "1d"
	case dim == spirv.Dim2D && !arrayed && !ms:
		shape = "2d"
	case dim == spirv.Dim2D && arrayed && !ms:
		shape = "2d_array"
	case dim == spirv.Dim2D && !arrayed && ms:
		shape = "multisampled_2d"
	case dim == spirv.Dim3D && !arrayed:
		shape = "3d"
	case dim == spirv.DimCube && !arrayed:
		shape = "cube"
	case dim == spirv.DimCube && arrayed:
		shape = "cube_array"
	default:
		return "", errorf(inst.Opcode, id, "image dimensionality %s is not supported", dim)
	}

	if sampled == 2 {
		format, ok := storageFormats[inst.Words[7]]
		if !ok {
			return "", errorf(inst.Opcode, id, "storage format %s is not supported", spirv.ImageFormat(inst.Words[7]))
		}
		access := "read_write"
		if _, ok := w.m.Decoration(variable, spirv.DecorationNonWritable); ok && variable != 0 {
			access = "read"
		} else if _, ok := w.m.Decoration(variable, spirv.DecorationNonReadable); ok && variable != 0 {
			access = "write"
		}
		return fmt.Sprintf("texture_storage_%s<%s, %s>", shape, format, access), nil
	}
	if depth {
		if shape == "1d" || shape == "3d" {
			return "", errorf(inst.Opcode, id, "depth image dimensionality %s is not supported", dim)
		}
		return "texture_depth_" + shape, nil
	}
	comp, err := w.typeName(inst.Words[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("texture_%s<%s>", shape, comp), nil
}

// scalarOf returns the component kind and count of a scalar or vector type.
func (w *writer) scalarOf(id uint32) (scalarKind, int) {
	inst, ok := w.defs[id]
	if !ok {
		return kindNone, 0
	}
	switch inst.Opcode {
	case spirv.OpTypeBool:
		return kindBool, 1
	case spirv.OpTypeInt:
		if inst.Words[2] != 0 {
			return kindSint, 1
		}
		return kindUint, 1
	case spirv.OpTypeFloat:
		return kindFloat, 1
	case spirv.OpTypeVector:
		k, _ := w.scalarOf(inst.Words[1])
		return k, int(inst.Words[2])
	}
	return kindNone, 0
}

// intTypeName spells a scalar or vector integer type with the given
// signedness and the shape of type id.
func (w *writer) intTypeName(id uint32, signed bool) string {
	scalar := "u32"
	if signed {
		scalar = "i32"
	}
	if _, n := w.scalarOf(id); n > 1 {
		return fmt.Sprintf("vec%d<%s>", n, scalar)
	}
	return scalar
}

// constantWord returns the first literal word of a scalar integer constant.
func (w *writer) constantWord(id uint32) (uint32, bool) {
	inst, ok := w.defs[id]
	if !ok || (inst.Opcode != spirv.OpConstant && inst.Opcode != spirv.OpSpecConstant) || len(inst.Words) != 3 {
		return 0, false
	}
	return inst.Words[2], true
}

// literal renders a constant, specialization constant or undef as a WGSL expression.
func (w *writer) literal(id uint32) (string, error) {
	inst, ok := w.defs[id]
	if !ok {
		return "", errorf(spirv.OpNop, id, "undefined constant")
	}
	switch inst.Opcode {
	case spirv.OpConstantTrue, spirv.OpSpecConstantTrue:
		return "true", nil
	case spirv.OpConstantFalse, spirv.OpSpecConstantFalse:
		return "false", nil
	case spirv.OpConstant, spirv.OpSpecConstant:
		return w.scalarLiteral(inst.Words[0], inst.Words[2:])
	case spirv.OpConstantComposite, spirv.OpSpecConstantComposite:
		ty, err := w.typeName(inst.Words[0])
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(inst.Words)-2)
		for _, c := range inst.Words[2:] {
			s, err := w.literal(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return ty + "(" + strings.Join(parts, ", ") + ")", nil
	case spirv.OpConstantNull, spirv.OpUndef:
		return w.zeroValue(inst.Words[0])
	}
	return "", errorf(inst.Opcode, id, "not a constant")
}

func (w *writer) scalarLiteral(ty uint32, words []uint32) (string, error) {
	if len(words) != 1 {
		return "", errorf(spirv.OpConstant, ty, "only 32-bit literals are supported")
	}
	bits := words[0]
	kind, _ := w.scalarOf(ty)
	switch kind {
	case kindSint:
		v := int32(bits)
		switch {
		case v == math.MinInt32:
			return "bitcast<i32>(2147483648u)", nil
		case v < 0:
			return fmt.Sprintf("(%di)", v), nil
		}
		return fmt.Sprintf("%di", v), nil
	case kindUint:
		return fmt.Sprintf("%du", bits), nil
	case kindFloat:
		return floatLiteral(bits), nil
	}
	return "", errorf(spirv.OpConstant, ty, "literal of non-scalar type")
}

// floatLiteral renders f32 bits. Values without a finite decimal form are
// rebuilt from their bits.
func floatLiteral(bits uint32) string {
	f := math.Float32frombits(bits)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return fmt.Sprintf("bitcast<f32>(0x%08xu)", bits)
	}
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	mantissa, exponent, hasExp := strings.Cut(s, "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	s = mantissa
	if hasExp {
		s += "e" + exponent
	}
	s += "f"
	if f < 0 || (f == 0 && math.Signbit(float64(f))) {
		if !strings.HasPrefix(s, "-") {
			s = "-" + s
		}
		return "(" + s + ")"
	}
	return s
}

// zeroValue renders the zero value of a constructible type.
func (w *writer) zeroValue(id uint32) (string, error) {
	inst, err := w.typeInst(id)
	if err != nil {
		return "", err
	}
	switch inst.Opcode {
	case spirv.OpTypeBool:
		return "false", nil
	case spirv.OpTypeInt, spirv.OpTypeFloat:
		if _, err := w.typeName(id); err != nil {
			return "", err
		}
		return w.scalarLiteral(id, []uint32{0})
	}

	ty, err := w.typeName(id)
	if err != nil {
		return "", err
	}
	var elem uint32
	var count int
	switch inst.Opcode {
	case spirv.OpTypeVector, spirv.OpTypeMatrix:
		elem, count = inst.Words[1], int(inst.Words[2])
	case spirv.OpTypeArray:
		n, _ := w.constantWord(inst.Words[2])
		elem, count = inst.Words[1], int(n)
	case spirv.OpTypeStruct:
		parts := make([]string, 0, len(inst.Words)-1)
		for _, member := range inst.Words[1:] {
			z, err := w.zeroValue(member)
			if err != nil {
				return "", err
			}
			parts = append(parts, z)
		}
		return ty + "(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", errorf(inst.Opcode, id, "type has no zero value")
	}
	z, err := w.zeroValue(elem)
	if err != nil {
		return "", err
	}
	parts := make([]string, count)
	for i := range parts {
		parts[i] = z
	}
	return ty + "(" + strings.Join(parts, ", ") + ")", nil
}
