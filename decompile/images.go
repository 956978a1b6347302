// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package decompile

import (
	"fmt"
	"strings"

	"github.com/gogpu/spvtrace/spirv"
)

// imageInfo describes the image type an instruction operates on.
type imageInfo struct {
	dim       spirv.Dim
	depth     bool
	arrayed   bool
	ms        bool
	storage   bool
	floatType bool
}

// imageOperands are the optional operands that follow image instructions.
// Absent operands are zero.
type imageOperands struct {
	bias, lod, gradX, gradY, offset, sample uint32
}

func isImageOp(op spirv.OpCode) bool {
	switch op {
	case spirv.OpImageFetch, spirv.OpImageGather, spirv.OpImageDrefGather, spirv.OpImageRead,
		spirv.OpImageQuerySizeLod, spirv.OpImageQuerySize, spirv.OpImageQueryLod,
		spirv.OpImageQueryLevels, spirv.OpImageQuerySamples:
		return true
	}
	return false
}

// imageOf returns the image type behind an image or sampled image operand.
func (fc *funcContext) imageOf(id uint32) (imageInfo, error) {
	ty, _ := fc.typeOf(id)
	def, ok := fc.w.defs[ty]
	if ok && def.Opcode == spirv.OpTypeSampledImage {
		def, ok = fc.w.defs[def.Words[1]]
	}
	if !ok || def.Opcode != spirv.OpTypeImage {
		return imageInfo{}, errorf(spirv.OpNop, id, "operand is not an image")
	}
	kind, _ := fc.w.scalarOf(def.Words[1])
	return imageInfo{
		dim:       spirv.Dim(def.Words[2]),
		depth:     def.Words[3] == 1,
		arrayed:   def.Words[4] == 1,
		ms:        def.Words[5] == 1,
		storage:   def.Words[6] == 2,
		floatType: kind == kindFloat,
	}, nil
}

func (info imageInfo) coordinateCount() int {
	switch info.dim {
	case spirv.Dim1D, spirv.DimBuffer:
		return 1
	case spirv.Dim3D, spirv.DimCube:
		return 3
	}
	return 2
}

func parseImageOperands(op spirv.OpCode, words []uint32) (imageOperands, error) {
	var out imageOperands
	if len(words) == 0 {
		return out, nil
	}
	mask, args := words[0], words[1:]
	next := func() (uint32, error) {
		if len(args) == 0 {
			return 0, errorf(op, 0, "image operands are truncated")
		}
		v := args[0]
		args = args[1:]
		return v, nil
	}
	var err error
	for _, bit := range []uint32{
		spirv.ImageOperandsBias, spirv.ImageOperandsLod, spirv.ImageOperandsGrad,
		spirv.ImageOperandsConstOffset, spirv.ImageOperandsOffset, spirv.ImageOperandsConstOffsets,
		spirv.ImageOperandsSample, spirv.ImageOperandsMinLod,
	} {
		if mask&bit == 0 {
			continue
		}
		switch bit {
		case spirv.ImageOperandsBias:
			out.bias, err = next()
		case spirv.ImageOperandsLod:
			out.lod, err = next()
		case spirv.ImageOperandsGrad:
			if out.gradX, err = next(); err == nil {
				out.gradY, err = next()
			}
		case spirv.ImageOperandsConstOffset, spirv.ImageOperandsOffset:
			out.offset, err = next()
		case spirv.ImageOperandsSample:
			out.sample, err = next()
		default:
			return out, errorf(op, 0, "image operand 0x%x is not supported", bit)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// coordinates splits an arrayed coordinate into the coordinate and the
// array layer WGSL passes separately.
func (fc *funcContext) coordinates(coord uint32, info imageInfo, sampling bool) ([]string, error) {
	c, err := fc.expr(coord)
	if err != nil {
		return nil, err
	}
	if !info.arrayed {
		return []string{c}, nil
	}
	n := info.coordinateCount()
	coords := c + "." + "xyz"[:n]
	layer := c + "." + string("xyzw"[n])
	if sampling {
		layer = "i32(" + layer + ")"
	}
	return []string{coords, layer}, nil
}

func (fc *funcContext) exprOf(id uint32, out *[]string) error {
	s, err := fc.expr(id)
	if err != nil {
		return err
	}
	*out = append(*out, s)
	return nil
}

// widenDepth turns the scalar result of a depth texture read into the
// four-component value SPIR-V produces.
func (fc *funcContext) widenDepth(expr string, resultType uint32) string {
	if _, n := fc.w.scalarOf(resultType); n == 4 {
		return fmt.Sprintf("vec4<f32>(%s, 0.0f, 0.0f, 0.0f)", expr)
	}
	return expr
}

// image renders texture sampling, loads and queries.
func (fc *funcContext) image(inst *spirv.Instruction) (string, error) {
	op := inst.Opcode
	id, resultType := inst.Words[1], inst.Words[0]
	switch op {
	case spirv.OpImageSampleProjImplicitLod, spirv.OpImageSampleProjExplicitLod,
		spirv.OpImageSampleProjDrefImplicitLod, spirv.OpImageSampleProjDrefExplicitLod:
		return "", errorf(op, id, "projective sampling is not supported")
	case spirv.OpImageQueryLod:
		return "", errorf(op, id, "level of detail queries are not supported")
	case spirv.OpImageQuerySizeLod, spirv.OpImageQuerySize, spirv.OpImageQueryLevels, spirv.OpImageQuerySamples:
		return fc.imageQuery(inst)
	}

	info, err := fc.imageOf(inst.Words[2])
	if err != nil {
		return "", err
	}
	texture, sampler, err := fc.handles(inst.Words[2])
	if err != nil {
		return "", err
	}

	dref := op == spirv.OpImageSampleDrefImplicitLod || op == spirv.OpImageSampleDrefExplicitLod ||
		op == spirv.OpImageDrefGather
	rest := inst.Words[4:]
	var extra uint32
	if dref || op == spirv.OpImageGather {
		if len(rest) == 0 {
			return "", errorf(op, id, "missing operand")
		}
		extra, rest = rest[0], rest[1:]
	}
	operands, err := parseImageOperands(op, rest)
	if err != nil {
		return "", err
	}
	sampling := op.IsImageSample() || op == spirv.OpImageGather || op == spirv.OpImageDrefGather
	coords, err := fc.coordinates(inst.Words[3], info, sampling)
	if err != nil {
		return "", err
	}

	var name string
	var args []string
	switch op {
	case spirv.OpImageFetch, spirv.OpImageRead:
		name = "textureLoad"
		args = append([]string{texture}, coords...)
		switch {
		case info.storage || op == spirv.OpImageRead:
		case info.ms:
			if operands.sample == 0 {
				return "", errorf(op, id, "multisampled fetch without a sample index")
			}
			if err := fc.exprOf(operands.sample, &args); err != nil {
				return "", err
			}
		case operands.lod != 0:
			if err := fc.exprOf(operands.lod, &args); err != nil {
				return "", err
			}
		default:
			args = append(args, "0i")
		}
		call := fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
		if info.depth {
			return fc.widenDepth(call, resultType), nil
		}
		return call, nil

	case spirv.OpImageGather, spirv.OpImageDrefGather:
		name = "textureGather"
		if op == spirv.OpImageGather && !info.depth {
			component, ok := fc.w.constantWord(extra)
			if !ok {
				return "", errorf(op, id, "gather component is not a constant")
			}
			args = append(args, fmt.Sprintf("%d", component))
		}
		args = append(args, texture, sampler)
		args = append(args, coords...)
		if dref {
			name = "textureGatherCompare"
			if err := fc.exprOf(extra, &args); err != nil {
				return "", err
			}
		}

	case spirv.OpImageSampleImplicitLod, spirv.OpImageSampleDrefImplicitLod:
		name = "textureSample"
		args = append([]string{texture, sampler}, coords...)
		switch {
		case dref:
			name = "textureSampleCompare"
			if err := fc.exprOf(extra, &args); err != nil {
				return "", err
			}
		case operands.bias != 0:
			name = "textureSampleBias"
			if err := fc.exprOf(operands.bias, &args); err != nil {
				return "", err
			}
		}

	case spirv.OpImageSampleExplicitLod, spirv.OpImageSampleDrefExplicitLod:
		args = append([]string{texture, sampler}, coords...)
		switch {
		case dref:
			name = "textureSampleCompareLevel"
			if err := fc.exprOf(extra, &args); err != nil {
				return "", err
			}
		case operands.gradX != 0:
			name = "textureSampleGrad"
			if err := fc.exprOf(operands.gradX, &args); err != nil {
				return "", err
			}
			if err := fc.exprOf(operands.gradY, &args); err != nil {
				return "", err
			}
		case operands.lod != 0:
			name = "textureSampleLevel"
			lod, err := fc.expr(operands.lod)
			if err != nil {
				return "", err
			}
			if info.depth {
				lod = "i32(" + lod + ")"
			}
			args = append(args, lod)
		default:
			return "", errorf(op, id, "explicit sampling without a level of detail")
		}
	default:
		return "", errorf(op, id, "instruction is not supported")
	}

	if operands.offset != 0 {
		if err := fc.exprOf(operands.offset, &args); err != nil {
			return "", err
		}
	}
	call := fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	if info.depth && !dref && op.IsImageSample() {
		return fc.widenDepth(call, resultType), nil
	}
	return call, nil
}

func (fc *funcContext) imageQuery(inst *spirv.Instruction) (string, error) {
	resultType := inst.Words[0]
	info, err := fc.imageOf(inst.Words[2])
	if err != nil {
		return "", err
	}
	texture, _, err := fc.handles(inst.Words[2])
	if err != nil {
		return "", err
	}

	var expr, natural string
	switch inst.Opcode {
	case spirv.OpImageQueryLevels:
		expr, natural = fmt.Sprintf("textureNumLevels(%s)", texture), "u32"
	case spirv.OpImageQuerySamples:
		expr, natural = fmt.Sprintf("textureNumSamples(%s)", texture), "u32"
	default:
		args := []string{texture}
		if inst.Opcode == spirv.OpImageQuerySizeLod {
			if err := fc.exprOf(inst.Words[3], &args); err != nil {
				return "", err
			}
		}
		n := info.coordinateCount()
		if info.dim == spirv.DimCube {
			n = 2
		}
		expr = fmt.Sprintf("textureDimensions(%s)", strings.Join(args, ", "))
		if info.arrayed {
			n++
			expr = fmt.Sprintf("vec%d<u32>(%s, textureNumLayers(%s))", n, expr, texture)
		}
		natural = "u32"
		if n > 1 {
			natural = fmt.Sprintf("vec%d<u32>", n)
		}
	}

	ty, err := fc.w.typeName(resultType)
	if err != nil {
		return "", err
	}
	if ty != natural {
		return fmt.Sprintf("%s(%s)", ty, expr), nil
	}
	return expr, nil
}

// imageWrite renders OpImageWrite as a textureStore call.
func (fc *funcContext) imageWrite(inst *spirv.Instruction) (string, error) {
	info, err := fc.imageOf(inst.Words[0])
	if err != nil {
		return "", err
	}
	texture, _, err := fc.handles(inst.Words[0])
	if err != nil {
		return "", err
	}
	coords, err := fc.coordinates(inst.Words[1], info, false)
	if err != nil {
		return "", err
	}
	args := append([]string{texture}, coords...)
	if err := fc.exprOf(inst.Words[2], &args); err != nil {
		return "", err
	}
	return fmt.Sprintf("textureStore(%s)", strings.Join(args, ", ")), nil
}
