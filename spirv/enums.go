// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"fmt"
	"sort"
	"strings"
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Common capabilities
const (
	CapabilityMatrix            Capability = 0
	CapabilityShader            Capability = 1
	CapabilityFloat16           Capability = 9
	CapabilityFloat64           Capability = 10
	CapabilityInt64             Capability = 11
	CapabilityInt16             Capability = 22
	CapabilityInt8              Capability = 39
	CapabilitySampled1D         Capability = 43
	CapabilityImage1D           Capability = 44
	CapabilityImageQuery        Capability = 50
	CapabilityDerivativeControl Capability = 51
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNoPerspective Decoration = 13
	DecorationFlat          Decoration = 14
	DecorationCentroid      Decoration = 16
	DecorationSample        Decoration = 17
	DecorationInvariant     Decoration = 18
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationComponent     Decoration = 31
	DecorationIndex         Decoration = 32
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn represents a SPIR-V built-in variable.
type BuiltIn uint32

// Built-ins reachable from vertex and fragment shaders.
const (
	BuiltInPosition      BuiltIn = 0
	BuiltInPointSize     BuiltIn = 1
	BuiltInFragCoord     BuiltIn = 15
	BuiltInFrontFacing   BuiltIn = 17
	BuiltInSampleID      BuiltIn = 18
	BuiltInSampleMask    BuiltIn = 20
	BuiltInFragDepth     BuiltIn = 22
	BuiltInVertexIndex   BuiltIn = 42
	BuiltInInstanceIndex BuiltIn = 43
)

// ExecutionModel represents a SPIR-V execution model.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Common execution modes
const (
	ExecutionModeOriginUpperLeft    ExecutionMode = 7
	ExecutionModeEarlyFragmentTests ExecutionMode = 9
	ExecutionModeDepthReplacing     ExecutionMode = 12
	ExecutionModeLocalSize          ExecutionMode = 17
)

// Dim represents an image dimensionality.
type Dim uint32

// Image dimensions
const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)

// ImageFormat represents a storage image format.
type ImageFormat uint32

// Image operand mask bits.
const (
	ImageOperandsBias         uint32 = 0x1
	ImageOperandsLod          uint32 = 0x2
	ImageOperandsGrad         uint32 = 0x4
	ImageOperandsConstOffset  uint32 = 0x8
	ImageOperandsOffset       uint32 = 0x10
	ImageOperandsConstOffsets uint32 = 0x20
	ImageOperandsSample       uint32 = 0x40
	ImageOperandsMinLod       uint32 = 0x80
)

// GLSL.std.450 extended instruction set name.
const GLSLStd450 = "GLSL.std.450"

// EnumKind identifies a named operand enumeration.
type EnumKind uint8

// Operand enumerations known to the grammar.
const (
	EnumCapability EnumKind = iota
	EnumStorageClass
	EnumDecoration
	EnumBuiltIn
	EnumExecutionModel
	EnumExecutionMode
	EnumDim
	EnumImageFormat
	EnumAccessQualifier
	EnumAddressingModel
	EnumMemoryModel
	EnumSourceLanguage
	EnumSamplerAddressingMode
	EnumSamplerFilterMode
	EnumFunctionControl
	EnumSelectionControl
	EnumLoopControl
	EnumImageOperands
	EnumMemoryAccess
)

// enumTable maps values of one enumeration to names and back. Mask tables
// print their set bits joined with '|'.
type enumTable struct {
	names  map[uint32]string
	values map[string]uint32
	mask   bool
}

func newEnumTable(mask bool, names map[uint32]string) *enumTable {
	t := &enumTable{names: names, values: make(map[string]uint32, len(names)), mask: mask}
	for v, n := range names {
		t.values[n] = v
	}
	return t
}

var enumTables = map[EnumKind]*enumTable{
	EnumCapability: newEnumTable(false, map[uint32]string{
		0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
		4: "Addresses", 5: "Linkage", 6: "Kernel", 7: "Vector16",
		8: "Float16Buffer", 9: "Float16", 10: "Float64", 11: "Int64",
		12: "Int64Atomics", 13: "ImageBasic", 14: "ImageReadWrite", 15: "ImageMipmap",
		17: "Pipes", 18: "Groups", 19: "DeviceEnqueue", 20: "LiteralSampler",
		21: "AtomicStorage", 22: "Int16", 23: "TessellationPointSize",
		24: "GeometryPointSize", 25: "ImageGatherExtended", 27: "StorageImageMultisample",
		28: "UniformBufferArrayDynamicIndexing", 29: "SampledImageArrayDynamicIndexing",
		30: "StorageBufferArrayDynamicIndexing", 31: "StorageImageArrayDynamicIndexing",
		32: "ClipDistance", 33: "CullDistance", 34: "ImageCubeArray",
		35: "SampleRateShading", 36: "ImageRect", 37: "SampledRect",
		38: "GenericPointer", 39: "Int8", 40: "InputAttachment",
		41: "SparseResidency", 42: "MinLod", 43: "Sampled1D", 44: "Image1D",
		45: "SampledCubeArray", 46: "SampledBuffer", 47: "ImageBuffer",
		48: "ImageMSArray", 49: "StorageImageExtendedFormats",
		50: "ImageQuery", 51: "DerivativeControl", 52: "InterpolationFunction",
		53: "TransformFeedback", 54: "GeometryStreams", 55: "StorageImageReadWithoutFormat",
		56: "StorageImageWriteWithoutFormat", 57: "MultiViewport",
		61: "GroupNonUniform", 4427: "DrawParameters", 4439: "MultiView",
	}),
	EnumStorageClass: newEnumTable(false, map[uint32]string{
		0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
		4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
		8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
		12: "StorageBuffer",
	}),
	EnumDecoration: newEnumTable(false, map[uint32]string{
		0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
		4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
		8: "GLSLShared", 9: "GLSLPacked", 10: "CPacked", 11: "BuiltIn",
		13: "NoPerspective", 14: "Flat", 15: "Patch", 16: "Centroid",
		17: "Sample", 18: "Invariant", 19: "Restrict", 20: "Aliased",
		21: "Volatile", 22: "Constant", 23: "Coherent", 24: "NonWritable",
		25: "NonReadable", 26: "Uniform", 28: "SaturatedConversion",
		29: "Stream", 30: "Location", 31: "Component", 32: "Index",
		33: "Binding", 34: "DescriptorSet", 35: "Offset", 36: "XfbBuffer",
		37: "XfbStride", 38: "FuncParamAttr", 39: "FPRoundingMode",
		40: "FPFastMathMode", 41: "LinkageAttributes", 42: "NoContraction",
		43: "InputAttachmentIndex", 44: "Alignment",
	}),
	EnumBuiltIn: newEnumTable(false, map[uint32]string{
		0: "Position", 1: "PointSize", 3: "ClipDistance", 4: "CullDistance",
		5: "VertexId", 6: "InstanceId", 7: "PrimitiveId", 8: "InvocationId",
		9: "Layer", 10: "ViewportIndex", 11: "TessLevelOuter", 12: "TessLevelInner",
		13: "TessCoord", 14: "PatchVertices", 15: "FragCoord", 16: "PointCoord",
		17: "FrontFacing", 18: "SampleId", 19: "SamplePosition", 20: "SampleMask",
		22: "FragDepth", 23: "HelperInvocation", 24: "NumWorkgroups",
		25: "WorkgroupSize", 26: "WorkgroupId", 27: "LocalInvocationId",
		28: "GlobalInvocationId", 29: "LocalInvocationIndex",
		42: "VertexIndex", 43: "InstanceIndex",
	}),
	EnumExecutionModel: newEnumTable(false, map[uint32]string{
		0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
		3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
	}),
	EnumExecutionMode: newEnumTable(false, map[uint32]string{
		0: "Invocations", 1: "SpacingEqual", 2: "SpacingFractionalEven",
		3: "SpacingFractionalOdd", 4: "VertexOrderCw", 5: "VertexOrderCcw",
		6: "PixelCenterInteger", 7: "OriginUpperLeft", 8: "OriginLowerLeft",
		9: "EarlyFragmentTests", 10: "PointMode", 11: "Xfb", 12: "DepthReplacing",
		14: "DepthGreater", 15: "DepthLess", 16: "DepthUnchanged",
		17: "LocalSize", 18: "LocalSizeHint", 19: "InputPoints", 20: "InputLines",
		21: "InputLinesAdjacency", 22: "Triangles", 23: "InputTrianglesAdjacency",
		24: "Quads", 25: "Isolines", 26: "OutputVertices", 27: "OutputPoints",
		28: "OutputLineStrip", 29: "OutputTriangleStrip", 30: "VecTypeHint",
		31: "ContractionOff",
	}),
	EnumDim: newEnumTable(false, map[uint32]string{
		0: "1D", 1: "2D", 2: "3D", 3: "Cube", 4: "Rect", 5: "Buffer", 6: "SubpassData",
	}),
	EnumImageFormat: newEnumTable(false, map[uint32]string{
		0: "Unknown", 1: "Rgba32f", 2: "Rgba16f", 3: "R32f", 4: "Rgba8",
		5: "Rgba8Snorm", 6: "Rg32f", 7: "Rg16f", 8: "R11fG11fB10f", 9: "R16f",
		10: "Rgba16", 11: "Rgb10A2", 12: "Rg16", 13: "Rg8", 14: "R16", 15: "R8",
		16: "Rgba16Snorm", 17: "Rg16Snorm", 18: "Rg8Snorm", 19: "R16Snorm",
		20: "R8Snorm", 21: "Rgba32i", 22: "Rgba16i", 23: "Rgba8i", 24: "R32i",
		25: "Rg32i", 26: "Rg16i", 27: "Rg8i", 28: "R16i", 29: "R8i",
		30: "Rgba32ui", 31: "Rgba16ui", 32: "Rgba8ui", 33: "R32ui",
		34: "Rgb10a2ui", 35: "Rg32ui", 36: "Rg16ui", 37: "Rg8ui", 38: "R16ui",
		39: "R8ui",
	}),
	EnumAccessQualifier: newEnumTable(false, map[uint32]string{
		0: "ReadOnly", 1: "WriteOnly", 2: "ReadWrite",
	}),
	EnumAddressingModel: newEnumTable(false, map[uint32]string{
		0: "Logical", 1: "Physical32", 2: "Physical64", 5348: "PhysicalStorageBuffer64",
	}),
	EnumMemoryModel: newEnumTable(false, map[uint32]string{
		0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan",
	}),
	EnumSourceLanguage: newEnumTable(false, map[uint32]string{
		0: "Unknown", 1: "ESSL", 2: "GLSL", 3: "OpenCL_C", 4: "OpenCL_CPP", 5: "HLSL",
		6: "CPP_for_OpenCL", 7: "SYCL", 8: "HERO_C", 9: "NZSL", 10: "WGSL",
	}),
	EnumSamplerAddressingMode: newEnumTable(false, map[uint32]string{
		0: "None", 1: "ClampToEdge", 2: "Clamp", 3: "Repeat", 4: "RepeatMirrored",
	}),
	EnumSamplerFilterMode: newEnumTable(false, map[uint32]string{
		0: "Nearest", 1: "Linear",
	}),
	EnumFunctionControl: newEnumTable(true, map[uint32]string{
		0x1: "Inline", 0x2: "DontInline", 0x4: "Pure", 0x8: "Const",
	}),
	EnumSelectionControl: newEnumTable(true, map[uint32]string{
		0x1: "Flatten", 0x2: "DontFlatten",
	}),
	EnumLoopControl: newEnumTable(true, map[uint32]string{
		0x1: "Unroll", 0x2: "DontUnroll", 0x4: "DependencyInfinite",
		0x8: "DependencyLength",
	}),
	EnumImageOperands: newEnumTable(true, map[uint32]string{
		0x1: "Bias", 0x2: "Lod", 0x4: "Grad", 0x8: "ConstOffset",
		0x10: "Offset", 0x20: "ConstOffsets", 0x40: "Sample", 0x80: "MinLod",
	}),
	EnumMemoryAccess: newEnumTable(true, map[uint32]string{
		0x1: "Volatile", 0x2: "Aligned", 0x4: "Nontemporal",
	}),
}

// EnumName returns the mnemonic for value in the given enumeration.
// Unknown values are printed as decimal numbers.
func EnumName(kind EnumKind, value uint32) string {
	t := enumTables[kind]
	if t == nil {
		return fmt.Sprint(value)
	}
	if !t.mask {
		if n, ok := t.names[value]; ok {
			return n
		}
		return fmt.Sprint(value)
	}
	if value == 0 {
		return "None"
	}
	bits := make([]uint32, 0, len(t.names))
	for bit := range t.names {
		bits = append(bits, bit)
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	var parts []string
	rest := value
	for _, bit := range bits {
		if value&bit != 0 {
			parts = append(parts, t.names[bit])
			rest &^= bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", rest))
	}
	return strings.Join(parts, "|")
}

// LookupEnum parses a mnemonic for the given enumeration. Mask enumerations
// accept "None" and '|'-joined names; every enumeration accepts decimal and
// 0x-prefixed numbers.
func LookupEnum(kind EnumKind, name string) (uint32, bool) {
	t := enumTables[kind]
	if t == nil {
		return 0, false
	}
	if v, ok := parseNumber(name); ok {
		return v, true
	}
	if !t.mask {
		v, ok := t.values[name]
		return v, ok
	}
	if name == "None" {
		return 0, true
	}
	var value uint32
	for _, part := range strings.Split(name, "|") {
		v, ok := t.values[part]
		if !ok {
			if n, isNum := parseNumber(part); isNum {
				v = n
			} else {
				return 0, false
			}
		}
		value |= v
	}
	return value, true
}

func parseNumber(s string) (uint32, bool) {
	var v uint64
	if strings.HasPrefix(s, "0x") {
		if _, err := fmt.Sscanf(s[2:], "%x", &v); err != nil || len(s) == 2 {
			return 0, false
		}
		return uint32(v), true
	}
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + uint64(r-'0')
		if v > 0xFFFFFFFF {
			return 0, false
		}
	}
	return uint32(v), true
}

func (c Capability) String() string { return EnumName(EnumCapability, uint32(c)) }
func (s StorageClass) String() string { return EnumName(EnumStorageClass, uint32(s)) }
func (d Decoration) String() string { return EnumName(EnumDecoration, uint32(d)) }
func (b BuiltIn) String() string { return EnumName(EnumBuiltIn, uint32(b)) }
func (m ExecutionModel) String() string { return EnumName(EnumExecutionModel, uint32(m)) }
func (m ExecutionMode) String() string { return EnumName(EnumExecutionMode, uint32(m)) }
func (d Dim) String() string { return EnumName(EnumDim, uint32(d)) }
func (f ImageFormat) String() string { return EnumName(EnumImageFormat, uint32(f)) }
