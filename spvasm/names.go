// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/spvtrace/spirv"
)

// nameMapper assigns the printed names of ids. Names derive only from OpName
// strings and from type and constant structure, never from id numbers, so a
// disassembly keeps its names after reassembly renumbers the ids.
type nameMapper struct {
	names map[uint32]string
	used  map[string]bool
}

func newNameMapper(m *spirv.Module, friendly bool) *nameMapper {
	n := &nameMapper{
		names: make(map[uint32]string),
		used:  make(map[string]bool),
	}
	if !friendly {
		return n
	}
	for _, inst := range m.DebugNames {
		if inst.Opcode != spirv.OpName || len(inst.Words) < 2 {
			continue
		}
		if _, done := n.names[inst.Words[0]]; done {
			continue
		}
		n.assign(inst.Words[0], Sanitize(inst.StringAt(1)))
	}

	widths := make(map[uint32]intInfo)
	for i := range m.Globals {
		inst := &m.Globals[i]
		id, ok := inst.ResultID()
		if !ok {
			continue
		}
		if inst.Opcode == spirv.OpTypeInt && len(inst.Words) >= 3 {
			widths[id] = intInfo{width: inst.Words[1], signed: inst.Words[2] != 0}
		}
		if inst.Opcode == spirv.OpTypeFloat && len(inst.Words) >= 2 {
			widths[id] = intInfo{width: inst.Words[1], float: true}
		}
		if _, done := n.names[id]; done {
			continue
		}
		if base := n.structural(inst, widths); base != "" {
			n.assign(id, base)
		}
	}
	return n
}

type intInfo struct {
	width  uint32
	signed bool
	float  bool
}

func (n *nameMapper) assign(id uint32, base string) {
	name := base
	for i := 0; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[name] = true
	n.names[id] = name
}

// ref returns the name of id without the leading '%'.
func (n *nameMapper) ref(id uint32) string {
	if name, ok := n.names[id]; ok {
		return name
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (n *nameMapper) structural(inst *spirv.Instruction, types map[uint32]intInfo) string {
	w := inst.Words
	switch inst.Opcode {
	case spirv.OpTypeVoid:
		return "void"
	case spirv.OpTypeBool:
		return "bool"
	case spirv.OpTypeInt:
		if len(w) < 3 {
			return ""
		}
		prefix := "uint"
		if w[2] != 0 {
			prefix = "int"
		}
		if w[1] == 32 {
			return prefix
		}
		return fmt.Sprintf("%s%d", prefix, w[1])
	case spirv.OpTypeFloat:
		if len(w) < 2 {
			return ""
		}
		switch w[1] {
		case 16:
			return "half"
		case 32:
			return "float"
		case 64:
			return "double"
		}
		return fmt.Sprintf("fp%d", w[1])
	case spirv.OpTypeVector:
		return fmt.Sprintf("v%d%s", w[2], n.ref(w[1]))
	case spirv.OpTypeMatrix:
		return fmt.Sprintf("mat%d%s", w[2], n.ref(w[1]))
	case spirv.OpTypeArray:
		return fmt.Sprintf("_arr_%s_%s", n.ref(w[1]), n.ref(w[2]))
	case spirv.OpTypeRuntimeArray:
		return "_runtimearr_" + n.ref(w[1])
	case spirv.OpTypePointer:
		return fmt.Sprintf("_ptr_%s_%s", spirv.StorageClass(w[1]), n.ref(w[2]))
	case spirv.OpTypeFunction:
		return "fn_" + n.ref(w[1])
	case spirv.OpTypeStruct:
		return "_struct"
	case spirv.OpTypeSampler:
		return "type_sampler"
	case spirv.OpTypeSampledImage:
		return "type_sampled_image"
	case spirv.OpTypeImage:
		if len(w) < 7 {
			return "type_image"
		}
		var sb strings.Builder
		sb.WriteString("type_")
		sb.WriteString(strings.ToLower(spirv.Dim(w[2]).String()))
		if w[3] == 1 {
			sb.WriteString("_depth")
		}
		if w[4] == 1 {
			sb.WriteString("_array")
		}
		if w[5] == 1 {
			sb.WriteString("_ms")
		}
		sb.WriteString("_image")
		return sb.String()
	case spirv.OpConstantTrue:
		return "true"
	case spirv.OpConstantFalse:
		return "false"
	case spirv.OpConstant:
		info, ok := types[w[0]]
		if !ok || len(w) < 3 {
			return ""
		}
		return n.ref(w[0]) + "_" + literalSuffix(formatScalar(w[2:], info))
	}
	return ""
}

// literalSuffix turns a printed literal into an identifier fragment.
func literalSuffix(lit string) string {
	r := strings.NewReplacer("-", "n", ".", "_", "+", "")
	return r.Replace(lit)
}

// formatScalar prints the words of a scalar constant of the given type.
func formatScalar(words []uint32, info intInfo) string {
	wide := info.width > 32 && len(words) >= 2
	switch {
	case info.float && wide:
		f := math.Float64frombits(uint64(words[1])<<32 | uint64(words[0]))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprintf("0x%016x", uint64(words[1])<<32|uint64(words[0]))
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case info.float && info.width == 32:
		f := math.Float32frombits(words[0])
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Sprintf("0x%08x", words[0])
		}
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case info.float:
		return fmt.Sprintf("0x%x", words[0])
	case wide && info.signed:
		return strconv.FormatInt(int64(uint64(words[1])<<32|uint64(words[0])), 10)
	case wide:
		return strconv.FormatUint(uint64(words[1])<<32|uint64(words[0]), 10)
	case info.signed:
		v := int64(int32(words[0]))
		if info.width < 32 && info.width > 0 {
			shift := 64 - info.width
			v = int64(uint64(words[0])<<shift) >> shift
		}
		return strconv.FormatInt(v, 10)
	}
	return strconv.FormatUint(uint64(words[0]), 10)
}

// Sanitize turns an OpName string into a valid assembly identifier. The
// string is NFC-normalized first so canonically equal names map to the same
// identifier; characters outside [A-Za-z0-9_] become '_', and a leading digit
// gets a '_' prefix so the name cannot be read back as a numeric id.
func Sanitize(name string) string {
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
	s := sb.String()
	if s == "" {
		return "_"
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + s
	}
	return s
}
