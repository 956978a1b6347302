// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv_test

import (
	"fmt"

	"github.com/gogpu/spvtrace/spirv"
)

// ExampleNewModule demonstrates building and encoding a minimal module.
func ExampleNewModule() {
	m := spirv.NewModule(spirv.Version1_0)

	// Add required capability
	m.Capabilities = append(m.Capabilities,
		spirv.NewInstructionBuilder().AddWord(uint32(spirv.CapabilityShader)).Build(spirv.OpCapability))

	// Logical addressing, GLSL450 memory model
	memory := spirv.NewInstructionBuilder().AddWords(0, 1).Build(spirv.OpMemoryModel)
	m.MemoryModel = &memory

	words := m.Encode()
	fmt.Printf("words=%d version=%s\n", len(words), spirv.VersionFromWord(words[1]))
	// Output: words=10 version=1.0
}

// ExampleParse demonstrates classifying a stream into sections.
func ExampleParse() {
	m := spirv.NewModule(spirv.Version1_3)
	m.Capabilities = append(m.Capabilities,
		spirv.NewInstructionBuilder().AddWord(uint32(spirv.CapabilityShader)).Build(spirv.OpCapability))
	memory := spirv.NewInstructionBuilder().AddWords(0, 1).Build(spirv.OpMemoryModel)
	m.MemoryModel = &memory
	floatType := m.AllocID()
	m.Globals = append(m.Globals, spirv.NewInstructionBuilder().AddWords(floatType, 32).Build(spirv.OpTypeFloat))
	m.SetName(floatType, "float")

	parsed, err := spirv.Parse(m.Encode())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("bound=%d globals=%d name=%s\n",
		parsed.Header.Bound, len(parsed.Globals), parsed.Names()[floatType])
	// Output: bound=2 globals=1 name=float
}

// ExampleModule_SetName demonstrates that SetName replaces an existing name.
func ExampleModule_SetName() {
	m := spirv.NewModule(spirv.Version1_0)
	id := m.AllocID()
	m.SetName(id, "color")
	m.SetName(id, "dbg_color")

	fmt.Println(id, m.Names()[id], len(m.DebugNames))
	// Output: 1 dbg_color 1
}
