// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package frontend compiles WGSL shaders to SPIR-V word streams.
//
// The Compiler interface is what the pipeline depends on; Naga implements it
// with the github.com/gogpu/naga compiler. Failures are reported as
// *Diagnostic values whose Message is the text shown to the user.
package frontend

import (
	"fmt"

	"github.com/gogpu/spvtrace/spirv"
)

// Stage is a shader stage accepted by the compiler.
type Stage uint8

// Shader stages.
const (
	StageNone Stage = iota
	StageVertex
	StageFragment
)

// String returns the lower-case stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "none"
}

// ExecutionModel returns the SPIR-V execution model of the stage.
func (s Stage) ExecutionModel() (spirv.ExecutionModel, bool) {
	switch s {
	case StageVertex:
		return spirv.ExecutionModelVertex, true
	case StageFragment:
		return spirv.ExecutionModelFragment, true
	}
	return 0, false
}

// Profile selects the target environment of a compile.
type Profile uint8

const (
	// ProfileRestricted targets SPIR-V 1.0 with the baseline capabilities
	// only. Original sources are compiled with it.
	ProfileRestricted Profile = iota

	// ProfileBroad targets SPIR-V 1.3 with any capability. Regenerated
	// sources are verified with it.
	ProfileBroad
)

// String returns the profile name.
func (p Profile) String() string {
	switch p {
	case ProfileRestricted:
		return "restricted"
	case ProfileBroad:
		return "broad"
	}
	return fmt.Sprintf("Profile(%d)", uint8(p))
}

// Version returns the SPIR-V version the profile targets.
func (p Profile) Version() spirv.Version {
	if p == ProfileBroad {
		return spirv.Version1_3
	}
	return spirv.Version1_0
}

var baselineCapabilities = map[spirv.Capability]bool{
	spirv.CapabilityShader:            true,
	spirv.CapabilityMatrix:            true,
	spirv.CapabilitySampled1D:         true,
	spirv.CapabilityImage1D:           true,
	spirv.CapabilityImageQuery:        true,
	spirv.CapabilityDerivativeControl: true,
}

// Allows reports whether a module compiled for the profile may declare c.
func (p Profile) Allows(c spirv.Capability) bool {
	return p == ProfileBroad || baselineCapabilities[c]
}

// Compiler compiles shader source for one stage.
type Compiler interface {
	Compile(source string, stage Stage, profile Profile) ([]uint32, error)
}

// DiagnosticKind classifies a compile failure.
type DiagnosticKind uint8

// Diagnostic kinds.
const (
	// KindCompile is a parse, lowering, validation or generation failure.
	KindCompile DiagnosticKind = iota
	// KindLink means the module lacks an entry point for the stage.
	KindLink
	// KindProfile means the module needs more than the profile allows.
	KindProfile
)

func (k DiagnosticKind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindLink:
		return "link"
	case KindProfile:
		return "profile"
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

// Diagnostic is a compile failure. Message is the complete info log.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Err     error
}

func (d *Diagnostic) Error() string {
	return d.Message
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

func compileFailed(info string, err error) *Diagnostic {
	return &Diagnostic{Kind: KindCompile, Message: "Compile failed\nInfoLog: " + info, Err: err}
}
