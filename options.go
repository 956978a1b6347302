// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvtrace

import (
	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/transform"
)

// Stage is the shader stage a source is compiled for.
type Stage = frontend.Stage

// Shader stages. StageNone is never valid in CompileOptions.
const (
	StageNone     = frontend.StageNone
	StageVertex   = frontend.StageVertex
	StageFragment = frontend.StageFragment
)

// CompileOptions configures one Convert call. The transformations are
// independent and run in a fixed order: renaming, synthetic outputs, then
// debug instrumentation.
type CompileOptions struct {
	// Stage is the shader stage. It may be left as StageNone when one of
	// IsVertexShader or IsFragmentShader is set.
	Stage Stage

	// IsVertexShader and IsFragmentShader select the stage as flags. They
	// must agree with Stage and with each other.
	IsVertexShader   bool
	IsFragmentShader bool

	// PrefixDeclarationNames renames module-level declarations with
	// NamesPrefix (default "dbg_").
	PrefixDeclarationNames bool
	NamesPrefix            string

	// AddSyntheticOutputsForInputs adds an output copying each input, named
	// with OutputPrefix (default "dbg_out_").
	AddSyntheticOutputsForInputs bool
	OutputPrefix                 string

	// MakeDebuggable inserts trace instructions and fills Result.Ledger.
	MakeDebuggable bool

	// ProduceDisassembly fills Result.Disassembly with the transformed
	// module's text form.
	ProduceDisassembly bool

	// VerifyAfterTransform compiles the regenerated source again.
	VerifyAfterTransform bool
}

// DefaultOptions returns fragment-stage options with every transformation
// disabled.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Stage:        StageFragment,
		NamesPrefix:  transform.DefaultNamesPrefix,
		OutputPrefix: transform.DefaultOutputPrefix,
	}
}

// ResolveStage returns the single stage selected by Stage and the stage
// flags. It reports false when no stage or more than one is selected.
func (o CompileOptions) ResolveStage() (Stage, bool) {
	stage := o.Stage
	for _, flag := range []struct {
		set   bool
		stage Stage
	}{
		{o.IsVertexShader, StageVertex},
		{o.IsFragmentShader, StageFragment},
	} {
		if !flag.set {
			continue
		}
		if stage != StageNone && stage != flag.stage {
			return StageNone, false
		}
		stage = flag.stage
	}
	if stage != StageVertex && stage != StageFragment {
		return StageNone, false
	}
	return stage, true
}

// steps returns the transformation steps the options enable, in order.
func (o CompileOptions) steps() []transform.Step {
	var steps []transform.Step
	if o.PrefixDeclarationNames {
		steps = append(steps, transform.RenameStep(o.NamesPrefix))
	}
	if o.AddSyntheticOutputsForInputs {
		steps = append(steps, transform.OutputsStep(o.OutputPrefix))
	}
	if o.MakeDebuggable {
		steps = append(steps, transform.InstrumentStep())
	}
	return steps
}
