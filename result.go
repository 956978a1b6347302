// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvtrace

import (
	"fmt"

	"github.com/gogpu/spvtrace/transform"
)

// FailureStage names the pipeline boundary at which a conversion failed.
type FailureStage uint8

const (
	// FailureNone marks a successful result.
	FailureNone FailureStage = iota

	// FailureConfig means the options select no stage or several.
	FailureConfig

	// FailureOriginal means the original source did not compile.
	FailureOriginal

	// FailureTransform means the transformer produced no code.
	FailureTransform

	// FailureAfterChanges means the transformed module could not be
	// decompiled, or the regenerated source did not compile.
	FailureAfterChanges
)

func (s FailureStage) String() string {
	switch s {
	case FailureNone:
		return "none"
	case FailureConfig:
		return "config"
	case FailureOriginal:
		return "original"
	case FailureTransform:
		return "transform"
	case FailureAfterChanges:
		return "after-changes"
	}
	return fmt.Sprintf("FailureStage(%d)", uint8(s))
}

// Result is the outcome of a conversion. When OK is true Source holds the
// regenerated shader; otherwise Diagnostic explains the failure and Stage
// says where it happened.
type Result struct {
	OK     bool
	Source string

	// Disassembly is the transformed module in text form, when requested
	// and the disassembler succeeded.
	Disassembly string

	// Ledger lists the instructions inserted for debugging.
	Ledger transform.Ledger

	Diagnostic string
	Stage      FailureStage
}

// Err returns the failure as an error, or nil for a successful result.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ConvertError{Stage: r.Stage, Diagnostic: r.Diagnostic}
}

// ConvertError is a failed Result in error form.
type ConvertError struct {
	Stage      FailureStage
	Diagnostic string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("convert failed (%s): %s", e.Stage, e.Diagnostic)
}

func failure(stage FailureStage, diagnostic string) Result {
	return Result{Stage: stage, Diagnostic: diagnostic}
}
