// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package decompile regenerates WGSL source from SPIR-V modules.
//
// The output is meant to be compiled again, not read: every value becomes a
// let binding, module-scope inputs and outputs become private variables, and
// each entry point is a small wrapper that copies its parameters into those
// privates, calls the original entry function and returns the outputs.
//
// Control flow is rebuilt from the merge instructions of structured SPIR-V.
// Modules that are not structured, or that use instructions WGSL cannot
// express (OpPhi, atomics, barriers, 16- and 64-bit types), are rejected with
// an *Error.
//
// # Usage
//
//	source, err := decompile.Decompile(words, decompile.TargetDesktop)
//	if err != nil {
//	    log.Fatal(err)
//	}
package decompile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/spirv"
)

// Target selects the source dialect to generate.
type Target uint8

const (
	// TargetDesktop generates WGSL accepted by the naga front end.
	TargetDesktop Target = iota
)

// String returns the target name.
func (t Target) String() string {
	if t == TargetDesktop {
		return "desktop"
	}
	return fmt.Sprintf("Target(%d)", uint8(t))
}

// Error reports an instruction that cannot be decompiled.
type Error struct {
	// Op is the offending instruction, or OpNop for module-level problems.
	Op spirv.OpCode

	// ID is the result id or target of the instruction, zero if none.
	ID uint32

	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("decompile: %s %%%d: %s", e.Op, e.ID, e.Message)
	}
	if e.Op != spirv.OpNop {
		return fmt.Sprintf("decompile: %s: %s", e.Op, e.Message)
	}
	return "decompile: " + e.Message
}

func errorf(op spirv.OpCode, id uint32, format string, args ...any) *Error {
	return &Error{Op: op, ID: id, Message: fmt.Sprintf(format, args...)}
}

// Decompile returns WGSL source equivalent to the SPIR-V module in words.
func Decompile(words []uint32, target Target) (string, error) {
	if target != TargetDesktop {
		return "", errorf(spirv.OpNop, 0, "unsupported target %s", target)
	}
	m, err := spirv.Parse(words)
	if err != nil {
		return "", fmt.Errorf("decompile error: %w", err)
	}
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("decompile error: %w", err)
	}

	w, err := newWriter(m)
	if err != nil {
		return "", err
	}
	if err := w.writeModule(); err != nil {
		return "", err
	}
	Logger().Debug("decompiled",
		zap.Int("words", len(words)),
		zap.Int("functions", len(m.Functions)),
		zap.Int("bytes", w.out.Len()))
	return w.String(), nil
}
