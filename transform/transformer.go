// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package transform applies debugging edits to SPIR-V modules.
//
// A Transformer holds the current instruction stream. Each edit parses the
// stream, rewrites it and replaces the internal state with the result, so
// edits compose in the order they are called:
//
//	t := transform.New(words)
//	t.RenameDeclarations("dbg_")
//	t.AddOutputForEachInput("dbg_out_")
//	words, ledger := t.InstrumentForDebugging()
//
// A malformed stream makes the failing edit and every later one return an
// empty stream. Err reports the cause.
package transform

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/spirv"
)

// Default name prefixes.
const (
	DefaultNamesPrefix  = "dbg_"
	DefaultOutputPrefix = "dbg_out_"
)

// Transformer applies edits to an instruction stream.
type Transformer struct {
	words  []uint32
	ledger Ledger
	err    error
}

// New creates a transformer over a copy of stream.
func New(stream []uint32) *Transformer {
	return &Transformer{words: append([]uint32(nil), stream...)}
}

// Step is one named edit. Run applies steps in order.
type Step struct {
	Name string
	Edit func(t *Transformer) []uint32
}

// RenameStep returns the declaration renaming step.
func RenameStep(prefix string) Step {
	return Step{Name: "rename", Edit: func(t *Transformer) []uint32 { return t.RenameDeclarations(prefix) }}
}

// OutputsStep returns the synthetic output step.
func OutputsStep(prefix string) Step {
	return Step{Name: "outputs", Edit: func(t *Transformer) []uint32 { return t.AddOutputForEachInput(prefix) }}
}

// InstrumentStep returns the debug instrumentation step.
func InstrumentStep() Step {
	return Step{Name: "instrument", Edit: func(t *Transformer) []uint32 {
		words, _ := t.InstrumentForDebugging()
		return words
	}}
}

// Run applies steps in order and returns the final stream.
func (t *Transformer) Run(steps ...Step) []uint32 {
	for _, s := range steps {
		out := s.Edit(t)
		Logger().Debug("transform step",
			zap.String("step", s.Name),
			zap.Int("words", len(out)))
	}
	return t.Result()
}

// Result returns a copy of the current stream.
func (t *Transformer) Result() []uint32 {
	if t.err != nil {
		return []uint32{}
	}
	return append([]uint32(nil), t.words...)
}

// Ledger returns a copy of the records produced by InstrumentForDebugging.
func (t *Transformer) Ledger() Ledger {
	return t.ledger.Clone()
}

// Err returns the error that stopped the transformer, if any.
func (t *Transformer) Err() error {
	return t.err
}

// edit runs fn on the parsed current stream and makes its encoding the new
// state. The stream is validated before and after fn.
func (t *Transformer) edit(name string, fn func(m *spirv.Module) error) []uint32 {
	if t.err != nil {
		return []uint32{}
	}
	m, err := spirv.Parse(t.words)
	if err == nil {
		err = m.Validate()
	}
	if err == nil {
		err = fn(m)
	}
	if err == nil {
		err = m.Validate()
	}
	if err != nil {
		t.err = fmt.Errorf("%s error: %w", name, err)
		t.words = nil
		Logger().Warn("transform failed", zap.String("step", name), zap.Error(err))
		return []uint32{}
	}
	t.words = m.Encode()
	return t.Result()
}
