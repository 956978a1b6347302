// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spvtrace makes WGSL shaders traceable by a graphics debugger.
//
// A conversion compiles the shader to SPIR-V, edits the binary (renaming
// declarations, adding outputs that mirror inputs, inserting trace stores),
// regenerates WGSL from the edited binary and optionally checks that the
// result compiles again:
//
//	opts := spvtrace.DefaultOptions()
//	opts.MakeDebuggable = true
//	opts.VerifyAfterTransform = true
//	res := spvtrace.Convert(source, opts)
//	if !res.OK {
//	    log.Fatal(res.Diagnostic)
//	}
//	for _, rec := range res.Ledger {
//	    fmt.Println(rec.SourceName)
//	}
//
// The pipeline is:
//  1. Compile the original source with the restricted profile
//  2. Apply the enabled transformations
//  3. Disassemble the transformed module (optional, failures ignored)
//  4. Decompile it to WGSL
//  5. Compile the regenerated source with the broad profile (optional)
//
// Every failure is reported in the Result; Convert never returns an error.
package spvtrace

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/decompile"
	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/spvasm"
	"github.com/gogpu/spvtrace/transform"
)

// Diagnostics reported by Convert.
const (
	diagStage        = "error: Only Fragment and Vertex shaders supported."
	diagNoCode       = "error: transformer produced no code."
	diagOriginal     = "With original source code\n"
	diagAfterChanges = "After changes\n"
)

// DecompileFunc regenerates source from a SPIR-V stream.
type DecompileFunc func(words []uint32, target decompile.Target) (string, error)

// DisassembleFunc renders a SPIR-V stream as text.
type DisassembleFunc func(words []uint32) (string, error)

// Pipeline runs conversions with a fixed set of collaborators. Nil fields
// select the defaults: a naga compiler, decompile.Decompile,
// spvasm.Disassemble and the package logger. A Pipeline keeps no state
// between calls and may be used concurrently.
type Pipeline struct {
	Compiler    frontend.Compiler
	Decompile   DecompileFunc
	Disassemble DisassembleFunc
	Logger      *zap.Logger
}

// NewPipeline returns a pipeline with the default collaborators.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Compiler:    frontend.NewNaga(),
		Decompile:   decompile.Decompile,
		Disassemble: spvasm.Disassemble,
	}
}

// Convert runs the pipeline on source with a new default Pipeline.
func Convert(source string, opts CompileOptions) Result {
	return NewPipeline().Convert(context.Background(), source, opts)
}

// Convert runs the pipeline on source. ctx is checked between stages; a
// canceled context fails the stage that was about to start.
func (p *Pipeline) Convert(ctx context.Context, source string, opts CompileOptions) Result {
	log := p.logger().With(zap.String("run_id", runID()))

	stage, ok := opts.ResolveStage()
	if !ok {
		log.Warn("convert rejected",
			zap.Bool("vertex", opts.IsVertexShader),
			zap.Bool("fragment", opts.IsFragmentShader),
			zap.Stringer("stage", opts.Stage))
		return failure(FailureConfig, diagStage)
	}
	log = log.With(zap.Stringer("shader", stage))
	compiler := p.compiler()

	if err := ctx.Err(); err != nil {
		return p.canceled(log, FailureOriginal, err)
	}
	words, err := compiler.Compile(source, stage, frontend.ProfileRestricted)
	if err != nil {
		log.Warn("original source failed", zap.Stringer("stage", FailureOriginal), zap.Error(err))
		return failure(FailureOriginal, diagOriginal+diagnostic(err))
	}
	log.Debug("compiled", zap.String("stage", "original"), zap.Int("words", len(words)))

	if err := ctx.Err(); err != nil {
		return p.canceled(log, FailureTransform, err)
	}
	t := transform.New(words)
	words = t.Run(opts.steps()...)
	if len(words) == 0 {
		log.Warn("transform failed", zap.Stringer("stage", FailureTransform), zap.Error(t.Err()))
		return failure(FailureTransform, diagNoCode)
	}
	ledger := t.Ledger()
	log.Debug("transformed",
		zap.String("stage", "transform"),
		zap.Int("words", len(words)),
		zap.Int("records", len(ledger)))

	var disassembly string
	if opts.ProduceDisassembly {
		text, err := p.disassemble()(words)
		if err != nil {
			log.Warn("disassembly failed", zap.Error(err))
		} else {
			disassembly = text
		}
	}

	if err := ctx.Err(); err != nil {
		return p.canceled(log, FailureAfterChanges, err)
	}
	generated, err := p.decompile()(words, decompile.TargetDesktop)
	if err != nil {
		log.Warn("decompile failed", zap.Stringer("stage", FailureAfterChanges), zap.Error(err))
		return failure(FailureAfterChanges, diagAfterChanges+err.Error())
	}
	log.Debug("decompiled", zap.String("stage", "decompile"), zap.Int("bytes", len(generated)))

	if opts.VerifyAfterTransform {
		if err := ctx.Err(); err != nil {
			return p.canceled(log, FailureAfterChanges, err)
		}
		verified, err := compiler.Compile(generated, stage, frontend.ProfileBroad)
		if err != nil {
			log.Warn("regenerated source failed", zap.Stringer("stage", FailureAfterChanges), zap.Error(err))
			return failure(FailureAfterChanges, diagAfterChanges+diagnostic(err))
		}
		log.Debug("compiled", zap.String("stage", "verify"), zap.Int("words", len(verified)))
	}

	return Result{
		OK:          true,
		Source:      generated,
		Disassembly: disassembly,
		Ledger:      ledger,
	}
}

func (p *Pipeline) compiler() frontend.Compiler {
	if p.Compiler != nil {
		return p.Compiler
	}
	return frontend.NewNaga()
}

func (p *Pipeline) decompile() DecompileFunc {
	if p.Decompile != nil {
		return p.Decompile
	}
	return decompile.Decompile
}

func (p *Pipeline) disassemble() DisassembleFunc {
	if p.Disassemble != nil {
		return p.Disassemble
	}
	return spvasm.Disassemble
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return Logger()
}

func (p *Pipeline) canceled(log *zap.Logger, stage FailureStage, err error) Result {
	log.Warn("convert canceled", zap.Stringer("stage", stage), zap.Error(err))
	return failure(stage, "error: "+err.Error())
}

// diagnostic returns the text a collaborator reported for err.
func diagnostic(err error) string {
	var d *frontend.Diagnostic
	if errors.As(err, &d) {
		return d.Message
	}
	return err.Error()
}

// runID tags the log lines of one conversion.
func runID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
