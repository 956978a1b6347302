// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/spvtrace"
	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/spvasm"
)

type diffOptions struct {
	*rootOptions
	optionFlags
}

func newDiffCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &diffOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <file.wgsl>",
		Short: "Show what the transformations add to the disassembly",
		Long: `Compile a WGSL shader, transform it and print a line diff between the
original and the transformed disassembly. Instrumentation is enabled when no
transformation is selected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, args[0])
		},
	}

	opts.register(cmd.Flags())
	return cmd
}

func runDiff(cmd *cobra.Command, opts *diffOptions, path string) error {
	source, err := readInput(path)
	if err != nil {
		return err
	}
	compileOpts, err := opts.apply(cmd.Flags(), opts.cfg.Options())
	if err != nil {
		return err
	}
	if !compileOpts.PrefixDeclarationNames && !compileOpts.AddSyntheticOutputsForInputs {
		compileOpts.MakeDebuggable = true
	}
	compileOpts.ProduceDisassembly = true

	stage, ok := compileOpts.ResolveStage()
	if !ok {
		return failed("error: Only Fragment and Vertex shaders supported.")
	}
	compiler := frontend.NewNaga()
	words, err := compiler.Compile(string(source), stage, frontend.ProfileRestricted)
	if err != nil {
		return failed(err.Error())
	}
	before, err := spvasm.Disassemble(words)
	if err != nil {
		return failed(err.Error())
	}

	p := spvtrace.NewPipeline()
	p.Compiler = compiler
	p.Logger = opts.logger.With(zap.String("file", path))
	res := p.Convert(context.Background(), string(source), compileOpts)
	if !res.OK {
		return failed(res.Diagnostic)
	}
	if res.Disassembly == "" {
		return failed("transformed module could not be disassembled")
	}
	return renderDiff(cmd.OutOrStdout(), spvasm.Diff(before, res.Disassembly))
}
