// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gogpu/spvtrace"
	"github.com/gogpu/spvtrace/config"
)

// optionFlags mirror spvtrace.CompileOptions. Flags left unset keep the
// value from the settings file.
type optionFlags struct {
	stage        string
	prefixNames  bool
	namesPrefix  string
	addOutputs   bool
	outputPrefix string
	debuggable   bool
	verify       bool
}

func (f *optionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.stage, "stage", "fragment", "shader stage (vertex|fragment)")
	fs.BoolVar(&f.prefixNames, "prefix-names", false, "rename module-level declarations")
	fs.StringVar(&f.namesPrefix, "names-prefix", "dbg_", "prefix for renamed declarations")
	fs.BoolVar(&f.addOutputs, "add-outputs", false, "add an output mirroring each input")
	fs.StringVar(&f.outputPrefix, "output-prefix", "dbg_out_", "prefix for synthetic outputs")
	fs.BoolVar(&f.debuggable, "debuggable", false, "insert trace instructions")
	fs.BoolVar(&f.verify, "verify", true, "compile the regenerated source again")
}

// apply overlays the flags the user set on opts.
func (f *optionFlags) apply(fs *pflag.FlagSet, opts spvtrace.CompileOptions) (spvtrace.CompileOptions, error) {
	if fs.Changed("stage") {
		stage, err := config.ParseStage(f.stage)
		if err != nil {
			return opts, commandError("invalid --stage", err)
		}
		opts.Stage = stage
	}
	if fs.Changed("prefix-names") {
		opts.PrefixDeclarationNames = f.prefixNames
	}
	if fs.Changed("names-prefix") {
		opts.NamesPrefix = f.namesPrefix
	}
	if fs.Changed("add-outputs") {
		opts.AddSyntheticOutputsForInputs = f.addOutputs
	}
	if fs.Changed("output-prefix") {
		opts.OutputPrefix = f.outputPrefix
	}
	if fs.Changed("debuggable") {
		opts.MakeDebuggable = f.debuggable
	}
	if fs.Changed("verify") {
		opts.VerifyAfterTransform = f.verify
	}
	return opts, nil
}

type convertOptions struct {
	*rootOptions
	optionFlags
	output string
	ledger string
	disasm bool
}

func newConvertCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &convertOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <file.wgsl>",
		Short: "Instrument a shader and regenerate its source",
		Long: `Compile a WGSL shader, apply the selected transformations to the SPIR-V
module and print the regenerated WGSL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	opts.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.ledger, "ledger", "", "write the provenance ledger as CSV")
	cmd.Flags().BoolVar(&opts.disasm, "disasm", false, "print the transformed disassembly to stderr")
	return cmd
}

func runConvert(cmd *cobra.Command, opts *convertOptions, path string) error {
	source, err := readInput(path)
	if err != nil {
		return err
	}
	compileOpts, err := opts.apply(cmd.Flags(), opts.cfg.Options())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("disasm") {
		compileOpts.ProduceDisassembly = opts.disasm
	}

	p := spvtrace.NewPipeline()
	p.Logger = opts.logger.With(zap.String("file", path))
	res := p.Convert(context.Background(), string(source), compileOpts)
	if !res.OK {
		return failed(res.Diagnostic)
	}

	if compileOpts.ProduceDisassembly {
		fmt.Fprint(cmd.ErrOrStderr(), res.Disassembly)
	}
	if opts.ledger != "" {
		var buf bytes.Buffer
		if err := res.Ledger.WriteCSV(&buf); err != nil {
			return failed(fmt.Sprintf("encoding ledger: %v", err))
		}
		if err := writeOutput(nil, opts.ledger, buf.Bytes()); err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), opts.output, []byte(res.Source))
}
