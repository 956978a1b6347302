// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/spirv"
	"github.com/gogpu/spvtrace/spvasm"
)

type codecOptions struct {
	*rootOptions
	output string
	raw    bool
}

func newDisCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &codecOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dis <file.spv>",
		Short: "Disassemble a SPIR-V binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			words, err := spirv.FromBytes(data)
			if err != nil {
				return failed(err.Error())
			}
			dopts := spvasm.DefaultOptions()
			dopts.FriendlyNames = !opts.raw
			text, err := spvasm.DisassembleWithOptions(words, dopts)
			if err != nil {
				return failed(err.Error())
			}
			opts.logger.Debug("disassembled", zap.String("file", args[0]), zap.Int("words", len(words)))
			return writeOutput(cmd.OutOrStdout(), opts.output, []byte(text))
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.raw, "raw-id", false, "print ids by number")
	return cmd
}

func newAsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &codecOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "as <file.spvasm>",
		Short: "Assemble SPIR-V text to a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			words, err := spvasm.Assemble(string(data))
			if err != nil {
				var asmErr *spvasm.Error
				if errors.As(err, &asmErr) {
					return failed(args[0] + "\n" + asmErr.FormatWithContext())
				}
				return failed(err.Error())
			}
			opts.logger.Debug("assembled", zap.String("file", args[0]), zap.Int("words", len(words)))
			return writeOutput(cmd.OutOrStdout(), opts.output, spirv.ToBytes(words))
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
