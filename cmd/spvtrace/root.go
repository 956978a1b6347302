// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/spvtrace"
	"github.com/gogpu/spvtrace/config"
	"github.com/gogpu/spvtrace/decompile"
	"github.com/gogpu/spvtrace/frontend"
	"github.com/gogpu/spvtrace/transform"
)

// rootOptions holds the global flags and what PersistentPreRunE derives
// from them.
type rootOptions struct {
	Verbose    bool
	ConfigPath string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "spvtrace",
		Short: "Instrument WGSL shaders for debugging",
		Long: `spvtrace compiles WGSL to SPIR-V, inserts instructions that trace values
back to source constructs, and regenerates WGSL that still compiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every pipeline stage")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "settings file (default ./"+config.FileName+" when present)")

	cmd.AddCommand(newConvertCommand(opts))
	cmd.AddCommand(newDisCommand(opts))
	cmd.AddCommand(newAsCommand(opts))
	cmd.AddCommand(newDiffCommand(opts))
	return cmd
}

// setup loads the settings and installs the logger in every package.
func (o *rootOptions) setup() error {
	path := o.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return commandError("loading settings", err)
	}
	logger, err := cfg.Logger(o.Verbose)
	if err != nil {
		return commandError("creating logger", err)
	}
	o.cfg, o.logger = cfg, logger

	spvtrace.SetLogger(logger)
	frontend.SetLogger(logger)
	transform.SetLogger(logger)
	decompile.SetLogger(logger)
	return nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, commandError("reading input", err)
	}
	return data, nil
}
