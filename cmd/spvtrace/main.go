// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command spvtrace instruments WGSL shaders for debugging.
//
// Usage:
//
//	spvtrace [--config spvtrace.yaml] [--verbose] <command> [flags] <input>
//
// Examples:
//
//	spvtrace convert --debuggable --ledger trace.csv shader.wgsl
//	spvtrace convert --stage vertex --add-outputs -o out.wgsl shader.wgsl
//	spvtrace dis shader.spv
//	spvtrace as -o shader.spv shader.spvasm
//	spvtrace diff --debuggable shader.wgsl
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle(os.Stderr).Render(err.Error()))
		os.Exit(exitCode(err))
	}
}
