// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvtrace/spirv"
	"github.com/gogpu/spvtrace/spvasm"
	"github.com/gogpu/spvtrace/transform"
)

const shaderSource = `
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(1) var samp: sampler;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, uv);
}
`

const assemblyText = `
               OpCapability Shader
               OpMemoryModel Logical GLSL450
               OpEntryPoint Fragment %main "main"
               OpExecutionMode %main OriginUpperLeft
               OpName %main "main"
       %void = OpTypeVoid
    %fn_void = OpTypeFunction %void
       %main = OpFunction %void None %fn_void
      %entry = OpLabel
               OpReturn
               OpFunctionEnd
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"convert", "dis", "as", "diff"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestConvertCommand(t *testing.T) {
	path := writeFile(t, "shader.wgsl", shaderSource)
	ledgerPath := filepath.Join(t.TempDir(), "ledger.csv")

	stdout, stderr, err := execute(t, "convert", "--debuggable", "--disasm", "--ledger", ledgerPath, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "@fragment")
	assert.Contains(t, stdout, "dbg_trace_step")
	assert.Contains(t, stderr, "OpEntryPoint Fragment")

	f, err := os.Open(ledgerPath)
	require.NoError(t, err)
	defer f.Close()
	ledger, err := transform.ReadLedgerCSV(f)
	require.NoError(t, err)
	assert.Contains(t, ledger.Sources(), "sample(tex)")
}

func TestConvertCommandOutputFile(t *testing.T) {
	path := writeFile(t, "shader.wgsl", shaderSource)
	out := filepath.Join(t.TempDir(), "out.wgsl")

	stdout, _, err := execute(t, "convert", "--prefix-names", "-o", out, path)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dbg_tex")
}

func TestConvertCommandConfig(t *testing.T) {
	path := writeFile(t, "shader.wgsl", shaderSource)
	cfg := writeFile(t, "spvtrace.yaml", "prefix_names: true\nnames_prefix: cfg_\n")

	stdout, _, err := execute(t, "--config", cfg, "convert", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "cfg_tex")

	stdout, _, err = execute(t, "--config", cfg, "convert", "--names-prefix", "flag_", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "flag_tex", "flags override the settings file")
}

func TestConvertCommandFailures(t *testing.T) {
	bad := writeFile(t, "bad.wgsl", "fn main( {")
	good := writeFile(t, "shader.wgsl", shaderSource)

	tests := []struct {
		name   string
		args   []string
		code   int
		prefix string
	}{
		{"compile", []string{"convert", bad}, exitFailure, "With original source code\n"},
		{"stage", []string{"convert", "--stage", "vertex", good}, exitFailure, "With original source code\n"},
		{"bad stage", []string{"convert", "--stage", "compute", good}, exitCommandError, "invalid --stage"},
		{"missing", []string{"convert", good + ".missing"}, exitCommandError, "reading input"},
		{"config", []string{"--config", good + ".missing", "convert", good}, exitCommandError, "loading settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
			assert.True(t, strings.HasPrefix(err.Error(), tt.prefix), err.Error())
		})
	}
}

func TestAssembleDisassemble(t *testing.T) {
	src := writeFile(t, "shader.spvasm", assemblyText)
	bin := filepath.Join(t.TempDir(), "shader.spv")

	_, _, err := execute(t, "as", "-o", bin, src)
	require.NoError(t, err)
	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	words, err := spirv.FromBytes(data)
	require.NoError(t, err)

	want, err := spvasm.Disassemble(words)
	require.NoError(t, err)
	stdout, _, err := execute(t, "dis", bin)
	require.NoError(t, err)
	assert.Equal(t, want, stdout)

	stdout, _, err = execute(t, "dis", "--raw-id", bin)
	require.NoError(t, err)
	assert.Regexp(t, `%\d+ = OpTypeVoid`, stdout)
}

func TestAssembleFailure(t *testing.T) {
	src := writeFile(t, "bad.spvasm", "OpCapability Shader\n%x = OpBogus\n")
	_, _, err := execute(t, "as", src)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestDisassembleFailure(t *testing.T) {
	bin := writeFile(t, "bad.spv", "not spirv")
	_, _, err := execute(t, "dis", bin)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestDiffCommand(t *testing.T) {
	path := writeFile(t, "shader.wgsl", shaderSource)
	stdout, _, err := execute(t, "diff", path)
	require.NoError(t, err)

	var inserted []string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "+") {
			inserted = append(inserted, line)
		}
	}
	assert.NotEmpty(t, inserted)
	assert.Contains(t, strings.Join(inserted, "\n"), "dbg_trace_step")
	assert.Contains(t, stdout, "insertions(+)")
}

func TestRenderDiffPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderDiff(&buf, spvasm.Diff("a\nb\n", "a\nc\n")))
	assert.Equal(t, " a\n-b\n+c\n1 insertions(+), 1 deletions(-)\n", buf.String())
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := commandError("reading input", inner)
	assert.Equal(t, "reading input: boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, exitCommandError, exitCode(err))
	assert.Equal(t, exitFailure, exitCode(failed("x")))
	assert.Equal(t, exitCommandError, exitCode(errors.New("unknown flag")))
}
