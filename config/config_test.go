// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvtrace"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fragment", cfg.Stage)
	assert.Equal(t, "dbg_", cfg.NamesPrefix)
	assert.Equal(t, "dbg_out_", cfg.OutputPrefix)
	assert.True(t, cfg.Verify)
	assert.Equal(t, LogConfig{Level: "warn", Format: "console"}, cfg.Log)
	assert.Equal(t, cfg, Default())

	opts := cfg.Options()
	want := spvtrace.DefaultOptions()
	want.VerifyAfterTransform = true
	assert.Equal(t, want, opts)
}

func TestLoadOverlaysFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "vertex.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "vertex", cfg.Stage)
	assert.Equal(t, "pre_", cfg.NamesPrefix)
	assert.Equal(t, "dbg_out_", cfg.OutputPrefix, "keys absent from the file keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	opts := cfg.Options()
	assert.Equal(t, spvtrace.StageVertex, opts.Stage)
	assert.True(t, opts.PrefixDeclarationNames)
	assert.True(t, opts.MakeDebuggable)
	assert.False(t, opts.AddSyntheticOutputsForInputs)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")

	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "stage: [", "parsing config file"},
		{"stage", "stage: compute", `invalid stage "compute"`},
		{"level", "log:\n  level: loud", `invalid log level "loud"`},
		{"format", "log:\n  format: xml", `invalid log format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Stage = "vertex"
	cfg.AddOutputs = true

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	l, err := cfg.Logger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1), "debug is off at warn level")

	l, err = cfg.Logger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	cfg.Log.Format = "json"
	_, err = cfg.Logger(false)
	require.NoError(t, err)
}
