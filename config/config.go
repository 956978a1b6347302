// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package config loads spvtrace settings from YAML.
//
// Settings start from the embedded defaults; a file given to Load only
// overwrites the keys it contains.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvtrace"
)

// FileName is the conventional name of a settings file.
const FileName = "spvtrace.yaml"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all spvtrace settings.
type Config struct {
	Stage string `yaml:"stage"` // vertex or fragment

	PrefixNames bool   `yaml:"prefix_names"`
	NamesPrefix string `yaml:"names_prefix"`

	AddOutputs   bool   `yaml:"add_outputs"`
	OutputPrefix string `yaml:"output_prefix"`

	Debuggable  bool `yaml:"debuggable"`
	Disassembly bool `yaml:"disassembly"`
	Verify      bool `yaml:"verify"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the logger built by Logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // console or json
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads settings from path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := ParseStage(c.Stage); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be console or json", c.Log.Format)
	}
	return nil
}

// ParseStage converts a stage name to a Stage.
func ParseStage(name string) (spvtrace.Stage, error) {
	switch name {
	case "vertex":
		return spvtrace.StageVertex, nil
	case "fragment":
		return spvtrace.StageFragment, nil
	}
	return spvtrace.StageNone, fmt.Errorf("invalid stage %q: must be vertex or fragment", name)
}

// Options returns the conversion options the settings describe.
func (c *Config) Options() spvtrace.CompileOptions {
	stage, _ := ParseStage(c.Stage)
	return spvtrace.CompileOptions{
		Stage:                        stage,
		PrefixDeclarationNames:       c.PrefixNames,
		NamesPrefix:                  c.NamesPrefix,
		AddSyntheticOutputsForInputs: c.AddOutputs,
		OutputPrefix:                 c.OutputPrefix,
		MakeDebuggable:               c.Debuggable,
		ProduceDisassembly:           c.Disassembly,
		VerifyAfterTransform:         c.Verify,
	}
}

// Logger builds a logger writing to stderr. verbose forces debug level.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Log.Format
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// WriteYAML encodes the settings to w.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return enc.Close()
}
