// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package frontend

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gogpu/naga"
	nagaspirv "github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/wgsl"

	"github.com/gogpu/spvtrace/spirv"
)

// Naga compiles WGSL with github.com/gogpu/naga. Debug names are always
// emitted. Each Compile runs inside an Initialize/Finalize pair; the pair
// only maintains the counters reported by Sessions. The zero value is not
// usable; call NewNaga.
type Naga struct {
	// Validate runs IR validation before code generation.
	Validate bool

	mu     sync.Mutex
	active int
	opened int
}

// NewNaga returns a compiler with IR validation enabled.
func NewNaga() *Naga {
	return &Naga{Validate: true}
}

// Initialize opens a compile session. Every Initialize is paired with a
// Finalize. naga keeps no process-wide state, so a session acquires
// nothing; it is counted so callers and tests can check that every compile
// is closed.
func (n *Naga) Initialize() {
	n.mu.Lock()
	n.active++
	n.opened++
	n.mu.Unlock()
}

// Finalize closes a session opened by Initialize.
func (n *Naga) Finalize() {
	n.mu.Lock()
	if n.active > 0 {
		n.active--
	}
	n.mu.Unlock()
}

// Sessions returns the number of open sessions and the number opened in
// total.
func (n *Naga) Sessions() (active, opened int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active, n.opened
}

// Compile compiles source for stage and returns the SPIR-V words. The module
// must contain an entry point for stage and must not declare capabilities
// the profile disallows.
func (n *Naga) Compile(source string, stage Stage, profile Profile) ([]uint32, error) {
	n.Initialize()
	defer n.Finalize()

	model, ok := stage.ExecutionModel()
	if !ok {
		return nil, &Diagnostic{Kind: KindLink, Message: fmt.Sprintf("link failed\nInfoLog:\nunsupported stage %s", stage)}
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, compileFailed(err.Error(), err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, compileFailed(sourceContext(err), err)
	}
	if n.Validate {
		problems, err := naga.Validate(module)
		if err != nil {
			return nil, compileFailed(err.Error(), err)
		}
		if len(problems) > 0 {
			return nil, compileFailed(problems[0].Error(), &problems[0])
		}
	}

	data, err := naga.GenerateSPIRV(module, nagaspirv.Options{
		Version:    nagaspirv.Version{Major: profile.Version().Major, Minor: profile.Version().Minor},
		Debug:      true,
		Validation: true,
	})
	if err != nil {
		return nil, compileFailed(err.Error(), err)
	}
	words, err := spirv.FromBytes(data)
	if err != nil {
		return nil, compileFailed(err.Error(), err)
	}
	m, err := spirv.Parse(words)
	if err != nil {
		return nil, compileFailed(err.Error(), err)
	}

	for _, inst := range m.Capabilities {
		if len(inst.Words) == 0 {
			continue
		}
		if c := spirv.Capability(inst.Words[0]); !profile.Allows(c) {
			return nil, &Diagnostic{
				Kind:    KindProfile,
				Message: fmt.Sprintf("Compile failed\nInfoLog: capability %s is not available in the %s profile", c, profile),
			}
		}
	}
	if !hasEntryPoint(m, model) {
		return nil, &Diagnostic{Kind: KindLink, Message: fmt.Sprintf("link failed\nInfoLog:\nno %s entry point", stage)}
	}

	restored := restoreNames(m, module)
	Logger().Debug("compiled",
		zap.Stringer("stage", stage),
		zap.Stringer("profile", profile),
		zap.Int("words", len(words)),
		zap.Int("restored_names", restored))
	return m.Encode(), nil
}

func hasEntryPoint(m *spirv.Module, model spirv.ExecutionModel) bool {
	eps, err := m.EntryPointList()
	if err != nil {
		return false
	}
	for _, ep := range eps {
		if ep.Model == model {
			return true
		}
	}
	return false
}

// sourceContext renders lowering errors with the offending source lines.
func sourceContext(err error) string {
	var list *wgsl.SourceErrors
	if errors.As(err, &list) && list != nil && len(*list) > 0 {
		return list.FormatAll()
	}
	var one *wgsl.SourceError
	if errors.As(err, &one) {
		return one.FormatWithContext()
	}
	return err.Error()
}
