// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"

	"github.com/gogpu/spvtrace/spirv"
)

// Declaration kinds used for synthesized names.
const (
	kindInput    = "input"
	kindOutput   = "output"
	kindUniform  = "uniform"
	kindPrivate  = "private"
	kindFunction = "function"
)

func declarationKind(storage spirv.StorageClass) string {
	switch storage {
	case spirv.StorageClassInput:
		return kindInput
	case spirv.StorageClassOutput:
		return kindOutput
	case spirv.StorageClassUniform, spirv.StorageClassUniformConstant,
		spirv.StorageClassStorageBuffer, spirv.StorageClassPushConstant:
		return kindUniform
	}
	return kindPrivate
}

type declaration struct {
	id      uint32
	kind    string
	ordinal int
}

// RenameDeclarations prefixes the debug name of every module-scope variable
// and function with prefix. Declarations without a name get prefix followed
// by their kind and per-kind ordinal, as in "dbg_uniform_0". An empty prefix
// selects DefaultNamesPrefix. Ids are never changed.
//
// A name that collides with any other name in the module gets the
// declaration ordinal appended, then a counter until it is unique.
func (t *Transformer) RenameDeclarations(prefix string) []uint32 {
	if prefix == "" {
		prefix = DefaultNamesPrefix
	}
	return t.edit("rename", func(m *spirv.Module) error {
		renameDeclarations(m, prefix)
		return nil
	})
}

func renameDeclarations(m *spirv.Module, prefix string) {
	ix := newIndex(m)

	var decls []declaration
	ordinals := make(map[string]int)
	add := func(id uint32, kind string) {
		decls = append(decls, declaration{id: id, kind: kind, ordinal: ordinals[kind]})
		ordinals[kind]++
	}
	for _, inst := range m.Globals {
		if inst.Opcode != spirv.OpVariable || len(inst.Words) < 3 {
			continue
		}
		add(inst.Words[1], declarationKind(spirv.StorageClass(inst.Words[2])))
	}
	for i := range m.Functions {
		add(m.Functions[i].ID(), kindFunction)
	}

	// Only names outside the renamed set can collide.
	ix.taken = make(map[string]bool)
	renamed := make(map[uint32]bool, len(decls))
	for _, d := range decls {
		renamed[d.id] = true
	}
	for id, name := range ix.names {
		if !renamed[id] {
			ix.taken[name] = true
		}
	}

	for _, d := range decls {
		var name string
		if old, ok := ix.names[d.id]; ok && old != "" {
			name = prefix + old
		} else {
			name = fmt.Sprintf("%s%s_%d", prefix, d.kind, d.ordinal)
		}
		if ix.taken[name] {
			name = ix.unique(fmt.Sprintf("%s_%d", name, d.ordinal))
		}
		ix.setName(d.id, name)
	}
}
