// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/spvtrace/spirv"
)

// AddOutputForEachInput gives every input of every vertex entry point a
// matching output named prefix followed by the input name, and copies the
// input into it at the start of the entry function. An empty prefix selects
// DefaultOutputPrefix.
//
// New outputs take the locations after the highest output location in the
// module; integer outputs are decorated Flat. Inputs that already have an
// output with the synthesized name are skipped. Fragment entry points have no
// later stage to read the outputs and are left alone.
func (t *Transformer) AddOutputForEachInput(prefix string) []uint32 {
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}
	return t.edit("outputs", func(m *spirv.Module) error {
		return addOutputs(m, prefix)
	})
}

func addOutputs(m *spirv.Module, prefix string) error {
	ix := newIndex(m)
	eps, err := m.EntryPointList()
	if err != nil {
		return err
	}

	nextLocation := uint32(0)
	outputNames := make(map[string]bool)
	for _, inst := range m.Globals {
		if inst.Opcode != spirv.OpVariable || spirv.StorageClass(inst.Words[2]) != spirv.StorageClassOutput {
			continue
		}
		id := inst.Words[1]
		if loc, ok := m.Decoration(id, spirv.DecorationLocation); ok && len(loc) == 1 && loc[0] >= nextLocation {
			nextLocation = loc[0] + 1
		}
		if name, ok := ix.names[id]; ok {
			outputNames[name] = true
		}
	}

	for i, ep := range eps {
		if ep.Model != spirv.ExecutionModelVertex {
			continue
		}
		fn := m.Function(ep.Function)
		if fn == nil || len(fn.Blocks) == 0 {
			return fmt.Errorf("entry point %q has no body", ep.Name)
		}

		var copies []spirv.Instruction
		ordinal := 0
		for _, in := range ep.Interface {
			if storage, ok := ix.storageOf(in); !ok || storage != spirv.StorageClassInput {
				continue
			}
			inputName, ok := ix.names[in]
			if !ok || inputName == "" {
				inputName = fmt.Sprintf("%s_%d", kindInput, ordinal)
			}
			ordinal++

			name := prefix + inputName
			if outputNames[name] {
				continue
			}
			_, pointee, ok := ix.pointee(in)
			if !ok {
				return fmt.Errorf("input %%%d is not a pointer", in)
			}

			out := ix.variable(spirv.StorageClassOutput, pointee)
			m.Annotations = append(m.Annotations,
				spirv.NewInstructionBuilder().AddWords(out, uint32(spirv.DecorationLocation), nextLocation).Build(spirv.OpDecorate))
			if ix.isInteger(pointee) {
				m.Annotations = append(m.Annotations,
					spirv.NewInstructionBuilder().AddWords(out, uint32(spirv.DecorationFlat)).Build(spirv.OpDecorate))
			}
			nextLocation++
			name = ix.unique(name)
			ix.setName(out, name)
			outputNames[name] = true
			ep.Interface = append(ep.Interface, out)

			value := m.AllocID()
			copies = append(copies,
				spirv.NewInstructionBuilder().AddWords(pointee, value, in).Build(spirv.OpLoad),
				spirv.NewInstructionBuilder().AddWords(out, value).Build(spirv.OpStore))
			Logger().Debug("synthetic output",
				zap.String("entry_point", ep.Name),
				zap.String("input", inputName),
				zap.String("output", name))
		}
		if len(copies) == 0 {
			continue
		}
		m.EntryPoints[i] = ep.Encode()

		entry := &fn.Blocks[0]
		at := fn.PrologueLen()
		entry.Body = append(entry.Body[:at:at], append(copies, entry.Body[at:]...)...)
	}
	return nil
}
