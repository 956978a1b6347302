// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/gogpu/spvtrace/spirv"
)

// Record is one instruction inserted for debugging.
type Record struct {
	// Words is the encoded instruction, opcode word first.
	Words []uint32

	// SourceName identifies the source construct the instruction traces,
	// such as "color", "light.intensity", "sample(tex)" or "branch(%12)".
	SourceName string
}

// Opcode returns the opcode of the recorded instruction.
func (r Record) Opcode() spirv.OpCode {
	if len(r.Words) == 0 {
		return spirv.OpNop
	}
	return spirv.OpCode(r.Words[0] & 0xFFFF)
}

// Ledger is the ordered list of records produced by one instrumentation.
type Ledger []Record

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	for i, r := range l {
		out[i] = Record{Words: append([]uint32(nil), r.Words...), SourceName: r.SourceName}
	}
	return out
}

// Sources returns the distinct source names in first-seen order.
func (l Ledger) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range l {
		if !seen[r.SourceName] {
			seen[r.SourceName] = true
			out = append(out, r.SourceName)
		}
	}
	return out
}

// ledgerRow is the CSV form of a Record.
type ledgerRow struct {
	Index      int    `csv:"index"`
	Opcode     string `csv:"opcode"`
	Words      string `csv:"words"`
	SourceName string `csv:"source_name"`
}

// WriteCSV writes the ledger as CSV with a header row. Words are written as
// space separated hexadecimal values.
func (l Ledger) WriteCSV(w io.Writer) error {
	rows := make([]*ledgerRow, 0, len(l))
	for i, r := range l {
		words := make([]string, len(r.Words))
		for j, word := range r.Words {
			words[j] = fmt.Sprintf("0x%08x", word)
		}
		rows = append(rows, &ledgerRow{
			Index:      i,
			Opcode:     r.Opcode().String(),
			Words:      strings.Join(words, " "),
			SourceName: r.SourceName,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("ledger error: %w", err)
	}
	return nil
}

// ReadLedgerCSV reads a ledger written by WriteCSV. The opcode column is
// informational; it must match the first word.
func ReadLedgerCSV(r io.Reader) (Ledger, error) {
	var rows []*ledgerRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("ledger error: %w", err)
	}
	out := make(Ledger, 0, len(rows))
	for _, row := range rows {
		var words []uint32
		for _, field := range strings.Fields(row.Words) {
			v, err := strconv.ParseUint(field, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("ledger error: row %d: invalid word %q", row.Index, field)
			}
			words = append(words, uint32(v))
		}
		rec := Record{Words: words, SourceName: row.SourceName}
		if row.Opcode != "" && rec.Opcode().String() != row.Opcode {
			return nil, fmt.Errorf("ledger error: row %d: opcode %s does not match words (%s)", row.Index, row.Opcode, rec.Opcode())
		}
		out = append(out, rec)
	}
	return out, nil
}
