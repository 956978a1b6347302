// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp is the kind of a diff line.
type DiffOp int8

// Diff line kinds.
const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

// String returns the unified diff marker for the operation.
func (op DiffOp) String() string {
	switch op {
	case DiffInsert:
		return "+"
	case DiffDelete:
		return "-"
	}
	return " "
}

// DiffLine is one line of a disassembly diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// Diff compares two disassemblies line by line.
func Diff(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

// DiffStats counts inserted and deleted lines.
func DiffStats(lines []DiffLine) (inserted, deleted int) {
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			inserted++
		case DiffDelete:
			deleted++
		}
	}
	return inserted, deleted
}

// FormatDiff renders diff lines in unified style, one line per entry.
func FormatDiff(lines []DiffLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Op.String())
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
