// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvasm

import (
	"fmt"
	"strings"
)

// Error is an assembly error with its source location.
type Error struct {
	Line    int
	Column  int
	Message string
	Source  string // assembly text, for context display
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// FormatWithContext returns the error message with the offending line and a
// caret under the error column.
func (e *Error) FormatWithContext() string {
	if e.Source == "" || e.Line == 0 {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return e.Error()
	}

	line := lines[e.Line-1]
	col := e.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	fmt.Fprintf(&sb, "  --> line %d:%d\n", e.Line, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", e.Line, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

func newError(line, column int, source, format string, args ...any) *Error {
	return &Error{
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
		Source:  source,
	}
}
