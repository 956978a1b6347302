// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gogpu/spvtrace/spvasm"
)

// Exit codes.
const (
	exitFailure      = 1 // conversion or assembly failed
	exitCommandError = 2 // bad arguments, unreadable input
)

// ExitError is an error with the process exit code it should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func failed(message string) *ExitError {
	return &ExitError{Code: exitFailure, Message: message}
}

func commandError(message string, err error) *ExitError {
	return &ExitError{Code: exitCommandError, Message: message, Err: err}
}

// exitCode returns the exit code for err; errors that are not ExitError
// come from cobra argument handling.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitCommandError
}

var (
	insertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	equalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	statStyle   = lipgloss.NewStyle().Bold(true)
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styleFor returns s when w is a terminal and a plain style otherwise.
func styleFor(w io.Writer, s lipgloss.Style) lipgloss.Style {
	if isTerminal(w) {
		return s
	}
	return lipgloss.NewStyle()
}

func errorStyle(w io.Writer) lipgloss.Style {
	return styleFor(w, deleteStyle)
}

// renderDiff writes diff lines, colored when w is a terminal.
func renderDiff(w io.Writer, lines []spvasm.DiffLine) error {
	var sb strings.Builder
	for _, l := range lines {
		style := equalStyle
		switch l.Op {
		case spvasm.DiffInsert:
			style = insertStyle
		case spvasm.DiffDelete:
			style = deleteStyle
		}
		sb.WriteString(styleFor(w, style).Render(l.Op.String() + l.Text))
		sb.WriteByte('\n')
	}
	inserted, deleted := spvasm.DiffStats(lines)
	sb.WriteString(styleFor(w, statStyle).Render(fmt.Sprintf("%d insertions(+), %d deletions(-)", inserted, deleted)))
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return commandError("writing output", err)
	}
	return nil
}
