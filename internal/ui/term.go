package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether f refers to a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd conversion is safe for file descriptors
}

// TermWidth returns the terminal width of f in columns, or 0 when f is not a
// terminal.
func TermWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // G115: fd conversion is safe for file descriptors
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
