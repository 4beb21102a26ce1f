// Package terminal provides terminal-related utility functions
package terminal

import (
	"os"

	"github.com/charmbracelet/x/term"
)

// MaxRuleWidth caps separators printed by the console
const MaxRuleWidth = 70

// GetSize returns the current terminal dimensions or defaults
func GetSize() (width, height int) {
	width, height = 120, 40

	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		return w, h
	}
	if w, h, err := term.GetSize(os.Stderr.Fd()); err == nil && w > 0 && h > 0 {
		return w, h
	}
	return width, height
}

// IsInteractive reports whether f is attached to a terminal
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(f.Fd())
}

// RuleWidth returns the separator width for the current terminal
func RuleWidth() int {
	width, _ := GetSize()
	return clampRule(width)
}

func clampRule(width int) int {
	if width <= 0 || width > MaxRuleWidth {
		return MaxRuleWidth
	}
	return width
}
