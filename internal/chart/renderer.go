// Package chart draws usage series as line charts.
package chart

import (
	"os"

	"github.com/aaronlmathis/cpuplot/internal/timeseries"
	"golang.org/x/term"
)

// Renderer draws one series with a title. Callers only pass series whose
// timestamps and samples are paired.
type Renderer interface {
	Render(s *timeseries.Series, title string) error
}

// Options controls chart geometry and styling
type Options struct {
	Height int  // plot rows
	Width  int  // plot columns, 0 = terminal width
	Color  bool // ANSI colors
}

// DefaultOptions returns options suited to an 80 column terminal
func DefaultOptions() Options {
	return Options{Height: 15, Width: 0, Color: true}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of f, or fallback when f is not a terminal
func TerminalWidth(f *os.File, fallback int) int {
	if !IsTerminal(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
