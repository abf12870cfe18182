package analyzer

import (
	"fmt"

	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// AlignmentError reports a window whose timestamps and samples do not pair up
// one to one. The window is summarized but not plotted.
type AlignmentError struct {
	Window     timeseries.Window
	Timestamps int
	Samples    int
	Unpaired   int
	Dropped    int // points the series could not hold
}

func (e *AlignmentError) Error() string {
	switch {
	case e.Timestamps != e.Samples:
		return fmt.Sprintf("%s: %d timestamps but %d usage samples, not plotting",
			e.Window.Label(), e.Timestamps, e.Samples)
	case e.Unpaired > 0:
		return fmt.Sprintf("%s: %d usage samples without a matching show clock, not plotting",
			e.Window.Label(), e.Unpaired)
	default:
		return fmt.Sprintf("%s: %d points over the series limit, not plotting",
			e.Window.Label(), e.Dropped)
	}
}

// DiagnosticKind classifies a Diagnostic
type DiagnosticKind string

const (
	DiagnosticFile      DiagnosticKind = "file"
	DiagnosticParse     DiagnosticKind = "parse"
	DiagnosticPairing   DiagnosticKind = "pairing"
	DiagnosticAlignment DiagnosticKind = "alignment"
)

// Diagnostic is a problem found during a run that did not stop it
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Line    int            `json:"line,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", d.Kind, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}
