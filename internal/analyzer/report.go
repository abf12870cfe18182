package analyzer

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aaronlmathis/cpuplot/internal/aggregate"
	"github.com/aaronlmathis/cpuplot/internal/parse"
	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// Record is one usage sample paired with the show clock that preceded it
type Record struct {
	Time      time.Time   `json:"time"`
	Usage     parse.Usage `json:"usage"`
	ClockLine int         `json:"clock_line"`
	UsageLine int         `json:"usage_line"`
}

// Value returns the sample for window w
func (r Record) Value(w timeseries.Window) float64 {
	switch w {
	case timeseries.OneMinute:
		return r.Usage.OneMinute
	case timeseries.FiveMinutes:
		return r.Usage.FiveMinutes
	default:
		return r.Usage.FiveSeconds
	}
}

// WindowReport summarizes one usage window
type WindowReport struct {
	Window     timeseries.Window  `json:"window"`
	Label      string             `json:"label"`
	Summary    aggregate.Summary  `json:"summary"`
	Timestamps int                `json:"timestamps"`
	Aligned    bool               `json:"aligned"`
	Series     *timeseries.Series `json:"-"`
}

// Title is the chart title for the window
func (w WindowReport) Title() string {
	return fmt.Sprintf("Control plane usage (%s)", w.Label)
}

// Report is the outcome of analyzing one log file
type Report struct {
	RunID       string         `json:"run_id"`
	Path        string         `json:"path"`
	Policy      string         `json:"policy"`
	Lines       int            `json:"lines"`
	Timestamps  int            `json:"timestamps"`
	Samples     int            `json:"samples"`
	Skipped     int            `json:"skipped"`
	Records     []Record       `json:"records"`
	Windows     []WindowReport `json:"windows"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
	Duration    time.Duration  `json:"duration_ns"`

	// SeriesHealth reports whether any series hit its size limits
	SeriesHealth *timeseries.HealthSnapshot `json:"series_health,omitempty"`
}

// Window returns the report for w, if it was analyzed
func (r *Report) Window(w timeseries.Window) (WindowReport, bool) {
	for _, wr := range r.Windows {
		if wr.Window == w {
			return wr, true
		}
	}
	return WindowReport{}, false
}

// WriteText prints the per-window averages and any diagnostics
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s: %s lines, %s timestamps, %s usage samples, %s skipped\n",
		r.Path,
		humanize.Comma(int64(r.Lines)),
		humanize.Comma(int64(r.Timestamps)),
		humanize.Comma(int64(r.Samples)),
		humanize.Comma(int64(r.Skipped)),
	); err != nil {
		return err
	}

	for _, wr := range r.Windows {
		s := wr.Summary
		line := fmt.Sprintf("Average %s: %.1f%% (n=%s", wr.Label, s.Average, humanize.Comma(int64(s.Count)))
		if s.Count > 0 {
			line += fmt.Sprintf(", min %g%%, max %g%%", s.Min, s.Max)
		}
		line += ")"
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for _, d := range r.Diagnostics {
		prefix := "Warning: "
		if d.Kind == DiagnosticFile || d.Kind == DiagnosticAlignment {
			prefix = "Error: "
		}
		if _, err := fmt.Fprintln(w, prefix+d.String()); err != nil {
			return err
		}
	}
	return nil
}
