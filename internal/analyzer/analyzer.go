// Package analyzer runs the extraction, parsing, pairing and aggregation of a
// control plane usage log and hands aligned series to a chart renderer.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/aggregate"
	"github.com/aaronlmathis/cpuplot/internal/chart"
	"github.com/aaronlmathis/cpuplot/internal/extract"
	"github.com/aaronlmathis/cpuplot/internal/metrics"
	"github.com/aaronlmathis/cpuplot/internal/parse"
	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// Options configures an Analyzer.
//
// Policy decides what a record that fails to parse does to the run:
// parse.SkipAndContinue (the default) drops the record, logs a warning and
// records a Diagnostic; parse.FailFast stops the run and Analyze returns the
// *parse.ParseError together with the partial report.
//
// A skipped record still counts against alignment. The clock or sample it
// leaves without a partner means no window is charted, even though
// Report.Records keeps every pair that did parse. Averages are still printed.
type Options struct {
	Policy   parse.Policy
	Location *time.Location      // zone of "show clock" times, nil = UTC
	Windows  []timeseries.Window // windows to report, empty = all
	Series   timeseries.Config
}

// DefaultOptions returns skip-and-continue over all three windows
func DefaultOptions() Options {
	return Options{
		Policy:  parse.SkipAndContinue,
		Windows: timeseries.AllWindows(),
		Series:  timeseries.DefaultConfig(),
	}
}

// Analyzer turns a log file into a Report
type Analyzer struct {
	logger *zap.Logger
	opts   Options
}

// New creates an Analyzer
func New(logger *zap.Logger, opts Options) *Analyzer {
	if len(opts.Windows) == 0 {
		opts.Windows = timeseries.AllWindows()
	}
	if opts.Series == (timeseries.Config{}) {
		opts.Series = timeseries.DefaultConfig()
	}
	return &Analyzer{logger: logger, opts: opts}
}

// clockStamp is a parsed show clock waiting for its usage sample
type clockStamp struct {
	t    time.Time
	line int
}

// Analyze reads the log at path and builds a report. A file that cannot be
// read yields an empty report with a diagnostic and a nil error. The only
// errors returned are context cancellation and, under parse.FailFast, the
// first parse failure.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:  uuid.NewString(),
		Path:   path,
		Policy: a.opts.Policy.String(),
	}
	logger := a.logger.With(zap.String("runId", report.RunID), zap.String("path", path))

	outcome := "ok"
	defer func() {
		report.Duration = time.Since(start)
		metrics.RecordAnalyze(outcome, report.Duration)
	}()

	res, err := extract.ScanFile(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
			return nil, err
		}
		outcome = "file_error"
		logger.Error("Failed to read log file", zap.Error(err))
		report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: DiagnosticFile, Message: err.Error()})
		return report, nil
	}

	report.Lines = res.Lines
	metrics.RecordLinesScanned(res.Lines)
	metrics.RecordExtracted("clock", len(res.Clocks))
	metrics.RecordExtracted("usage", len(res.Usages))
	logger.Debug("Extracted marker records",
		zap.Int("lines", res.Lines),
		zap.Int("clocks", len(res.Clocks)),
		zap.Int("usages", len(res.Usages)))
	if len(res.Truncated) > 0 {
		logger.Warn("Truncated overlong lines",
			zap.Ints("lines", res.Truncated))
	}

	var (
		samples         []parse.Usage
		pending         *clockStamp
		unpairedSamples int
		unpairedClocks  int
	)

	for _, entry := range res.Order {
		if entry.Clock {
			cl := res.Clocks[entry.Index]
			ts, err := parse.Timestamp(cl.Text, a.opts.Location)
			if err != nil {
				if ferr := a.reject(logger, report, cl.Line, err); ferr != nil {
					outcome = "parse_error"
					return report, ferr
				}
				continue
			}
			report.Timestamps++
			if pending != nil {
				unpairedClocks++
				report.Diagnostics = append(report.Diagnostics, Diagnostic{
					Kind:    DiagnosticPairing,
					Line:    pending.line,
					Message: "show clock not followed by a usage sample",
				})
			}
			pending = &clockStamp{t: ts, line: cl.Line}
			continue
		}

		ul := res.Usages[entry.Index]
		u, err := parse.UsageLine(ul.Text)
		if err != nil {
			if ferr := a.reject(logger, report, ul.Line, err); ferr != nil {
				outcome = "parse_error"
				return report, ferr
			}
			continue
		}
		report.Samples++
		samples = append(samples, u)

		if pending == nil {
			unpairedSamples++
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:    DiagnosticPairing,
				Line:    ul.Line,
				Message: "usage sample without a preceding show clock",
			})
			continue
		}
		report.Records = append(report.Records, Record{
			Time:      pending.t,
			Usage:     u,
			ClockLine: pending.line,
			UsageLine: ul.Line,
		})
		pending = nil
	}
	if pending != nil {
		unpairedClocks++
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Kind:    DiagnosticPairing,
			Line:    pending.line,
			Message: "show clock not followed by a usage sample",
		})
	}

	store := timeseries.NewMemStore(a.opts.Series)
	for _, w := range a.opts.Windows {
		wr := a.window(logger, store, w, report, samples, unpairedSamples+unpairedClocks)
		report.Windows = append(report.Windows, wr)
	}

	snap := store.HealthSnapshot()
	report.SeriesHealth = &snap
	if !snap.IsHealthy() {
		logger.Warn("Series guardrails hit",
			zap.String("status", snap.GetStatus()),
			zap.Int64("droppedPoints", snap.DroppedPoints))
	}

	logger.Info("Analyzed log file",
		zap.Int("lines", report.Lines),
		zap.Int("timestamps", report.Timestamps),
		zap.Int("samples", report.Samples),
		zap.Int("records", len(report.Records)),
		zap.Int("skipped", report.Skipped))

	return report, nil
}

// window summarizes and builds the series for one usage window
func (a *Analyzer) window(logger *zap.Logger, store *timeseries.MemStore, w timeseries.Window,
	report *Report, samples []parse.Usage, unpaired int) WindowReport {

	values := make([]float64, len(samples))
	for i, u := range samples {
		values[i] = Record{Usage: u}.Value(w)
	}

	wr := WindowReport{
		Window:     w,
		Label:      w.Label(),
		Summary:    aggregate.Summarize(values),
		Timestamps: report.Timestamps,
		Series:     store.Upsert(w),
	}
	if wr.Series == nil {
		wr.Series = timeseries.NewSeries(a.opts.Series)
	}
	for _, rec := range report.Records {
		wr.Series.Add(timeseries.NewPoint(rec.Time, rec.Value(w)))
	}

	wr.Aligned = report.Timestamps == wr.Summary.Count && unpaired == 0 && wr.Series.Len() == wr.Summary.Count
	if !wr.Aligned {
		aerr := &AlignmentError{
			Window:     w,
			Timestamps: report.Timestamps,
			Samples:    wr.Summary.Count,
			Unpaired:   unpaired,
			Dropped:    len(report.Records) - wr.Series.Len(),
		}
		metrics.RecordAlignmentError(string(w))
		logger.Warn("Series not aligned", zap.String("window", string(w)), zap.Error(aerr))
		report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: DiagnosticAlignment, Message: aerr.Error()})
	}

	metrics.SetWindowSummary(string(w), wr.Summary.Average, wr.Summary.Count)
	return wr
}

// reject handles a record that failed to parse. It returns a non-nil error
// when the run has to stop.
func (a *Analyzer) reject(logger *zap.Logger, report *Report, line int, err error) error {
	report.Skipped++

	fields := []zap.Field{zap.Int("line", line), zap.Error(err)}
	var perr *parse.ParseError
	if errors.As(err, &perr) {
		metrics.RecordParseError(string(perr.Field), string(perr.Reason))
		fields = append(fields, zap.String("field", string(perr.Field)), zap.String("raw", perr.Raw))
	}
	report.Diagnostics = append(report.Diagnostics, Diagnostic{Kind: DiagnosticParse, Line: line, Message: err.Error()})

	if a.opts.Policy == parse.FailFast {
		logger.Error("Stopping on malformed record", fields...)
		return fmt.Errorf("line %d: %w", line, err)
	}

	logger.Warn("Skipping malformed record", fields...)
	return nil
}

// Render draws every aligned, non-empty window of the report with r, once
// per window. Misaligned windows were already reported by Analyze and are
// skipped here.
func (a *Analyzer) Render(report *Report, r chart.Renderer) error {
	var errs []error
	for _, wr := range report.Windows {
		if !wr.Aligned {
			a.logger.Debug("Skipping misaligned series", zap.String("window", string(wr.Window)))
			continue
		}
		if wr.Series == nil || wr.Series.Len() == 0 {
			a.logger.Debug("Skipping empty series", zap.String("window", string(wr.Window)))
			continue
		}
		if err := r.Render(wr.Series, wr.Title()); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", wr.Label, err))
		}
	}
	return errors.Join(errs...)
}
