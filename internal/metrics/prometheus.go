package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for log analysis runs
var (
	// Extraction metrics
	linesScannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cpuplot_lines_scanned_total",
			Help: "Total number of log lines scanned",
		},
	)

	recordsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpuplot_records_extracted_total",
			Help: "Total number of marker records extracted from logs",
		},
		[]string{"kind"},
	)

	// Parse metrics
	parseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpuplot_parse_errors_total",
			Help: "Total number of records rejected by the field parser",
		},
		[]string{"field", "reason"},
	)

	alignmentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpuplot_alignment_errors_total",
			Help: "Total number of series skipped because timestamps and samples did not line up",
		},
		[]string{"window"},
	)

	// Result metrics
	usageAveragePercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpuplot_usage_average_percent",
			Help: "Average control plane usage of the last analyzed log, per window",
		},
		[]string{"window"},
	)

	usageSamples = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpuplot_usage_samples",
			Help: "Number of usage samples in the last analyzed log, per window",
		},
		[]string{"window"},
	)

	analyzeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpuplot_analyze_duration_seconds",
			Help:    "Duration of a full log analysis",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30}, // 10ms to 30s
		},
		[]string{"outcome"},
	)

	// Series store metrics
	seriesPointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cpuplot_series_points_total",
			Help: "Total number of points added to usage series",
		},
	)

	seriesDroppedPointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cpuplot_series_dropped_points_total",
			Help: "Total number of points dropped due to series limits",
		},
	)

	seriesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cpuplot_series_active",
			Help: "Current number of usage series held in memory",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpuplot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpuplot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	rateLimitedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpuplot_rate_limited_requests_total",
			Help: "Total number of rate limited requests",
		},
		[]string{"path"},
	)
)

// RecordLinesScanned adds n scanned lines
func RecordLinesScanned(n int) {
	linesScannedTotal.Add(float64(n))
}

// RecordExtracted records extracted marker records of a kind ("clock" or "usage")
func RecordExtracted(kind string, n int) {
	recordsExtractedTotal.With(prometheus.Labels{"kind": kind}).Add(float64(n))
}

// RecordParseError records a record rejected by the parser
func RecordParseError(field, reason string) {
	parseErrorsTotal.With(prometheus.Labels{
		"field":  field,
		"reason": reason,
	}).Inc()
}

// RecordAlignmentError records a series that could not be plotted
func RecordAlignmentError(window string) {
	alignmentErrorsTotal.With(prometheus.Labels{"window": window}).Inc()
}

// SetWindowSummary publishes the average and sample count of a window
func SetWindowSummary(window string, average float64, count int) {
	usageAveragePercent.With(prometheus.Labels{"window": window}).Set(average)
	usageSamples.With(prometheus.Labels{"window": window}).Set(float64(count))
}

// RecordAnalyze records how long an analysis took and how it ended
func RecordAnalyze(outcome string, duration time.Duration) {
	analyzeDuration.With(prometheus.Labels{"outcome": outcome}).Observe(duration.Seconds())
}

// RecordSeriesPoint records when a point is added to a series
func RecordSeriesPoint() {
	seriesPointsTotal.Inc()
}

// RecordDroppedPoint records a point dropped at the series limit
func RecordDroppedPoint() {
	seriesDroppedPointsTotal.Inc()
}

// SetActiveSeries sets the number of series held in memory
func SetActiveSeries(n int64) {
	seriesActive.Set(float64(n))
}

// RecordHTTPRequest records metrics for HTTP requests
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	labels := prometheus.Labels{
		"method":      method,
		"path":        path,
		"status_code": strconv.Itoa(statusCode),
	}

	httpRequestsTotal.With(labels).Inc()
	httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// RecordRateLimitedRequest records rate limiting metrics
func RecordRateLimitedRequest(path string) {
	rateLimitedRequestsTotal.With(prometheus.Labels{"path": path}).Inc()
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
