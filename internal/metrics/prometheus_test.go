package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordParseError(t *testing.T) {
	c := parseErrorsTotal.With(prometheus.Labels{"field": "5 minutes", "reason": "missing anchor"})
	before := testutil.ToFloat64(c)

	RecordParseError("5 minutes", "missing anchor")
	RecordParseError("5 minutes", "missing anchor")

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestSetWindowSummary(t *testing.T) {
	SetWindowSummary("5s", 12.3, 7)

	assert.Equal(t, 12.3, testutil.ToFloat64(usageAveragePercent.With(prometheus.Labels{"window": "5s"})))
	assert.Equal(t, 7.0, testutil.ToFloat64(usageSamples.With(prometheus.Labels{"window": "5s"})))
}

func TestCounters(t *testing.T) {
	lines := testutil.ToFloat64(linesScannedTotal)
	RecordLinesScanned(40)
	assert.Equal(t, lines+40, testutil.ToFloat64(linesScannedTotal))

	clocks := testutil.ToFloat64(recordsExtractedTotal.With(prometheus.Labels{"kind": "clock"}))
	RecordExtracted("clock", 3)
	assert.Equal(t, clocks+3, testutil.ToFloat64(recordsExtractedTotal.With(prometheus.Labels{"kind": "clock"})))

	aligned := testutil.ToFloat64(alignmentErrorsTotal.With(prometheus.Labels{"window": "1m"}))
	RecordAlignmentError("1m")
	assert.Equal(t, aligned+1, testutil.ToFloat64(alignmentErrorsTotal.With(prometheus.Labels{"window": "1m"})))

	SetActiveSeries(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(seriesActive))

	RecordAnalyze("ok", 20*time.Millisecond)
	RecordHTTPRequest("GET", "/api/v1/report", 200, time.Millisecond)
	RecordRateLimitedRequest("/api/v1/report")
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.With(prometheus.Labels{
		"method": "GET", "path": "/api/v1/report", "status_code": "200",
	})))
}

func TestWriteTextfile(t *testing.T) {
	SetWindowSummary("5m", 8.3, 2)
	path := filepath.Join(t.TempDir(), "cpuplot.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cpuplot_usage_average_percent{window="5m"} 8.3`))
}

func TestWriteTextfileBadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "cpuplot.prom"))
	assert.Error(t, err)
}
