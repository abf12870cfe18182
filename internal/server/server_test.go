package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/analyzer"
	"github.com/aaronlmathis/cpuplot/internal/config"
	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

const testLog = `------------------ show clock @ 2024/01/15 10:00:00------------------
Current control plane usage versus the control plane cores elapsed for:
5 seconds = 12.5%; 1 minute: 10.0%; 5 minutes: 8.0%
------------------ show clock @ 2024/01/15 10:02:00------------------
Current control plane usage versus the control plane cores elapsed for:
5 seconds = 20.0%; 1 minute: 15.0%; 5 minutes: 9.0%
------------------ show clock @ 2024/01/15 10:10:00------------------
Current control plane usage versus the control plane cores elapsed for:
5 seconds = 30.0%; 1 minute: 20.0%; 5 minutes: 10.0%
`

func newTestServer(t *testing.T, rpm int) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "router.log")
	require.NoError(t, os.WriteFile(path, []byte(testLog), 0o644))

	report, err := analyzer.New(zap.NewNop(), analyzer.DefaultOptions()).Analyze(context.Background(), path)
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Server.RequestsPerMinute = rpm

	return New(zap.NewNop(), cfg, report)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t, 60)

	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","series":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(t, s, "/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"cpuplot"`)
}

func TestGetReport(t *testing.T) {
	s := newTestServer(t, 60)

	rec := get(t, s, "/api/v1/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Timestamps int `json:"timestamps"`
		Samples    int `json:"samples"`
		Windows    []struct {
			Window  string `json:"window"`
			Aligned bool   `json:"aligned"`
			Summary struct {
				Count   int     `json:"count"`
				Average float64 `json:"average"`
			} `json:"summary"`
		} `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 3, body.Timestamps)
	assert.Equal(t, 3, body.Samples)
	require.Len(t, body.Windows, 3)
	assert.Equal(t, "5s", body.Windows[0].Window)
	assert.True(t, body.Windows[0].Aligned)
	assert.Equal(t, 20.8, body.Windows[0].Summary.Average)
}

func TestListSeries(t *testing.T) {
	s := newTestServer(t, 60)

	rec := get(t, s, "/api/v1/series")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SeriesListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{
		timeseries.CPUsage5sPercent,
		timeseries.CPUsage1mPercent,
		timeseries.CPUsage5mPercent,
	}, body.Keys)
}

func TestGetSeries(t *testing.T) {
	s := newTestServer(t, 60)

	t.Run("All", func(t *testing.T) {
		rec := get(t, s, "/api/v1/series/1m")
		require.Equal(t, http.StatusOK, rec.Code)

		var body SeriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "cp.usage.1m.percent", body.Key)
		assert.Equal(t, "1 minute", body.Label)
		assert.True(t, body.Aligned)
		require.Len(t, body.Points, 3)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).UnixMilli(), body.Points[0].T)
		assert.Equal(t, 10.0, body.Points[0].V)
	})

	t.Run("DeviceWording", func(t *testing.T) {
		rec := get(t, s, "/api/v1/series/5%20minutes")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Since", func(t *testing.T) {
		rec := get(t, s, "/api/v1/series/5s?since=2024-01-15T10:01:00Z")
		require.Equal(t, http.StatusOK, rec.Code)

		var body SeriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Points, 2)
		assert.Equal(t, 20.0, body.Points[0].V)
	})

	t.Run("Step", func(t *testing.T) {
		rec := get(t, s, "/api/v1/series/5m?step=5m")
		require.Equal(t, http.StatusOK, rec.Code)

		var body SeriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "5m0s", body.Step)
		// 10:00 and 10:02 share a bin, 10:10 is alone
		require.Len(t, body.Points, 2)
		assert.Equal(t, 8.5, body.Points[0].V)
		assert.Equal(t, 10.0, body.Points[1].V)
	})

	t.Run("SinceThenStep", func(t *testing.T) {
		rec := get(t, s, "/api/v1/series/5s?since=2024-01-15T10:01:00Z&step=5m")
		require.Equal(t, http.StatusOK, rec.Code)

		var body SeriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		// the 10:00 bin holds only the 10:02 sample
		require.Len(t, body.Points, 2)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).UnixMilli(), body.Points[0].T)
		assert.Equal(t, 20.0, body.Points[0].V)
		assert.Equal(t, 30.0, body.Points[1].V)
	})

	for _, tt := range []struct {
		name   string
		target string
		want   int
	}{
		{"UnknownWindow", "/api/v1/series/15m", http.StatusBadRequest},
		{"BadSince", "/api/v1/series/5s?since=yesterday", http.StatusBadRequest},
		{"BadStep", "/api/v1/series/5s?step=-1m", http.StatusBadRequest},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGetSeriesNotAnalyzed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.log")
	require.NoError(t, os.WriteFile(path, []byte(testLog), 0o644))

	opts := analyzer.DefaultOptions()
	opts.Windows = []timeseries.Window{timeseries.FiveSeconds}
	report, err := analyzer.New(zap.NewNop(), opts).Analyze(context.Background(), path)
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)

	rec := get(t, New(zap.NewNop(), cfg, report), "/api/v1/series/1m")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 60)
	get(t, s, "/api/v1/report")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cpuplot_http_requests_total")
	assert.Contains(t, rec.Body.String(), "cpuplot_usage_average_percent")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 1)

	// burst of 10, then one request per minute
	for i := 0; i < 10; i++ {
		rec := get(t, s, "/api/v1/report")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := get(t, s, "/api/v1/report")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// health checks are not limited
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)

	// other clients have their own budget
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	other := httptest.NewRecorder()
	s.Handler().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	l := NewRateLimiter(zap.NewNop(), 1)
	clock := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	for i := 0; i < limiterBurst; i++ {
		require.True(t, l.allow("192.0.2.1"), "request %d", i)
	}
	assert.False(t, l.allow("192.0.2.1"))
	assert.True(t, l.allow("192.0.2.2"))
	assert.Equal(t, 2, l.clients())

	// 192.0.2.2 stays active, 192.0.2.1 goes quiet
	clock = clock.Add(limiterIdleTTL / 2)
	assert.True(t, l.allow("192.0.2.2"))

	clock = clock.Add(limiterIdleTTL / 2)
	assert.True(t, l.allow("198.51.100.7"))
	assert.Equal(t, 2, l.clients(), "idle client dropped")

	// the dropped client comes back with a full burst
	for i := 0; i < limiterBurst; i++ {
		assert.True(t, l.allow("192.0.2.1"), "request %d", i)
	}
}

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		"/healthz":              "/healthz",
		"/api/v1/report/":       "/api/v1/report",
		"/api/v1/series":        "/api/v1/series",
		"/api/v1/series/5s":     "/api/v1/series/:window",
		"/api/v1/series/whatev": "/api/v1/series/:window",
		"/random/" + strings.Repeat("x", 10): "other",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizePath(in), in)
	}
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "192.0.2.1", clientKey("192.0.2.1:1234"))
	assert.Equal(t, "2001:db8::1", clientKey("[2001:db8::1]:443"))
	assert.Equal(t, "192.0.2.1", clientKey("192.0.2.1"))
}

func TestRunShutsDown(t *testing.T) {
	s := newTestServer(t, 60)
	s.config.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestETag(t *testing.T) {
	s := newTestServer(t, 60)

	first := get(t, s, "/api/v1/series/5s")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.NotEmpty(t, first.Header().Get("Last-Modified"))
	assert.Equal(t, "application/json", first.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/5s", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/series/5s", nil)
	req.Header.Set("If-None-Match", `"deadbeef"`)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.Body.String(), rec.Body.String())

	// errors are passed through untagged
	bad := get(t, s, "/api/v1/series/15m")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Empty(t, bad.Header().Get("ETag"))
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, "abc"))
	assert.True(t, etagMatches(`W/"abc"`, "abc"))
	assert.True(t, etagMatches(`"x", "abc"`, "abc"))
	assert.True(t, etagMatches("*", "abc"))
	assert.False(t, etagMatches(`"abd"`, "abc"))
}
