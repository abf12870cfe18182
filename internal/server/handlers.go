package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/aggregate"
	"github.com/aaronlmathis/cpuplot/internal/timeseries"
	"github.com/aaronlmathis/cpuplot/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SeriesPoint is a single sample in API responses
type SeriesPoint struct {
	T int64   `json:"t"` // Unix timestamp in milliseconds
	V float64 `json:"v"`
}

// SeriesResponse is the API view of one usage window
type SeriesResponse struct {
	Key     string            `json:"key"`
	Window  timeseries.Window `json:"window"`
	Label   string            `json:"label"`
	Aligned bool              `json:"aligned"`
	Summary aggregate.Summary `json:"summary"`
	Step    string            `json:"step,omitempty"`
	Points  []SeriesPoint     `json:"points"`
}

// SeriesListResponse lists the windows the report carries
type SeriesListResponse struct {
	Keys []string `json:"keys"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if h := s.report.SeriesHealth; h != nil {
		resp["series"] = h.GetStatus()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// handleGetReport handles GET /api/v1/report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.report)
}

// handleListSeries handles GET /api/v1/series
func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	keys := make([]string, 0, len(s.report.Windows))
	for _, wr := range s.report.Windows {
		keys = append(keys, wr.Window.Key())
	}
	writeJSON(w, http.StatusOK, SeriesListResponse{Keys: keys})
}

// handleGetSeries handles GET /api/v1/series/{window}?since=<RFC3339>&step=<duration>
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	windowParam := chi.URLParam(r, "window")
	sinceParam := r.URL.Query().Get("since")
	stepParam := r.URL.Query().Get("step")

	window, err := timeseries.ParseWindow(windowParam)
	if err != nil {
		s.logger.Warn("Invalid window parameter", zap.String("window", windowParam))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wr, ok := s.report.Window(window)
	if !ok || wr.Series == nil {
		writeError(w, http.StatusNotFound, "window not analyzed: "+string(window))
		return
	}

	var since time.Time
	if sinceParam != "" {
		since, err = time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			s.logger.Warn("Invalid since parameter", zap.String("since", sinceParam), zap.Error(err))
			writeError(w, http.StatusBadRequest, "Invalid since parameter. Must be an RFC 3339 time (e.g., '2024-01-15T10:00:00Z')")
			return
		}
	}

	var step time.Duration
	if stepParam != "" {
		step, err = time.ParseDuration(stepParam)
		if err != nil || step <= 0 {
			s.logger.Warn("Invalid step parameter", zap.String("step", stepParam))
			writeError(w, http.StatusBadRequest, "Invalid step parameter. Must be a positive duration (e.g., '5m', '1h')")
			return
		}
	}

	// filter before binning so no bin mixes in samples from before since
	points := timeseries.Downsample(wr.Series.GetSince(since), step)

	resp := SeriesResponse{
		Key:     window.Key(),
		Window:  window,
		Label:   wr.Label,
		Aligned: wr.Aligned,
		Summary: wr.Summary,
		Points:  make([]SeriesPoint, 0, len(points)),
	}
	if step > 0 {
		resp.Step = step.String()
	}
	for _, p := range points {
		resp.Points = append(resp.Points, SeriesPoint{T: p.T.UnixMilli(), V: p.V})
	}

	s.logger.Debug("Series API request",
		zap.String("window", string(window)),
		zap.String("since", sinceParam),
		zap.String("step", stepParam),
		zap.Int("total_points", len(resp.Points)))

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
