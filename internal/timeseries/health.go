package timeseries

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aaronlmathis/cpuplot/internal/metrics"
)

// HealthMetrics tracks how close the in-memory series are to their guardrails
type HealthMetrics struct {
	mu sync.RWMutex

	// Counters
	seriesCount      int64 // Current number of active series
	totalPointsAdded int64 // Total points added (lifetime)
	errorCount       int64 // Series creations rejected
	droppedPoints    int64 // Points dropped due to limits

	// Resource limits
	maxSeriesCount     int
	maxPointsPerSeries int
}

// NewHealthMetrics creates a new health metrics tracker
func NewHealthMetrics() *HealthMetrics {
	cfg := DefaultConfig()
	return &HealthMetrics{
		maxSeriesCount:     cfg.MaxSeries,
		maxPointsPerSeries: cfg.MaxPointsPerSeries,
	}
}

// SetLimits configures resource limits
func (h *HealthMetrics) SetLimits(maxSeries, maxPointsPerSeries int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxSeriesCount = maxSeries
	h.maxPointsPerSeries = maxPointsPerSeries
}

// IncrementSeriesCount increments the active series count
func (h *HealthMetrics) IncrementSeriesCount() {
	metrics.SetActiveSeries(atomic.AddInt64(&h.seriesCount, 1))
}

// RecordPointAdded records that a point was added to a series
func (h *HealthMetrics) RecordPointAdded() {
	atomic.AddInt64(&h.totalPointsAdded, 1)
	metrics.RecordSeriesPoint()
}

// RecordError records a rejected series creation
func (h *HealthMetrics) RecordError() {
	atomic.AddInt64(&h.errorCount, 1)
}

// RecordDroppedPoint records a point that was dropped due to limits
func (h *HealthMetrics) RecordDroppedPoint() {
	atomic.AddInt64(&h.droppedPoints, 1)
	metrics.RecordDroppedPoint()
}

// CheckSeriesLimit checks if creating a new series would exceed limits
func (h *HealthMetrics) CheckSeriesLimit() bool {
	current := atomic.LoadInt64(&h.seriesCount)
	h.mu.RLock()
	limit := h.maxSeriesCount
	h.mu.RUnlock()

	return limit <= 0 || int(current) < limit
}

// CheckPointsLimit checks if a series has room for another point
func (h *HealthMetrics) CheckPointsLimit(seriesPointCount int) bool {
	h.mu.RLock()
	limit := h.maxPointsPerSeries
	h.mu.RUnlock()

	return limit <= 0 || seriesPointCount < limit
}

// GetSnapshot returns a snapshot of current health metrics
func (h *HealthMetrics) GetSnapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HealthSnapshot{
		SeriesCount:        atomic.LoadInt64(&h.seriesCount),
		TotalPointsAdded:   atomic.LoadInt64(&h.totalPointsAdded),
		ErrorCount:         atomic.LoadInt64(&h.errorCount),
		DroppedPoints:      atomic.LoadInt64(&h.droppedPoints),
		MaxSeriesCount:     h.maxSeriesCount,
		MaxPointsPerSeries: h.maxPointsPerSeries,
		Timestamp:          time.Now(),
	}
}

// HealthSnapshot represents a point-in-time snapshot of health metrics
type HealthSnapshot struct {
	SeriesCount        int64     `json:"series_count"`
	TotalPointsAdded   int64     `json:"total_points_added"`
	ErrorCount         int64     `json:"error_count"`
	DroppedPoints      int64     `json:"dropped_points"`
	MaxSeriesCount     int       `json:"max_series_count"`
	MaxPointsPerSeries int       `json:"max_points_per_series"`
	Timestamp          time.Time `json:"timestamp"`
}

// IsHealthy returns false once any point was dropped or a series was rejected
func (s HealthSnapshot) IsHealthy() bool {
	return s.DroppedPoints == 0 && s.ErrorCount == 0
}

// GetStatus returns a human-readable status string
func (s HealthSnapshot) GetStatus() string {
	switch {
	case s.IsHealthy():
		return "healthy"
	case s.DroppedPoints > 0:
		return "warning: points dropped at series limit"
	default:
		return "warning: series limit reached"
	}
}
