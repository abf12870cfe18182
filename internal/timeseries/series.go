package timeseries

import (
	"sync"
	"time"
)

// Series is an ordered sequence of points for one usage window.
// Points keep the order they were added in, which is file order.
type Series struct {
	mu     sync.RWMutex
	config Config
	health *HealthMetrics

	points []Point
}

// NewSeries creates a new Series with the given configuration
func NewSeries(config Config) *Series {
	return &Series{config: config}
}

// NewSeriesWithHealth creates a new Series with health metrics tracking
func NewSeriesWithHealth(config Config, health *HealthMetrics) *Series {
	return &Series{
		config: config,
		health: health,
	}
}

// Add appends a point to the series. It returns false if the point was
// dropped because the series is full.
func (s *Series) Add(p Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := s.config.MaxPointsPerSeries
	if s.health != nil {
		if !s.health.CheckPointsLimit(len(s.points)) {
			s.health.RecordDroppedPoint()
			return false
		}
		s.health.RecordPointAdded()
	} else if limit > 0 && len(s.points) >= limit {
		return false
	}

	s.points = append(s.points, p)
	return true
}

// Len returns the number of points in the series
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Points returns a copy of all points in insertion order
func (s *Series) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the point values in insertion order
func (s *Series) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.V
	}
	return out
}

// Span returns the earliest and latest timestamps in the series
func (s *Series) Span() (first, last time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, p := range s.points {
		if i == 0 || p.T.Before(first) {
			first = p.T
		}
		if i == 0 || p.T.After(last) {
			last = p.T
		}
	}
	return first, last
}

// GetSince returns the points at or after since, in insertion order.
// A zero since returns every point.
func (s *Series) GetSince(since time.Time) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		if !since.IsZero() && p.T.Before(since) {
			continue
		}
		result = append(result, p)
	}
	return result
}
