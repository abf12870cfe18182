package timeseries

import "sync"

// MemStore holds the series built for one analysis run, one per usage window.
// Every series it hands out shares the store's guardrails and health counters.
type MemStore struct {
	mu     sync.Mutex
	series map[Window]*Series
	config Config
	health *HealthMetrics
}

// NewMemStore creates an empty store with the given guardrails
func NewMemStore(config Config) *MemStore {
	health := NewHealthMetrics()
	health.SetLimits(config.MaxSeries, config.MaxPointsPerSeries)

	return &MemStore{
		series: make(map[Window]*Series),
		config: config,
		health: health,
	}
}

// Upsert returns the series for w, creating it on first use.
// It returns nil once MaxSeries series exist.
func (m *MemStore) Upsert(w Window) *Series {
	m.mu.Lock()
	defer m.mu.Unlock()

	if series, ok := m.series[w]; ok {
		return series
	}
	if !m.health.CheckSeriesLimit() {
		m.health.RecordError()
		return nil
	}

	series := NewSeriesWithHealth(m.config, m.health)
	m.series[w] = series
	m.health.IncrementSeriesCount()
	return series
}

// HealthSnapshot reports how close the run came to its guardrails
func (m *MemStore) HealthSnapshot() HealthSnapshot {
	return m.health.GetSnapshot()
}
