package timeseries

// Config holds guardrails for in-memory series
type Config struct {
	// Maximum number of series a store will create
	MaxSeries int

	// Maximum points kept per series; later points are dropped and counted
	MaxPointsPerSeries int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxSeries:          16,        // three usage windows plus headroom
		MaxPointsPerSeries: 1_000_000, // roughly a year of 30 second samples
	}
}
