package timeseries

import (
	"fmt"
	"time"
)

// Point pairs a "show clock" timestamp with the usage sample reported after it
type Point struct {
	T time.Time `json:"t"` // Timestamp
	V float64   `json:"v"` // Usage percent
}

// NewPoint creates a new Point with the given timestamp and value
func NewPoint(t time.Time, v float64) Point {
	return Point{T: t, V: v}
}

// String renders the point the way the device prints it
func (p Point) String() string {
	return fmt.Sprintf("%s %g%%", p.T.Format("2006/01/02 15:04:05"), p.V)
}
