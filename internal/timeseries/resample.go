package timeseries

import (
	"math"
	"sort"
	"time"
)

// byTime returns a copy of points sorted by timestamp, keeping file order for ties
func byTime(points []Point) []Point {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T.Before(sorted[j].T) })
	return sorted
}

// Downsample averages points into bins of width step, ordered by time.
// Each bin point carries the bin start as its timestamp. A step <= 0
// returns the points unchanged.
func Downsample(points []Point, step time.Duration) []Point {
	if step <= 0 || len(points) == 0 {
		return points
	}

	var (
		result   []Point
		lastBin  time.Time
		binSum   float64
		binCount int
	)

	for _, p := range byTime(points) {
		binStart := p.T.Truncate(step)

		if binCount > 0 && binStart.Equal(lastBin) {
			binSum += p.V
			binCount++
			continue
		}

		// New bin, finalize previous bin
		if binCount > 0 {
			result = append(result, Point{T: lastBin, V: binSum / float64(binCount)})
		}
		lastBin = binStart
		binSum = p.V
		binCount = 1
	}

	if binCount > 0 {
		result = append(result, Point{T: lastBin, V: binSum / float64(binCount)})
	}

	return result
}

// Resample lays points onto n columns evenly spaced in time from the first
// to the last timestamp, so the distance between columns is the same number
// of seconds everywhere. Points landing in the same column are averaged.
// Empty columns are interpolated linearly from the nearest filled columns.
func Resample(points []Point, n int) []Point {
	if n <= 0 || len(points) == 0 {
		return nil
	}

	sorted := byTime(points)
	first, last := sorted[0].T, sorted[len(sorted)-1].T
	span := last.Sub(first)

	out := make([]Point, n)
	if span <= 0 || n == 1 {
		var sum float64
		for _, p := range sorted {
			sum += p.V
		}
		for c := range out {
			out[c] = Point{T: first, V: sum / float64(len(sorted))}
		}
		return out
	}

	sums := make([]float64, n)
	counts := make([]int, n)
	for _, p := range sorted {
		c := int(math.Round(float64(p.T.Sub(first)) / float64(span) * float64(n-1)))
		sums[c] += p.V
		counts[c]++
	}

	// the first and last points always land in the first and last columns
	prev := -1
	for c := range out {
		out[c].T = first.Add(time.Duration(float64(span) * float64(c) / float64(n-1)))
		if counts[c] == 0 {
			continue
		}
		out[c].V = sums[c] / float64(counts[c])
		for g := prev + 1; prev >= 0 && g < c; g++ {
			frac := float64(g-prev) / float64(c-prev)
			out[g].V = out[prev].V + (out[c].V-out[prev].V)*frac
		}
		prev = c
	}

	return out
}
