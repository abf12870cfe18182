// Package aggregate reduces usage samples to the figures printed in a report.
package aggregate

import "strconv"

// Summary describes a sequence of usage samples. Count is zero when there was
// no data, which is how callers tell "no samples" apart from an average of 0.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Average returns the arithmetic mean of values rounded to one decimal place.
// An empty input yields 0.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round1(sum / float64(len(values)))
}

// Summarize returns count, rounded average, min and max of values
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values), Average: Average(values)}
	for i, v := range values {
		if i == 0 || v < s.Min {
			s.Min = v
		}
		if i == 0 || v > s.Max {
			s.Max = v
		}
	}
	return s
}

// Round1 rounds x to one decimal place. The decimal is chosen from the exact
// binary value of x, and exact halves go to the even digit.
func Round1(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	return r
}
