package timeseries

import (
	"testing"
	"time"
)

func TestSeries(t *testing.T) {
	config := Config{
		MaxSeries:          3,
		MaxPointsPerSeries: 5, // Small for testing
	}
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("AddKeepsFileOrder", func(t *testing.T) {
		s := NewSeries(config)

		// timestamps going backwards still keep insertion order
		s.Add(NewPoint(base.Add(2*time.Minute), 3))
		s.Add(NewPoint(base, 1))
		s.Add(NewPoint(base.Add(time.Minute), 2))

		values := s.Values()
		want := []float64{3, 1, 2}
		if len(values) != len(want) {
			t.Fatalf("Expected %d values, got %d", len(want), len(values))
		}
		for i := range want {
			if values[i] != want[i] {
				t.Errorf("Expected value %v at %d, got %v", want[i], i, values[i])
			}
		}

		if points := s.Points(); !points[1].T.Equal(base) {
			t.Errorf("Expected second timestamp %v, got %v", base, points[1].T)
		}

		first, last := s.Span()
		if !first.Equal(base) || !last.Equal(base.Add(2*time.Minute)) {
			t.Errorf("Unexpected span %v - %v", first, last)
		}
	})

	t.Run("LimitDropsPoints", func(t *testing.T) {
		s := NewSeries(config)
		for i := 0; i < 8; i++ {
			added := s.Add(NewPoint(base.Add(time.Duration(i)*time.Minute), float64(i)))
			if i < 5 && !added {
				t.Errorf("Expected point %d to be added", i)
			}
			if i >= 5 && added {
				t.Errorf("Expected point %d to be dropped", i)
			}
		}
		if s.Len() != 5 {
			t.Errorf("Expected 5 points, got %d", s.Len())
		}
	})

	t.Run("PointsIsACopy", func(t *testing.T) {
		s := NewSeries(config)
		s.Add(NewPoint(base, 1))

		points := s.Points()
		points[0].V = 99

		if s.Values()[0] != 1 {
			t.Error("Expected series to be unaffected by caller mutation")
		}
	})

	t.Run("GetSince", func(t *testing.T) {
		s := NewSeries(config)
		for i := 0; i < 4; i++ {
			s.Add(NewPoint(base.Add(time.Duration(i)*time.Minute), float64(i)))
		}

		got := s.GetSince(base.Add(2 * time.Minute))
		if len(got) != 2 {
			t.Fatalf("Expected 2 points, got %d", len(got))
		}
		if got[0].V != 2 {
			t.Errorf("Expected first value 2, got %v", got[0].V)
		}

		if all := s.GetSince(time.Time{}); len(all) != 4 {
			t.Errorf("Expected zero since to return all points, got %d", len(all))
		}
	})
}

func TestDownsample(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	// two points in the first 5 minute bin, one in the second, out of order
	points := []Point{
		NewPoint(base.Add(6*time.Minute), 30),
		NewPoint(base, 10),
		NewPoint(base.Add(2*time.Minute), 20),
	}

	t.Run("FiveMinuteBins", func(t *testing.T) {
		bins := Downsample(points, 5*time.Minute)
		if len(bins) != 2 {
			t.Fatalf("Expected 2 bins, got %d", len(bins))
		}
		if !bins[0].T.Equal(base) || bins[0].V != 15 {
			t.Errorf("Unexpected first bin %+v", bins[0])
		}
		if !bins[1].T.Equal(base.Add(5*time.Minute)) || bins[1].V != 30 {
			t.Errorf("Unexpected second bin %+v", bins[1])
		}
	})

	t.Run("FineStep", func(t *testing.T) {
		if bins := Downsample(points, time.Minute); len(bins) != 3 {
			t.Errorf("Expected one bin per point, got %d", len(bins))
		}
	})

	t.Run("NoStep", func(t *testing.T) {
		if bins := Downsample(points, 0); len(bins) != 3 || bins[0].V != 30 {
			t.Errorf("Expected points unchanged, got %+v", bins)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if bins := Downsample(nil, time.Minute); len(bins) != 0 {
			t.Errorf("Expected no bins, got %d", len(bins))
		}
	})

	t.Run("InputNotReordered", func(t *testing.T) {
		Downsample(points, 5*time.Minute)
		if points[0].V != 30 {
			t.Error("Expected caller slice to keep its order")
		}
	})
}

func TestSinceThenDownsample(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := NewSeries(DefaultConfig())
	s.Add(NewPoint(base, 10))
	s.Add(NewPoint(base.Add(2*time.Minute), 20))
	s.Add(NewPoint(base.Add(10*time.Minute), 30))

	// the 10:00 bin keeps the 10:02 sample but not the 10:00 one
	bins := Downsample(s.GetSince(base.Add(time.Minute)), 5*time.Minute)
	if len(bins) != 2 {
		t.Fatalf("Expected 2 bins, got %+v", bins)
	}
	if !bins[0].T.Equal(base) || bins[0].V != 20 {
		t.Errorf("Unexpected first bin %+v", bins[0])
	}
	if bins[1].V != 30 {
		t.Errorf("Unexpected second bin %+v", bins[1])
	}
}

func TestResample(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("UnevenGapsFollowTime", func(t *testing.T) {
		// 1 minute gap then 9 minute gap across 11 columns, one per minute
		points := []Point{
			NewPoint(base, 10),
			NewPoint(base.Add(time.Minute), 20),
			NewPoint(base.Add(10*time.Minute), 20),
		}
		cols := Resample(points, 11)
		if len(cols) != 11 {
			t.Fatalf("Expected 11 columns, got %d", len(cols))
		}
		for c, p := range cols {
			if want := base.Add(time.Duration(c) * time.Minute); !p.T.Equal(want) {
				t.Errorf("Column %d at %v, want %v", c, p.T, want)
			}
		}
		if cols[0].V != 10 || cols[1].V != 20 {
			t.Errorf("Expected the second sample in column 1, got %v %v", cols[0].V, cols[1].V)
		}
		// the long gap is flat, not squeezed into one step
		for c := 2; c < 11; c++ {
			if cols[c].V != 20 {
				t.Errorf("Expected column %d to hold 20, got %v", c, cols[c].V)
			}
		}
	})

	t.Run("Interpolates", func(t *testing.T) {
		cols := Resample([]Point{NewPoint(base, 0), NewPoint(base.Add(4*time.Minute), 40)}, 5)
		want := []float64{0, 10, 20, 30, 40}
		for c := range want {
			if cols[c].V != want[c] {
				t.Errorf("Column %d: expected %v, got %v", c, want[c], cols[c].V)
			}
		}
	})

	t.Run("AveragesCrowdedColumns", func(t *testing.T) {
		var points []Point
		for i := 0; i < 100; i++ {
			points = append(points, NewPoint(base.Add(time.Duration(i)*time.Second), float64(i%2)))
		}
		cols := Resample(points, 10)
		if len(cols) != 10 {
			t.Fatalf("Expected 10 columns, got %d", len(cols))
		}
		// six alternating samples share each edge column
		if cols[0].V != 0.5 || cols[9].V != 0.5 {
			t.Errorf("Unexpected edge columns %v %v", cols[0].V, cols[9].V)
		}
	})

	t.Run("SingleInstant", func(t *testing.T) {
		cols := Resample([]Point{NewPoint(base, 5), NewPoint(base, 15)}, 4)
		if len(cols) != 4 || cols[0].V != 10 || cols[3].V != 10 {
			t.Errorf("Expected a flat line at the mean, got %+v", cols)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if cols := Resample(nil, 10); cols != nil {
			t.Errorf("Expected nil, got %+v", cols)
		}
	})
}
