package chart

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SeriesDocument is the JSON form of a rendered series
type SeriesDocument struct {
	Title  string             `json:"title"`
	Count  int                `json:"count"`
	Points []timeseries.Point `json:"points"`
}

// JSONRenderer writes each series as a single JSON object per line
type JSONRenderer struct {
	enc *jsoniter.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(s *timeseries.Series, title string) error {
	points := s.Points()
	return r.enc.Encode(SeriesDocument{
		Title:  title,
		Count:  len(points),
		Points: points,
	})
}
