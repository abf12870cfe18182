package chart

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// axisOffset approximates the width of the y-axis labels asciigraph draws
const axisOffset = 10

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // cyan
	styleAxis  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))           // gray
	styleEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))           // yellow
)

// TextRenderer draws a line chart of the series with a time axis to w
type TextRenderer struct {
	w    io.Writer
	opts Options
}

// NewTextRenderer returns a Renderer that writes terminal charts to w
func NewTextRenderer(w io.Writer, opts Options) *TextRenderer {
	if opts.Height <= 0 {
		opts.Height = DefaultOptions().Height
	}
	return &TextRenderer{w: w, opts: opts}
}

func (r *TextRenderer) Render(s *timeseries.Series, title string) error {
	if _, err := fmt.Fprintln(r.w, r.style(styleTitle, title)); err != nil {
		return err
	}

	if s.Len() == 0 {
		_, err := fmt.Fprintln(r.w, r.style(styleEmpty, "  (no samples)"))
		return err
	}

	cols := r.opts.Width
	if cols <= 0 {
		cols = 80
	}
	cols -= axisOffset + 2
	if cols < 10 {
		cols = 10
	}

	values := columns(s, cols)

	plotOpts := []asciigraph.Option{
		asciigraph.Height(r.opts.Height),
		asciigraph.Width(cols),
		asciigraph.LowerBound(0),
		asciigraph.Precision(1),
	}
	if r.opts.Color {
		plotOpts = append(plotOpts,
			asciigraph.SeriesColors(asciigraph.Green),
			asciigraph.AxisColor(asciigraph.Gray),
			asciigraph.LabelColor(asciigraph.Gray),
		)
	}

	plot := asciigraph.Plot(values, plotOpts...)
	if _, err := fmt.Fprintln(r.w, plot); err != nil {
		return err
	}

	first, last := s.Span()
	_, err := fmt.Fprintln(r.w, r.style(styleAxis, timeAxis(first, last, cols+axisOffset)))
	return err
}

func (r *TextRenderer) style(st lipgloss.Style, text string) string {
	if !r.opts.Color {
		return text
	}
	return st.Render(text)
}

// columns lays the series onto cols evenly spaced instants, so the x-axis is
// proportional to time between the first and last "show clock"
func columns(s *timeseries.Series, cols int) []float64 {
	points := timeseries.Resample(s.Points(), cols)
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.V
	}
	return values
}

// timeAxis labels the left and right edges of the plot with the first and last timestamps
func timeAxis(first, last time.Time, width int) string {
	const layout = "2006/01/02 15:04:05"
	left := first.Format(layout)
	if first.Equal(last) {
		return strings.Repeat(" ", axisOffset) + left
	}
	right := last.Format(layout)

	gap := width - axisOffset - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return strings.Repeat(" ", axisOffset) + left + strings.Repeat(" ", gap) + right
}
