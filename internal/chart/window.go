package chart

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/guptarohit/asciigraph"
	"github.com/rivo/tview"

	"github.com/aaronlmathis/cpuplot/internal/timeseries"
)

// WindowRenderer opens a full-screen interactive chart for each series and
// blocks until the user closes it with q or Esc.
type WindowRenderer struct {
	opts   Options
	screen tcell.Screen // nil = the real terminal
}

// NewWindowRenderer returns a Renderer backed by a tview application
func NewWindowRenderer(opts Options) *WindowRenderer {
	return &WindowRenderer{opts: opts}
}

// NewWindowRendererWithScreen draws on the given screen instead of the terminal
func NewWindowRendererWithScreen(opts Options, screen tcell.Screen) *WindowRenderer {
	return &WindowRenderer{opts: opts, screen: screen}
}

func (r *WindowRenderer) Render(s *timeseries.Series, title string) error {
	app := tview.NewApplication()
	if r.screen != nil {
		app.SetScreen(r.screen)
	}

	color := tcell.ColorGreen
	if !r.opts.Color {
		color = tcell.ColorDefault
	}

	first, last := s.Span()
	plot := tview.NewBox()
	plot.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		for i, line := range r.lines(s, width, height) {
			tview.Print(screen, tview.Escape(line), x, y+i, width, tview.AlignLeft, color)
		}
		return x, y, width, height
	})

	frame := tview.NewFrame(plot).
		SetBorders(1, 1, 1, 1, 1, 1).
		AddText(title, true, tview.AlignCenter, tcell.ColorWhite).
		AddText(fmt.Sprintf("%d samples", s.Len()), true, tview.AlignCenter, tcell.ColorGray).
		AddText(timeAxis(first, last, 0), false, tview.AlignLeft, tcell.ColorGray).
		AddText("q / Esc: close", false, tview.AlignRight, tcell.ColorGray)
	frame.SetBorder(true)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(frame, true).Run(); err != nil {
		return fmt.Errorf("chart window: %w", err)
	}
	return nil
}

// lines plots the series to fit a width x height cell area
func (r *WindowRenderer) lines(s *timeseries.Series, width, height int) []string {
	if s.Len() == 0 {
		return []string{"(no samples)"}
	}

	rows := height - 1
	cols := width - axisOffset - 2
	if rows < 2 || cols < 2 {
		return nil
	}

	plot := asciigraph.Plot(columns(s, cols),
		asciigraph.Height(rows),
		asciigraph.Width(cols),
		asciigraph.LowerBound(0),
		asciigraph.Precision(1),
	)
	return strings.Split(plot, "\n")
}
