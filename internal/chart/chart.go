// Package chart renders a level's expected and observed port values.
package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/nvandessel/pneumatic/internal/level"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

// Default image size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

// Series is one port's waveform over the sim point index.
type Series struct {
	Port     pressure.Direction
	Expected plotter.XYs
	// Observed holds only the points that have been recorded.
	Observed plotter.XYs
}

// LevelSeries returns one series per port in the level's mask.
func LevelSeries(l *level.Level) []Series {
	points := l.SimPoints()
	var out []Series
	for _, d := range pressure.Directions {
		if !l.Ports().Has(d) {
			continue
		}
		s := Series{Port: d, Expected: make(plotter.XYs, 0, len(points))}
		for i, sp := range points {
			v := sp[d]
			s.Expected = append(s.Expected, plotter.XY{X: float64(i), Y: float64(v.InValue)})
			if v.Observed {
				s.Observed = append(s.Observed, plotter.XY{X: float64(i), Y: float64(v.Recorded)})
			}
		}
		out = append(out, s)
	}
	return out
}

// New builds the plot for l: a solid line of expected percent per port and
// a dashed line with markers for what was observed.
func New(l *level.Level) (*plot.Plot, error) {
	if len(l.SimPoints()) == 0 {
		return nil, fmt.Errorf("level %d has no sim points to plot", l.Index())
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Level %d", l.Index())
	p.X.Label.Text = "sim point"
	p.Y.Label.Text = "percent"
	p.Y.Min, p.Y.Max = 0, 100
	p.Add(plotter.NewGrid())

	for i, s := range LevelSeries(l) {
		expected, err := plotter.NewLine(s.Expected)
		if err != nil {
			return nil, fmt.Errorf("port %v expected: %w", s.Port, err)
		}
		expected.Color = plotutil.Color(i)
		p.Add(expected)
		p.Legend.Add(s.Port.String()+" expected", expected)

		if len(s.Observed) == 0 {
			continue
		}
		observed, points, err := plotter.NewLinePoints(s.Observed)
		if err != nil {
			return nil, fmt.Errorf("port %v observed: %w", s.Port, err)
		}
		observed.Color = plotutil.Color(i)
		observed.Dashes = plotutil.Dashes(1)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(observed, points)
		p.Legend.Add(s.Port.String()+" observed", observed, points)
	}
	return p, nil
}

// RenderLevel writes the plot of l to path. The format follows the file
// extension (png, svg, pdf, ...).
func RenderLevel(l *level.Level, path string) error {
	p, err := New(l)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating chart directory: %w", err)
		}
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("saving chart: %w", err)
	}
	return nil
}
