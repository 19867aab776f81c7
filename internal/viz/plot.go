package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"ctrllab/internal/loop"
)

// StateSeries extracts one state component from a trajectory.
func StateSeries(res *loop.Result, index int) ([]float64, error) {
	if len(res.States) == 0 {
		return nil, fmt.Errorf("viz: empty trajectory")
	}
	if index < 0 || index >= len(res.States[0]) {
		return nil, fmt.Errorf("viz: state index %d out of range [0,%d)", index, len(res.States[0]))
	}
	out := make([]float64, len(res.States))
	for i, x := range res.States {
		out[i] = x[index]
	}
	return out, nil
}

// ControlSeries extracts one control channel from a trajectory.
func ControlSeries(res *loop.Result, index int) ([]float64, error) {
	if len(res.Controls) == 0 {
		return nil, fmt.Errorf("viz: trajectory has no controls")
	}
	if index < 0 || index >= len(res.Controls[0]) {
		return nil, fmt.Errorf("viz: control index %d out of range [0,%d)", index, len(res.Controls[0]))
	}
	out := make([]float64, len(res.Controls))
	for i, u := range res.Controls {
		out[i] = u[index]
	}
	return out, nil
}

// Chart renders a series as an ascii line chart.
func Chart(series []float64, caption string, width, height int) string {
	if len(series) < 2 {
		return "(not enough samples)"
	}
	return asciigraph.Plot(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}

// PhasePortrait draws state component j against component i on a
// braille canvas with bounds fit to the trajectory.
func PhasePortrait(res *loop.Result, i, j, width, height int) (string, error) {
	xs, err := StateSeries(res, i)
	if err != nil {
		return "", err
	}
	ys, err := StateSeries(res, j)
	if err != nil {
		return "", err
	}

	pts := make([][2]float64, len(xs))
	for k := range xs {
		pts[k] = [2]float64{xs[k], ys[k]}
	}
	x0, x1, y0, y1 := bounds(pts)

	c := NewCanvas(width, height)
	v := NewViewport(c, x0, x1, y0, y1)
	for k := 1; k < len(pts); k++ {
		v.Segment(pts[k-1][0], pts[k-1][1], pts[k][0], pts[k][1])
	}
	return c.String(), nil
}
