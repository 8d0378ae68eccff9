// Package plot draws the metric curves recorded during a Fit.
package plot

import (
	"io"
	"math"

	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Options controls the chart. Points that are not positive are left out of a
// logarithmic axis.
type Options struct {
	Title string

	// Legend names the train, validation and test curves.
	Legend []string

	LogX bool
	LogY bool

	// StartFrom skips the first epochs.
	StartFrom int

	Width, Height vg.Length
}

// DefaultOptions returns an 8 × 5 inch chart with train/val/test legend names.
func DefaultOptions() Options {
	return Options{
		Legend: []string{"train", "val", "test"},
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
	}
}

// New builds the chart of one metric.
func New(h *bgnn.History, metric string, opts Options) (*plot.Plot, error) {
	values := h.Get(metric)
	if len(values) == 0 {
		return nil, errors.NewValidationError("metric", "no values recorded", metric)
	}
	if len(opts.Legend) == 0 {
		opts.Legend = DefaultOptions().Legend
	}
	if len(opts.Legend) != 3 {
		return nil, errors.NewValidationError("legend", "needs one name per split", opts.Legend)
	}
	if opts.StartFrom < 0 || opts.StartFrom >= len(values) {
		return nil, errors.NewValidationError("start_from", "outside the recorded epochs", opts.StartFrom)
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = metric
	if opts.LogX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if opts.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	splits := []func(bgnn.Triple) float64{
		func(t bgnn.Triple) float64 { return t.Train },
		func(t bgnn.Triple) float64 { return t.Val },
		func(t bgnn.Triple) float64 { return t.Test },
	}
	for i, value := range splits {
		xys := make(plotter.XYs, 0, len(values)-opts.StartFrom)
		for epoch := opts.StartFrom; epoch < len(values); epoch++ {
			x, y := float64(epoch), value(values[epoch])
			if math.IsNaN(y) || math.IsInf(y, 0) || (opts.LogX && x <= 0) || (opts.LogY && y <= 0) {
				continue
			}
			xys = append(xys, plotter.XY{X: x, Y: y})
		}
		if len(xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "curve %s", opts.Legend[i])
		}
		line.Color = plotutil.Color(i)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(opts.Legend[i], line, points)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func size(opts Options) (vg.Length, vg.Length) {
	d := DefaultOptions()
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = d.Width
	}
	if h <= 0 {
		h = d.Height
	}
	return w, h
}

// SaveHistory writes the chart of metric to path. The format follows the file
// extension (png, svg, pdf, ...).
func SaveHistory(h *bgnn.History, metric, path string, opts Options) error {
	p, err := New(h, metric, opts)
	if err != nil {
		return err
	}
	w, ht := size(opts)
	if err := p.Save(w, ht, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// WriteHistory writes the chart of metric to w in the given format.
func WriteHistory(out io.Writer, h *bgnn.History, metric, format string, opts Options) error {
	p, err := New(h, metric, opts)
	if err != nil {
		return err
	}
	w, ht := size(opts)
	wt, err := p.WriterTo(w, ht, format)
	if err != nil {
		return errors.Wrapf(err, "plot format %s", format)
	}
	_, err = wt.WriteTo(out)
	return err
}
