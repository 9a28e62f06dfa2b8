package report

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/cvbench/evaluation"
)

// FoldPlot builds a box plot with one box per metric over the fold values.
func FoldPlot(rs *evaluation.ResultSet, title string) (*plot.Plot, error) {
	names := rs.Names()
	if len(names) == 0 || rs.Len() == 0 {
		return nil, errors.New("report: nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Score"
	p.Y.Min, p.Y.Max = 0, 1

	width := vg.Points(20)
	for i, name := range names {
		vals, err := rs.Values(name)
		if err != nil {
			return nil, err
		}
		box, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(vals))
		if err != nil {
			return nil, errors.Wrapf(err, "report: box plot %s", name)
		}
		p.Add(box)
	}
	p.NominalX(names...)
	return p, nil
}

// PlotFolds saves FoldPlot(rs) to path. The image format follows the file
// extension (.png, .svg, .pdf).
func PlotFolds(rs *evaluation.ResultSet, title, path string) error {
	p, err := FoldPlot(rs, title)
	if err != nil {
		return err
	}
	w := vg.Length(len(rs.Names())+1) * vg.Inch
	if err := p.Save(w, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save plot %s", path)
	}
	return nil
}
