package report

import (
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func addLine(p *plot.Plot, name string, dates []time.Time, values []float64, c color.Color) error {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(dates[i].Unix())
		xys[i].Y = v
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(2)

	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}
