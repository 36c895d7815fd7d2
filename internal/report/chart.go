package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/indexrep/internal/contracts"
)

// DefaultChartPath is where the comparison chart goes when none is configured
const DefaultChartPath = "Comparison_chart.png"

var (
	indexColor     = color.RGBA{R: 220, A: 255}
	portfolioColor = color.RGBA{G: 160, A: 255}
)

// ChartTitle is "<index> vs <n>-Stock Portfolio"
func ChartTitle(index string, n int) string {
	return fmt.Sprintf("%s vs %d-Stock Portfolio", index, n)
}

// RenderChart draws the index (red) and the weighted portfolio (green) over time.
// The file format follows the path extension (.png, .svg, .pdf).
func RenderChart(path string, matrix *contracts.PriceMatrix, result *contracts.ReplicationResult) error {
	index, ok := matrix.Column(result.IndexSymbol)
	if !ok {
		return fmt.Errorf("index %q is not in the price matrix", result.IndexSymbol)
	}
	portfolio, err := PortfolioSeries(matrix, result.Weights)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = ChartTitle(result.IndexSymbol, result.SubsetSize)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	dates := matrix.Dates()
	if err := addLine(p, result.IndexSymbol, dates, index, indexColor); err != nil {
		return err
	}
	label := fmt.Sprintf("%d_Stocks_Portfolio", result.SubsetSize)
	if err := addLine(p, label, dates, portfolio, portfolioColor); err != nil {
		return err
	}
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}
