// Package report renders a static HTML summary of a finished tiling job: the
// outcome of every tile plotted over the job extent, plus the status tally.
package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/treeline-data/forestscan/internal/tiling"
)

// statusValue maps tile outcomes to the scatter colour dimension.
func statusValue(s tiling.TileStatus) int {
	switch s {
	case tiling.TileWritten:
		return 2
	case tiling.TileEmpty:
		return 1
	default:
		return 0
	}
}

// tileChart plots each tile's centre coloured by outcome.
func tileChart(r *tiling.JobReport) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(r.Results))
	for _, t := range r.Results {
		cx := (t.Spec.Output.MinX + t.Spec.Output.MaxX) / 2
		cy := (t.Spec.Output.MinY + t.Spec.Output.MaxY) / 2
		data = append(data, opts.ScatterData{
			Value: []interface{}{cx, cy, statusValue(t.Status)},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "forestscan tile job", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Job %s (%s)", r.JobID, r.Metric),
			Subtitle: fmt.Sprintf("tiles=%d extent=[%g, %g] x [%g, %g]", len(r.Results), r.Bounds.MinX, r.Bounds.MaxX, r.Bounds.MinY, r.Bounds.MaxY),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: r.Bounds.MinX, Max: r.Bounds.MaxX, Name: "X"}),
		charts.WithYAxisOpts(opts.YAxis{Min: r.Bounds.MinY, Max: r.Bounds.MaxY, Name: "Y"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:      opts.Bool(true),
			Min:       0,
			Max:       2,
			Dimension: "2",
			InRange:   &opts.VisualMapInRange{Color: []string{"#d73027", "#fee08b", "#1a9850"}},
		}),
	)
	scatter.AddSeries("tiles", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return scatter
}

// summaryChart tallies outcomes and annotates coverage statistics across the
// written tiles.
func summaryChart(r *tiling.JobReport) *charts.Bar {
	written, empty, failed := r.Counts()

	var valid []float64
	for _, t := range r.Results {
		if t.Status == tiling.TileWritten {
			valid = append(valid, float64(t.ValidCells))
		}
	}
	subtitle := "no written tiles"
	if len(valid) > 0 {
		mean, std := stat.MeanStdDev(valid, nil)
		subtitle = fmt.Sprintf("valid cells per written tile: mean %.1f, stddev %.1f", mean, std)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tile outcomes", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"written", "empty", "failed"}).
		AddSeries("tiles", []opts.BarData{
			{Value: written},
			{Value: empty},
			{Value: failed},
		}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// WriteHTML renders the job report page to path.
func WriteHTML(r *tiling.JobReport, path string) error {
	page := components.NewPage()
	page.AddCharts(tileChart(r), summaryChart(r))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
