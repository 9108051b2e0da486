// Package plot renders diagnostic figures for metric outputs: vertical PAD
// profiles per column and heatmaps of metric rasters. These are quick-look
// products for tuning, not GIS outputs.
package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/treeline-data/forestscan/internal/raster"
)

// SaveProfile plots a vertical profile (ground layer first) against layer
// mid-heights and saves it as a PNG. NaN layers are left out of the line.
func SaveProfile(values []float64, dz float64, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "value"
	p.Y.Label.Text = "height (m)"

	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: v, Y: (float64(i) + 0.5) * dz})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("profile line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(6*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save profile plot %s: %w", path, err)
	}
	return nil
}

// rasterGrid adapts a raster to the plotter.GridXYZ interface.
type rasterGrid struct {
	r *raster.Raster
}

func (g rasterGrid) Dims() (c, r int) { return g.r.NX, g.r.NY }

func (g rasterGrid) Z(c, r int) float64 {
	v := g.r.At(c, r)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g rasterGrid) X(c int) float64 {
	dx, _ := g.r.CellSize()
	return g.r.Extent.MinX + (float64(c)+0.5)*dx
}

func (g rasterGrid) Y(r int) float64 {
	_, dy := g.r.CellSize()
	return g.r.Extent.MinY + (float64(r)+0.5)*dy
}

// SaveHeatmap renders a metric raster as a PNG heatmap. NaN cells are drawn
// at zero.
func SaveHeatmap(r *raster.Raster, title, path string) error {
	if r.NX == 0 || r.NY == 0 {
		return fmt.Errorf("heatmap of empty raster")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(rasterGrid{r}, pal)
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap %s: %w", path, err)
	}
	return nil
}
