package canopy

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/treeline-data/forestscan/internal/raster"
	"github.com/treeline-data/forestscan/internal/voxel"
)

// newMetricRaster allocates a NaN-filled raster aligned to the grid's XY
// dimensions and extent.
func newMetricRaster(g *voxel.Grid, crs string) *raster.Raster {
	return raster.New(g.NX, g.NY, g.Extent, crs)
}

// PAI computes the plant area index raster: the vertical integral of PAD over
// the [MinHeight, MaxHeight) window of opts. Layers with undefined PAD are
// skipped; a column whose whole window is undefined is NaN. An empty window
// (threshold at or above the canopy top) yields zero everywhere, meaning "no
// canopy above the threshold".
func PAI(g *voxel.Grid, opts Options, crs string) *raster.Raster {
	out := newMetricRaster(g, crs)
	if g.Empty() {
		return out
	}
	start, end, ok := integrationWindow(g.NZ, g.Res.DZ, opts)
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			if !ok {
				out.Set(ix, iy, 0)
				continue
			}
			pad := ColumnPAD(g, ix, iy, opts)
			v, any := integratePAD(pad, start, end, g.Res.DZ)
			if !any {
				continue // leave NaN
			}
			out.Set(ix, iy, v)
		}
	}
	return out
}

// FHD computes the foliage height diversity raster: the Shannon entropy of
// each column's normalised vertical return distribution. Columns with no
// returns are NaN. A column spread uniformly over n occupied layers attains
// the maximum ln(n).
func FHD(g *voxel.Grid, crs string) *raster.Raster {
	out := newMetricRaster(g, crs)
	if g.Empty() {
		return out
	}
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			col := g.ColumnReturns(ix, iy)
			total := floats.Sum(col)
			if total <= 0 {
				continue
			}
			floats.Scale(1/total, col)
			out.Set(ix, iy, stat.Entropy(col))
		}
	}
	return out
}

// Cover computes Beer-Lambert canopy cover at the height threshold given by
// opts.MinHeight:
//
//	Cover(z) = 1 - exp(-k * PAI_above(z))
//
// clamped to [0, 1]. Columns whose PAD is entirely undefined within the
// window are NaN; an empty window yields zero cover. Cover is monotonically
// non-increasing in the threshold for a fixed column.
func Cover(g *voxel.Grid, opts Options, crs string) *raster.Raster {
	out := newMetricRaster(g, crs)
	if g.Empty() {
		return out
	}
	start, end, ok := integrationWindow(g.NZ, g.Res.DZ, opts)
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			if !ok {
				out.Set(ix, iy, 0)
				continue
			}
			pad := ColumnPAD(g, ix, iy, opts)
			paiAbove, any := integratePAD(pad, start, end, g.Res.DZ)
			if !any {
				continue
			}
			c := 1 - math.Exp(-opts.K*paiAbove)
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			out.Set(ix, iy, clamp01(c))
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
