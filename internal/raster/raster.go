// Package raster holds the 2-D metric grids the engine produces and the
// writer contract for emitting them as georeferenced files.
package raster

import (
	"fmt"
	"math"

	"github.com/treeline-data/forestscan/internal/pointcloud"
)

// Raster is a single-band 2-D grid of float64 samples aligned to an extent.
// Cells are stored x-major with iy = 0 at the extent's minimum Y. Missing
// cells hold NaN; writers translate NaN to their no-data value.
type Raster struct {
	NX, NY int
	Extent pointcloud.Extent
	CRS    string
	Values []float64
}

// New allocates a raster of the given dimensions with every cell set to NaN.
func New(nx, ny int, ext pointcloud.Extent, crs string) *Raster {
	vals := make([]float64, nx*ny)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return &Raster{NX: nx, NY: ny, Extent: ext, CRS: crs, Values: vals}
}

// Idx maps a cell index pair to the flat storage offset.
func (r *Raster) Idx(ix, iy int) int { return ix*r.NY + iy }

// At returns the sample at (ix, iy).
func (r *Raster) At(ix, iy int) float64 { return r.Values[r.Idx(ix, iy)] }

// Set stores a sample at (ix, iy).
func (r *Raster) Set(ix, iy int, v float64) { r.Values[r.Idx(ix, iy)] = v }

// CellSize returns the per-cell span along X and Y.
func (r *Raster) CellSize() (dx, dy float64) {
	return r.Extent.Width() / float64(r.NX), r.Extent.Height() / float64(r.NY)
}

// Crop returns the sub-raster covering bounds. The bounds are snapped to the
// nearest cell edges; rounding rather than truncation keeps tile crops exact
// when the output region sits on the same lattice as the buffered grid.
func (r *Raster) Crop(bounds pointcloud.Extent) (*Raster, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("%w: crop bounds %+v", pointcloud.ErrInvalidParameter, bounds)
	}
	dx, dy := r.CellSize()
	ix0 := clampIdx(snapDown((bounds.MinX-r.Extent.MinX)/dx), 0, r.NX)
	ix1 := clampIdx(snapUp((bounds.MaxX-r.Extent.MinX)/dx), ix0, r.NX)
	iy0 := clampIdx(snapDown((bounds.MinY-r.Extent.MinY)/dy), 0, r.NY)
	iy1 := clampIdx(snapUp((bounds.MaxY-r.Extent.MinY)/dy), iy0, r.NY)
	if ix1 <= ix0 || iy1 <= iy0 {
		return nil, fmt.Errorf("%w: crop bounds %+v outside raster extent %+v",
			pointcloud.ErrInvalidParameter, bounds, r.Extent)
	}
	out := &Raster{
		NX: ix1 - ix0,
		NY: iy1 - iy0,
		Extent: pointcloud.Extent{
			MinX: r.Extent.MinX + float64(ix0)*dx,
			MaxX: r.Extent.MinX + float64(ix1)*dx,
			MinY: r.Extent.MinY + float64(iy0)*dy,
			MaxY: r.Extent.MinY + float64(iy1)*dy,
		},
		CRS:    r.CRS,
		Values: make([]float64, (ix1-ix0)*(iy1-iy0)),
	}
	for ix := ix0; ix < ix1; ix++ {
		for iy := iy0; iy < iy1; iy++ {
			out.Set(ix-ix0, iy-iy0, r.At(ix, iy))
		}
	}
	return out, nil
}

// CountValid returns the number of non-NaN cells.
func (r *Raster) CountValid() int {
	n := 0
	for _, v := range r.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// snapTolerance absorbs floating-point drift when crop bounds sit on the
// cell lattice, which is the common case for buffered tiles.
const snapTolerance = 1e-6

// snapDown converts a fractional cell position to the index of the cell
// containing it, snapping to the lattice when within tolerance.
func snapDown(f float64) int {
	if r := math.Round(f); math.Abs(f-r) < snapTolerance {
		return int(r)
	}
	return int(math.Floor(f))
}

// snapUp is the outward-rounding counterpart for maximum edges, so a crop
// region is never undercovered.
func snapUp(f float64) int {
	if r := math.Round(f); math.Abs(f-r) < snapTolerance {
		return int(r)
	}
	return int(math.Ceil(f))
}

func clampIdx(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
