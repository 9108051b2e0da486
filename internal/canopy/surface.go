package canopy

import (
	"fmt"
	"math"

	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/raster"
)

// DTMAggregation selects how ground elevations are combined per cell.
type DTMAggregation string

const (
	// DTMMin takes the lowest ground elevation per cell, the conservative
	// default for terrain under vegetation.
	DTMMin DTMAggregation = "min"
	// DTMMean averages the ground elevations per cell.
	DTMMean DTMAggregation = "mean"
)

// Valid reports whether the aggregation mode is known.
func (a DTMAggregation) Valid() bool { return a == DTMMin || a == DTMMean }

// surfaceGrid validates a horizontal resolution and derives the cell lattice
// for a surface raster over ext.
func surfaceGrid(res float64, ext pointcloud.Extent, crs string) (*raster.Raster, error) {
	if res <= 0 {
		return nil, fmt.Errorf("%w: surface resolution must be positive, got %g",
			pointcloud.ErrInvalidParameter, res)
	}
	nx := int(math.Ceil(ext.Width() / res))
	if nx < 1 {
		nx = 1
	}
	ny := int(math.Ceil(ext.Height() / res))
	if ny < 1 {
		ny = 1
	}
	// Snap the extent's far edges to whole cells so CellSize stays exact.
	ext.MaxX = ext.MinX + float64(nx)*res
	ext.MaxY = ext.MinY + float64(ny)*res
	return raster.New(nx, ny, ext, crs), nil
}

func surfaceIndex(v, min, res float64, n int) int {
	i := int(math.Floor((v - min) / res))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// CHM computes the canopy height model: the maximum height above ground per
// XY cell at the given horizontal resolution. Cells with no points are NaN.
// An empty point set yields an empty raster.
func CHM(pts []pointcloud.Point, res float64, crs string) (*raster.Raster, error) {
	ext, ok := pointcloud.ExtentOf(pts)
	if !ok {
		if res <= 0 {
			return nil, fmt.Errorf("%w: surface resolution must be positive, got %g",
				pointcloud.ErrInvalidParameter, res)
		}
		return raster.New(0, 0, pointcloud.Extent{}, crs), nil
	}
	return CHMExtent(pts, res, ext, crs)
}

// CHMExtent computes the CHM against an explicitly supplied extent, so
// adjacent tiles share one cell lattice. Points outside the extent are
// ignored.
func CHMExtent(pts []pointcloud.Point, res float64, ext pointcloud.Extent, crs string) (*raster.Raster, error) {
	out, err := surfaceGrid(res, ext, crs)
	if err != nil {
		return nil, err
	}
	for _, p := range pts {
		if p.X < ext.MinX || p.X > ext.MaxX || p.Y < ext.MinY || p.Y > ext.MaxY {
			continue
		}
		ix := surfaceIndex(p.X, ext.MinX, res, out.NX)
		iy := surfaceIndex(p.Y, ext.MinY, res, out.NY)
		cur := out.At(ix, iy)
		if math.IsNaN(cur) || p.HAG > cur {
			out.Set(ix, iy, p.HAG)
		}
	}
	return out, nil
}

// DTM computes the digital terrain model from ground-classified points: the
// minimum (or mean) ground elevation per XY cell. The caller supplies already
// classified points; see pointcloud.FilterGround. Cells with no ground points
// are NaN.
func DTM(groundPts []pointcloud.Point, res float64, agg DTMAggregation, crs string) (*raster.Raster, error) {
	ext, ok := pointcloud.ExtentOf(groundPts)
	if !ok {
		if res <= 0 {
			return nil, fmt.Errorf("%w: surface resolution must be positive, got %g",
				pointcloud.ErrInvalidParameter, res)
		}
		return raster.New(0, 0, pointcloud.Extent{}, crs), nil
	}
	return DTMExtent(groundPts, res, ext, agg, crs)
}

// DTMExtent computes the DTM against an explicitly supplied extent.
func DTMExtent(groundPts []pointcloud.Point, res float64, ext pointcloud.Extent, agg DTMAggregation, crs string) (*raster.Raster, error) {
	if !agg.Valid() {
		return nil, fmt.Errorf("%w: unknown DTM aggregation %q", pointcloud.ErrInvalidParameter, agg)
	}
	out, err := surfaceGrid(res, ext, crs)
	if err != nil {
		return nil, err
	}
	var counts []int
	if agg == DTMMean {
		counts = make([]int, len(out.Values))
	}
	for _, p := range groundPts {
		if p.X < ext.MinX || p.X > ext.MaxX || p.Y < ext.MinY || p.Y > ext.MaxY {
			continue
		}
		ix := surfaceIndex(p.X, ext.MinX, res, out.NX)
		iy := surfaceIndex(p.Y, ext.MinY, res, out.NY)
		idx := out.Idx(ix, iy)
		cur := out.Values[idx]
		switch agg {
		case DTMMin:
			if math.IsNaN(cur) || p.Z < cur {
				out.Values[idx] = p.Z
			}
		case DTMMean:
			if math.IsNaN(cur) {
				out.Values[idx] = p.Z
			} else {
				out.Values[idx] = cur + p.Z
			}
			counts[idx]++
		}
	}
	if agg == DTMMean {
		for i, n := range counts {
			if n > 0 {
				out.Values[i] /= float64(n)
			}
		}
	}
	return out, nil
}
