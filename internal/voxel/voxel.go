// Package voxel bins point records into a regular 3-D grid and derives the
// per-column pulse bookkeeping the canopy metrics are computed from.
package voxel

import (
	"fmt"
	"math"

	"github.com/treeline-data/forestscan/internal/pointcloud"
)

// Resolution is the voxel cell size along each axis, in map units.
type Resolution struct {
	DX float64
	DY float64
	DZ float64
}

// Validate rejects non-positive cell sizes.
func (r Resolution) Validate() error {
	if r.DX <= 0 || r.DY <= 0 || r.DZ <= 0 {
		return fmt.Errorf("%w: voxel resolution must be positive on all axes, got (%g, %g, %g)",
			pointcloud.ErrInvalidParameter, r.DX, r.DY, r.DZ)
	}
	return nil
}

// Grid is a dense 3-D histogram of point returns. Cells are indexed
// (ix, iy, iz) with iz = 0 at the ground; the vertical axis always starts at
// height-above-ground zero so layer iz spans [iz*DZ, (iz+1)*DZ).
//
// Storage is a flat slice in x-major order, the same layout the rest of the
// engine uses for rasters.
type Grid struct {
	NX, NY, NZ int
	Extent     pointcloud.Extent
	Res        Resolution

	returns []int32
}

// Idx maps a cell index triple to the flat storage offset.
func (g *Grid) Idx(ix, iy, iz int) int {
	return (ix*g.NY+iy)*g.NZ + iz
}

// Returns reports the return count in one cell.
func (g *Grid) Returns(ix, iy, iz int) int {
	return int(g.returns[g.Idx(ix, iy, iz)])
}

// Empty reports whether the grid holds no cells at all.
func (g *Grid) Empty() bool { return g.NX == 0 || g.NY == 0 || g.NZ == 0 }

// ColumnReturns copies the vertical return profile of one XY column,
// ground layer first.
func (g *Grid) ColumnReturns(ix, iy int) []float64 {
	col := make([]float64, g.NZ)
	base := g.Idx(ix, iy, 0)
	for iz := 0; iz < g.NZ; iz++ {
		col[iz] = float64(g.returns[base+iz])
	}
	return col
}

// ColumnPulses derives the cumulative pulse counts for one column. For layer
// i (ground first), entering[i] is the number of returns at or above the
// layer's lower boundary and exiting[i] the number at or above the next
// layer's lower boundary, so exiting[i] == entering[i+1] and both sequences
// are monotonically non-increasing with height. The top layer always exits
// zero pulses.
func (g *Grid) ColumnPulses(ix, iy int) (entering, exiting []float64) {
	entering = make([]float64, g.NZ)
	exiting = make([]float64, g.NZ)
	above := 0.0
	base := g.Idx(ix, iy, 0)
	for iz := g.NZ - 1; iz >= 0; iz-- {
		exiting[iz] = above
		above += float64(g.returns[base+iz])
		entering[iz] = above
	}
	return entering, exiting
}

// cellCount is ceil(span/res) with a floor of one cell, so a degenerate span
// (all points on one plane) still yields a usable grid.
func cellCount(span, res float64) int {
	n := int(math.Ceil(span / res))
	if n < 1 {
		n = 1
	}
	return n
}

// cellIndex assigns a coordinate to its cell by floor division, clamped to
// the last valid index so floating-point boundary coordinates at the maximum
// edge are absorbed rather than dropped.
func cellIndex(v, min, res float64, n int) int {
	i := int(math.Floor((v - min) / res))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// Voxelize bins a point set into a grid at the given resolution, deriving the
// horizontal extent from the points themselves. Points with negative height
// above ground are discarded before binning. An empty point set yields an
// empty grid and a zero extent, not an error.
func Voxelize(pts []pointcloud.Point, res Resolution) (*Grid, pointcloud.Extent, error) {
	if err := res.Validate(); err != nil {
		return nil, pointcloud.Extent{}, err
	}
	kept := make([]pointcloud.Point, 0, len(pts))
	for _, p := range pts {
		if p.HAG >= 0 {
			kept = append(kept, p)
		}
	}
	ext, ok := pointcloud.ExtentOf(kept)
	if !ok {
		return &Grid{Res: res}, pointcloud.Extent{}, nil
	}
	return voxelizeInto(kept, res, ext)
}

// VoxelizeExtent bins a point set against an explicitly supplied horizontal
// extent. The tile processor uses this so adjacent buffered tiles share one
// cell lattice regardless of where their points happen to fall. Points
// outside the extent or below ground are discarded.
func VoxelizeExtent(pts []pointcloud.Point, res Resolution, ext pointcloud.Extent) (*Grid, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if !ext.Valid() {
		return nil, fmt.Errorf("%w: voxelize extent %+v", pointcloud.ErrInvalidParameter, ext)
	}
	kept := make([]pointcloud.Point, 0, len(pts))
	for _, p := range pts {
		if p.HAG >= 0 && ext.Contains(p.X, p.Y) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		// Grid covering the extent with a single empty layer, so downstream
		// rasters keep their expected XY dimensions.
		g := &Grid{
			NX:  cellCount(ext.Width(), res.DX),
			NY:  cellCount(ext.Height(), res.DY),
			NZ:  1,
			Res: res,
		}
		g.Extent = snapExtent(ext, res, g.NX, g.NY)
		g.returns = make([]int32, g.NX*g.NY*g.NZ)
		return g, nil
	}
	g, _, err := voxelizeInto(kept, res, ext)
	return g, err
}

// snapExtent pushes the far edges of an extent out to whole cells so the
// grid's effective cell size equals the requested resolution exactly. The
// minimum corner anchors the lattice.
func snapExtent(ext pointcloud.Extent, res Resolution, nx, ny int) pointcloud.Extent {
	ext.MaxX = ext.MinX + float64(nx)*res.DX
	ext.MaxY = ext.MinY + float64(ny)*res.DY
	return ext
}

func voxelizeInto(pts []pointcloud.Point, res Resolution, ext pointcloud.Extent) (*Grid, pointcloud.Extent, error) {
	maxHAG := 0.0
	for _, p := range pts {
		if p.HAG > maxHAG {
			maxHAG = p.HAG
		}
	}
	g := &Grid{
		NX:  cellCount(ext.Width(), res.DX),
		NY:  cellCount(ext.Height(), res.DY),
		NZ:  cellCount(maxHAG, res.DZ),
		Res: res,
	}
	g.Extent = snapExtent(ext, res, g.NX, g.NY)
	g.returns = make([]int32, g.NX*g.NY*g.NZ)
	for _, p := range pts {
		ix := cellIndex(p.X, ext.MinX, res.DX, g.NX)
		iy := cellIndex(p.Y, ext.MinY, res.DY, g.NY)
		iz := cellIndex(p.HAG, 0, res.DZ, g.NZ)
		g.returns[g.Idx(ix, iy, iz)]++
	}
	return g, g.Extent, nil
}
