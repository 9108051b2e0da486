// Package tiling partitions large extents into buffered tiles and drives the
// per-tile compute/crop/write cycle that bounds peak memory to one tile's
// buffered point set.
package tiling

import (
	"fmt"
	"math"

	"github.com/treeline-data/forestscan/internal/pointcloud"
)

// Spec describes one planned tile: the output region the tile is responsible
// for, and the buffered region whose points must be read so metrics near the
// output edges see their full neighbourhoods.
type Spec struct {
	// Col and Row index the tile within the plan, column-major west-to-east
	// and row south-to-north. Together they make output names collision-free
	// under parallel writers.
	Col, Row int

	// Output is the region this tile's raster covers after cropping.
	Output pointcloud.Extent

	// Buffered is Output expanded by the buffer margin and clipped to the
	// overall job bounds. Points are read for this region and the margin is
	// discarded after computation.
	Buffered pointcloud.Extent
}

// Name returns the deterministic tile identifier, e.g. "tile_2_0".
func (s Spec) Name() string { return fmt.Sprintf("tile_%d_%d", s.Col, s.Row) }

// PlanTiles partitions bounds into tiles of at most tileW x tileH with the
// given buffer margin. Tiles cover the bounds with no gaps and no overlap of
// output regions; buffered regions of adjacent tiles overlap by design. The
// plan is a pure function of its inputs: re-running it reproduces the same
// sequence, so failed tiles can be re-processed idempotently.
func PlanTiles(bounds pointcloud.Extent, tileW, tileH, buffer float64) ([]Spec, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("%w: tile plan bounds %+v", pointcloud.ErrInvalidParameter, bounds)
	}
	if tileW <= 0 || tileH <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %g x %g",
			pointcloud.ErrInvalidParameter, tileW, tileH)
	}
	if buffer < 0 {
		return nil, fmt.Errorf("%w: buffer margin must be non-negative, got %g",
			pointcloud.ErrInvalidParameter, buffer)
	}

	cols := int(math.Ceil(bounds.Width() / tileW))
	rows := int(math.Ceil(bounds.Height() / tileH))

	specs := make([]Spec, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			out := pointcloud.Extent{
				MinX: bounds.MinX + float64(col)*tileW,
				MaxX: math.Min(bounds.MinX+float64(col+1)*tileW, bounds.MaxX),
				MinY: bounds.MinY + float64(row)*tileH,
				MaxY: math.Min(bounds.MinY+float64(row+1)*tileH, bounds.MaxY),
			}
			specs = append(specs, Spec{
				Col:      col,
				Row:      row,
				Output:   out,
				Buffered: out.Expand(buffer).Clip(bounds),
			})
		}
	}
	return specs, nil
}
