// Package pointcloud defines the point record schema, spatial extents and the
// point-source contract the rest of the engine consumes. Decoding of on-disk
// point cloud formats (LAS/LAZ/COPC/EPT) is deliberately left to an external
// reader; this package only models the records that reader hands over.
package pointcloud

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is the sentinel for caller errors: non-positive
// resolutions, malformed bounds, bad tile sizes. Wrap with fmt.Errorf("%w: ...")
// and test with errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// ClassGround is the ASPRS classification code for ground returns.
const ClassGround = 2

// Point is one point record. X and Y are horizontal map coordinates, Z the
// absolute elevation and HAG the height above ground. Sources that never
// computed HAG leave it NaN; the schema records which fields are populated.
type Point struct {
	X     float64
	Y     float64
	Z     float64
	HAG   float64
	Class uint8
}

// Schema declares which optional fields of Point a source populates.
// Required fields (X, Y, Z) are always present.
type Schema struct {
	HasHAG   bool
	HasClass bool
}

// Validate checks a point set against the schema once at ingestion. X, Y and Z
// must be finite for every record; HAG must be finite when the schema claims
// it is populated.
func (s Schema) Validate(pts []Point) error {
	for i, p := range pts {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) {
			return fmt.Errorf("%w: point %d has non-finite coordinates (%v, %v, %v)",
				ErrInvalidParameter, i, p.X, p.Y, p.Z)
		}
		if s.HasHAG && !isFinite(p.HAG) {
			return fmt.Errorf("%w: point %d missing height above ground", ErrInvalidParameter, i)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Extent is an axis-aligned horizontal bounding box.
type Extent struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Valid reports whether the extent spans a positive area on both axes.
func (e Extent) Valid() bool {
	return e.MinX < e.MaxX && e.MinY < e.MaxY
}

// Width returns the X span of the extent.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the Y span of the extent.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Expand grows the extent by margin on all four sides. A zero margin returns
// the extent unchanged.
func (e Extent) Expand(margin float64) Extent {
	return Extent{
		MinX: e.MinX - margin,
		MaxX: e.MaxX + margin,
		MinY: e.MinY - margin,
		MaxY: e.MaxY + margin,
	}
}

// Clip intersects the extent with bounds, returning the overlapping region.
// The result may be invalid (zero or negative span) when the two are disjoint.
func (e Extent) Clip(bounds Extent) Extent {
	return Extent{
		MinX: math.Max(e.MinX, bounds.MinX),
		MaxX: math.Min(e.MaxX, bounds.MaxX),
		MinY: math.Max(e.MinY, bounds.MinY),
		MaxY: math.Min(e.MaxY, bounds.MaxY),
	}
}

// Contains reports whether the horizontal position (x, y) lies inside the
// extent. The lower edges are inclusive and the upper edges exclusive, the
// same floor-based convention the voxelizer and tile planner use, so a point
// on a shared tile boundary belongs to exactly one tile.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.MinX && x < e.MaxX && y >= e.MinY && y < e.MaxY
}

// ExtentOf computes the bounding extent of a point set. The second return is
// false for an empty set.
func ExtentOf(pts []Point) (Extent, bool) {
	if len(pts) == 0 {
		return Extent{}, false
	}
	e := Extent{MinX: pts[0].X, MaxX: pts[0].X, MinY: pts[0].Y, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		if p.X < e.MinX {
			e.MinX = p.X
		}
		if p.X > e.MaxX {
			e.MaxX = p.X
		}
		if p.Y < e.MinY {
			e.MinY = p.Y
		}
		if p.Y > e.MaxY {
			e.MaxY = p.Y
		}
	}
	return e, true
}
