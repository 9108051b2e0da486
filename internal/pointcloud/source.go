package pointcloud

import "fmt"

// Source is the upstream point-cloud collaborator. Implementations are
// expected to support bounded reads without materialising the full dataset;
// the tile processor relies on that to keep peak memory proportional to one
// buffered tile.
//
// Read returns the points whose (X, Y) fall inside bounds, further restricted
// to poly when poly is non-nil. An empty result is not an error.
type Source interface {
	Read(bounds Extent, poly *Polygon) ([]Point, error)
	// CRS returns the coordinate reference system identifier of the data,
	// e.g. "EPSG:32610". Passed through to raster outputs untouched.
	CRS() string
}

// MemorySource is a Source backed by an in-memory point slice. It is the
// reference implementation used by tests and by callers that already decoded
// a full dataset; production tiling jobs normally wrap a spatially indexed
// on-disk reader instead.
type MemorySource struct {
	pts    []Point
	schema Schema
	crs    string
}

// NewMemorySource validates the points against the schema once and returns a
// source over them. The slice is retained, not copied; callers must not
// mutate it afterwards.
func NewMemorySource(pts []Point, schema Schema, crs string) (*MemorySource, error) {
	if err := schema.Validate(pts); err != nil {
		return nil, fmt.Errorf("memory source: %w", err)
	}
	return &MemorySource{pts: pts, schema: schema, crs: crs}, nil
}

// Schema returns the field schema declared at construction.
func (m *MemorySource) Schema() Schema { return m.schema }

// CRS returns the coordinate reference system identifier.
func (m *MemorySource) CRS() string { return m.crs }

// Bounds returns the extent of the backing points. ok is false when the
// source is empty.
func (m *MemorySource) Bounds() (Extent, bool) {
	return ExtentOf(m.pts)
}

// Read filters the backing slice by bounds and optional polygon. The returned
// slice is freshly allocated; the backing data is never aliased out.
func (m *MemorySource) Read(bounds Extent, poly *Polygon) ([]Point, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("%w: read bounds %+v", ErrInvalidParameter, bounds)
	}
	if poly != nil {
		if err := poly.Validate(); err != nil {
			return nil, err
		}
	}
	var out []Point
	for _, p := range m.pts {
		if !bounds.Contains(p.X, p.Y) {
			continue
		}
		if poly != nil && !poly.Contains(p.X, p.Y) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
