package pointcloud

import "fmt"

// Vertex is one polygon corner in map coordinates.
type Vertex struct {
	X, Y float64
}

// Polygon is a simple (non-self-intersecting) closed ring used for optional
// crop regions on reads. The ring is implicitly closed; the first vertex does
// not need to be repeated at the end.
type Polygon struct {
	Vertices []Vertex
}

// Validate rejects degenerate rings.
func (p *Polygon) Validate() error {
	if len(p.Vertices) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d",
			ErrInvalidParameter, len(p.Vertices))
	}
	return nil
}

// Contains reports whether (x, y) falls inside the ring using the even-odd
// crossing rule. Points exactly on an edge may land on either side; crop
// polygons are buffered by callers when that matters.
func (p *Polygon) Contains(x, y float64) bool {
	inside := false
	n := len(p.Vertices)
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := p.Vertices[i], p.Vertices[j]
		if (vi.Y > y) != (vj.Y > y) &&
			x < (vj.X-vi.X)*(y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the bounding extent of the ring.
func (p *Polygon) Bounds() Extent {
	e := Extent{}
	for i, v := range p.Vertices {
		if i == 0 {
			e = Extent{MinX: v.X, MaxX: v.X, MinY: v.Y, MaxY: v.Y}
			continue
		}
		if v.X < e.MinX {
			e.MinX = v.X
		}
		if v.X > e.MaxX {
			e.MaxX = v.X
		}
		if v.Y < e.MinY {
			e.MinY = v.Y
		}
		if v.Y > e.MaxY {
			e.MaxY = v.Y
		}
	}
	return e
}
