package tiling

import (
	"errors"
	"reflect"
	"testing"

	"github.com/treeline-data/forestscan/internal/pointcloud"
)

func TestPlanTilesCoverage(t *testing.T) {
	bounds := pointcloud.Extent{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}
	specs, err := PlanTiles(bounds, 30, 30, 5)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(specs) != 16 {
		t.Fatalf("planned %d tiles, want 16", len(specs))
	}

	// Output regions tile the bounds exactly: total area matches and every
	// region stays inside the bounds.
	area := 0.0
	for _, s := range specs {
		if !s.Output.Valid() {
			t.Fatalf("%s: invalid output %+v", s.Name(), s.Output)
		}
		if s.Output.MinX < bounds.MinX || s.Output.MaxX > bounds.MaxX ||
			s.Output.MinY < bounds.MinY || s.Output.MaxY > bounds.MaxY {
			t.Fatalf("%s: output %+v leaves the bounds", s.Name(), s.Output)
		}
		area += s.Output.Width() * s.Output.Height()
	}
	if want := bounds.Width() * bounds.Height(); area != want {
		t.Fatalf("output areas sum to %v, want %v", area, want)
	}
}

func TestPlanTilesEdgeTilesClipped(t *testing.T) {
	bounds := pointcloud.Extent{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}
	specs, err := PlanTiles(bounds, 30, 30, 5)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	// The last column is 100 - 90 = 10 wide, not 30.
	last := specs[3]
	if last.Col != 3 || last.Row != 0 {
		t.Fatalf("specs[3] = (%d, %d), want (3, 0): plan must be row-major", last.Col, last.Row)
	}
	if last.Output.MinX != 90 || last.Output.MaxX != 100 {
		t.Fatalf("edge tile X = [%v, %v], want [90, 100]", last.Output.MinX, last.Output.MaxX)
	}
}

func TestPlanTilesBufferClippedToBounds(t *testing.T) {
	bounds := pointcloud.Extent{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}
	specs, err := PlanTiles(bounds, 30, 30, 5)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	corner := specs[0]
	want := pointcloud.Extent{MinX: 0, MaxX: 35, MinY: 0, MaxY: 35}
	if corner.Buffered != want {
		t.Fatalf("corner buffered = %+v, want %+v", corner.Buffered, want)
	}
	// An interior tile keeps the full margin on every side.
	interior := specs[5] // col 1, row 1
	want = pointcloud.Extent{MinX: 25, MaxX: 65, MinY: 25, MaxY: 65}
	if interior.Buffered != want {
		t.Fatalf("interior buffered = %+v, want %+v", interior.Buffered, want)
	}
}

func TestPlanTilesDeterministic(t *testing.T) {
	bounds := pointcloud.Extent{MinX: 3, MaxX: 97, MinY: -10, MaxY: 44}
	a, err := PlanTiles(bounds, 25, 25, 10)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	b, err := PlanTiles(bounds, 25, 25, 10)
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("re-planning the same inputs produced a different sequence")
	}
}

func TestPlanTilesUniqueNames(t *testing.T) {
	bounds := pointcloud.Extent{MinX: 0, MaxX: 55, MinY: 0, MaxY: 55}
	specs, err := PlanTiles(bounds, 10, 10, 2)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Name()] {
			t.Fatalf("duplicate tile name %s", s.Name())
		}
		seen[s.Name()] = true
	}
}

func TestPlanTilesValidation(t *testing.T) {
	good := pointcloud.Extent{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}
	cases := []struct {
		name   string
		bounds pointcloud.Extent
		w, h   float64
		buffer float64
	}{
		{"invalid bounds", pointcloud.Extent{}, 10, 10, 0},
		{"zero tile width", good, 0, 10, 0},
		{"negative tile height", good, 10, -1, 0},
		{"negative buffer", good, 10, 10, -1},
	}
	for _, tc := range cases {
		_, err := PlanTiles(tc.bounds, tc.w, tc.h, tc.buffer)
		if !errors.Is(err, pointcloud.ErrInvalidParameter) {
			t.Errorf("%s: want ErrInvalidParameter, got %v", tc.name, err)
		}
	}
}
