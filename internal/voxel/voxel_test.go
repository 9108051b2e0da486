package voxel

import (
	"errors"
	"math"
	"testing"

	"github.com/treeline-data/forestscan/internal/pointcloud"
)

func pt(x, y, hag float64) pointcloud.Point {
	return pointcloud.Point{X: x, Y: y, Z: hag, HAG: hag}
}

func TestVoxelizeDimensions(t *testing.T) {
	pts := []pointcloud.Point{
		pt(0, 0, 0),
		pt(10, 5, 3.2),
	}
	g, ext, err := Voxelize(pts, Resolution{DX: 2, DY: 2, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 5 || g.NY != 3 || g.NZ != 4 {
		t.Fatalf("dims = (%d, %d, %d), want (5, 3, 4)", g.NX, g.NY, g.NZ)
	}
	if ext.MinX != 0 || ext.MinY != 0 {
		t.Fatalf("extent min = (%v, %v), want (0, 0)", ext.MinX, ext.MinY)
	}
	// Far edges are snapped to whole cells.
	if ext.MaxX != 10 || ext.MaxY != 6 {
		t.Fatalf("extent max = (%v, %v), want (10, 6)", ext.MaxX, ext.MaxY)
	}
}

func TestVoxelizeBoundaryPointClamped(t *testing.T) {
	// The point at the exact maximum must land in the last cell, not fall out.
	pts := []pointcloud.Point{
		pt(0, 0, 0),
		pt(4, 4, 2),
	}
	g, _, err := Voxelize(pts, Resolution{DX: 2, DY: 2, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := 0
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			for iz := 0; iz < g.NZ; iz++ {
				total += g.Returns(ix, iy, iz)
			}
		}
	}
	if total != 2 {
		t.Fatalf("binned %d points, want 2", total)
	}
	if g.Returns(g.NX-1, g.NY-1, g.NZ-1) != 1 {
		t.Fatal("boundary point did not clamp into the last cell")
	}
}

func TestVoxelizeEmptyInput(t *testing.T) {
	g, ext, err := Voxelize(nil, Resolution{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("empty input must not error, got %v", err)
	}
	if !g.Empty() {
		t.Fatalf("want empty grid, got %d x %d x %d", g.NX, g.NY, g.NZ)
	}
	if ext.Valid() {
		t.Fatalf("want degenerate extent, got %+v", ext)
	}
}

func TestVoxelizeInvalidResolution(t *testing.T) {
	for _, res := range []Resolution{
		{DX: 0, DY: 1, DZ: 1},
		{DX: 1, DY: -2, DZ: 1},
		{DX: 1, DY: 1, DZ: 0},
	} {
		_, _, err := Voxelize([]pointcloud.Point{pt(0, 0, 0)}, res)
		if !errors.Is(err, pointcloud.ErrInvalidParameter) {
			t.Fatalf("resolution %+v: want ErrInvalidParameter, got %v", res, err)
		}
	}
}

func TestVoxelizeDropsNegativeHAG(t *testing.T) {
	pts := []pointcloud.Point{
		pt(0, 0, 1),
		pt(1, 1, -0.5), // below-ground noise
	}
	g, _, err := Voxelize(pts, Resolution{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 1 || g.NY != 1 {
		t.Fatalf("dims = (%d, %d), want (1, 1): negative-HAG point should not widen the extent", g.NX, g.NY)
	}
}

func TestVoxelizeDegenerateSpan(t *testing.T) {
	// All points at one location still yield a one-cell grid.
	pts := []pointcloud.Point{pt(3, 3, 0), pt(3, 3, 0)}
	g, _, err := Voxelize(pts, Resolution{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 1 || g.NY != 1 || g.NZ != 1 {
		t.Fatalf("dims = (%d, %d, %d), want (1, 1, 1)", g.NX, g.NY, g.NZ)
	}
	if g.Returns(0, 0, 0) != 2 {
		t.Fatalf("returns = %d, want 2", g.Returns(0, 0, 0))
	}
}

// singleColumn builds a one-column grid with the given per-layer returns,
// ground layer first, using 1 m layers.
func singleColumn(t *testing.T, returns []int) *Grid {
	t.Helper()
	var pts []pointcloud.Point
	for iz, n := range returns {
		for i := 0; i < n; i++ {
			pts = append(pts, pt(0.5, 0.5, float64(iz)+0.5))
		}
	}
	g, _, err := Voxelize(pts, Resolution{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 1 || g.NY != 1 || g.NZ != len(returns) {
		t.Fatalf("dims = (%d, %d, %d), want (1, 1, %d)", g.NX, g.NY, g.NZ, len(returns))
	}
	return g
}

func TestColumnPulsesCumulative(t *testing.T) {
	g := singleColumn(t, []int{10, 10, 10, 10, 60})

	entering, exiting := g.ColumnPulses(0, 0)
	wantEntering := []float64{100, 90, 80, 70, 60}
	wantExiting := []float64{90, 80, 70, 60, 0}
	for i := range wantEntering {
		if entering[i] != wantEntering[i] {
			t.Errorf("entering[%d] = %v, want %v", i, entering[i], wantEntering[i])
		}
		if exiting[i] != wantExiting[i] {
			t.Errorf("exiting[%d] = %v, want %v", i, exiting[i], wantExiting[i])
		}
	}
	// Both sequences are non-increasing with height and linked by one layer.
	for i := 0; i < len(entering)-1; i++ {
		if entering[i+1] > entering[i] {
			t.Fatalf("entering not monotone at layer %d", i)
		}
		if exiting[i] != entering[i+1] {
			t.Fatalf("exiting[%d] = %v, want entering[%d] = %v", i, exiting[i], i+1, entering[i+1])
		}
	}
}

func TestVoxelizeExtentSharedLattice(t *testing.T) {
	ext := pointcloud.Extent{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}
	pts := []pointcloud.Point{
		pt(1.5, 1.5, 0.5),
		pt(50, 50, 1), // outside the extent, must be ignored
	}
	g, err := VoxelizeExtent(pts, Resolution{DX: 1, DY: 1, DZ: 1}, ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 10 || g.NY != 10 {
		t.Fatalf("dims = (%d, %d), want (10, 10)", g.NX, g.NY)
	}
	if g.Returns(1, 1, 0) != 1 {
		t.Fatal("in-extent point not binned at (1, 1, 0)")
	}
}

func TestVoxelizeExtentNoPoints(t *testing.T) {
	ext := pointcloud.Extent{MinX: 0, MaxX: 4, MinY: 0, MaxY: 4}
	g, err := VoxelizeExtent(nil, Resolution{DX: 2, DY: 2, DZ: 1}, ext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 2 || g.NY != 2 || g.NZ != 1 {
		t.Fatalf("dims = (%d, %d, %d), want (2, 2, 1)", g.NX, g.NY, g.NZ)
	}
	entering, exiting := g.ColumnPulses(0, 0)
	if entering[0] != 0 || exiting[0] != 0 {
		t.Fatal("empty grid column should carry zero pulse counts")
	}
}

func TestColumnReturnsCopy(t *testing.T) {
	g := singleColumn(t, []int{3, 0, 7})
	col := g.ColumnReturns(0, 0)
	want := []float64{3, 0, 7}
	for i := range want {
		if col[i] != want[i] {
			t.Fatalf("col[%d] = %v, want %v", i, col[i], want[i])
		}
	}
	col[0] = math.NaN() // mutating the copy must not touch the grid
	if g.Returns(0, 0, 0) != 3 {
		t.Fatal("ColumnReturns aliased grid storage")
	}
}
