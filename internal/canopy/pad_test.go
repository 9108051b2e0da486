package canopy

import (
	"math"
	"testing"

	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/voxel"
)

const tol = 1e-9

// columnGrid builds a single-column grid with the given per-layer returns,
// ground layer first, at 1 m layers.
func columnGrid(t *testing.T, returns []int) *voxel.Grid {
	t.Helper()
	var pts []pointcloud.Point
	for iz, n := range returns {
		for i := 0; i < n; i++ {
			h := float64(iz) + 0.5
			pts = append(pts, pointcloud.Point{X: 0.5, Y: 0.5, Z: h, HAG: h})
		}
	}
	g, _, err := voxel.Voxelize(pts, voxel.Resolution{DX: 1, DY: 1, DZ: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NX != 1 || g.NY != 1 || g.NZ != len(returns) {
		t.Fatalf("dims = (%d, %d, %d), want (1, 1, %d)", g.NX, g.NY, g.NZ, len(returns))
	}
	return g
}

func TestPADProfileVector(t *testing.T) {
	entering := []float64{100, 90, 80, 70, 60}
	exiting := []float64{90, 80, 70, 60, 0}
	pad := PADProfile(entering, exiting, 0.5, 1.0)

	want := []float64{
		math.Log(100.0/90.0) / 0.5,
		math.Log(90.0/80.0) / 0.5,
		math.Log(80.0/70.0) / 0.5,
		math.Log(70.0/60.0) / 0.5,
	}
	for i, w := range want {
		if math.Abs(pad[i]-w) > tol {
			t.Errorf("pad[%d] = %v, want %v", i, pad[i], w)
		}
	}
	// All pulses stop in the top layer, so its attenuation ratio is undefined.
	if !math.IsNaN(pad[4]) {
		t.Errorf("pad[4] = %v, want NaN", pad[4])
	}
}

func TestPADProfileZeroEntering(t *testing.T) {
	pad := PADProfile([]float64{0, 0}, []float64{0, 0}, 0.5, 1.0)
	for i, v := range pad {
		if !math.IsNaN(v) {
			t.Errorf("pad[%d] = %v, want NaN for a pulse-free layer", i, v)
		}
	}
}

func TestColumnPADDropGround(t *testing.T) {
	g := columnGrid(t, []int{10, 10, 10, 10, 60})
	pad := ColumnPAD(g, 0, 0, Options{K: 0.5, DropGround: true})
	if !math.IsNaN(pad[0]) {
		t.Fatalf("pad[0] = %v, want NaN with DropGround", pad[0])
	}
	if math.IsNaN(pad[1]) {
		t.Fatal("pad[1] should remain defined with DropGround")
	}
}

func TestIntegrationWindow(t *testing.T) {
	cases := []struct {
		name       string
		nz         int
		dz         float64
		opts       Options
		start, end int
		ok         bool
	}{
		{"full column", 5, 1, Options{MinHeight: 0, MaxHeight: -1}, 0, 5, true},
		{"one metre floor", 5, 1, Options{MinHeight: 1, MaxHeight: -1}, 1, 5, true},
		{"capped", 5, 1, Options{MinHeight: 1, MaxHeight: 3}, 1, 3, true},
		{"floor above canopy", 5, 1, Options{MinHeight: 10, MaxHeight: -1}, 0, 0, false},
		{"inverted window", 5, 1, Options{MinHeight: 3, MaxHeight: 2}, 0, 0, false},
		{"half metre layers", 4, 0.5, Options{MinHeight: 1, MaxHeight: -1}, 2, 4, true},
	}
	for _, tc := range cases {
		start, end, ok := integrationWindow(tc.nz, tc.dz, tc.opts)
		if start != tc.start || end != tc.end || ok != tc.ok {
			t.Errorf("%s: window = (%d, %d, %v), want (%d, %d, %v)",
				tc.name, start, end, ok, tc.start, tc.end, tc.ok)
		}
	}
}

func TestIntegratePADSkipsNaN(t *testing.T) {
	pad := []float64{0.2, math.NaN(), 0.3, math.NaN()}
	v, any := integratePAD(pad, 0, len(pad), 1.0)
	if !any {
		t.Fatal("window has finite layers, any should be true")
	}
	if math.Abs(v-0.5) > tol {
		t.Fatalf("integral = %v, want 0.5", v)
	}

	allNaN := []float64{math.NaN(), math.NaN()}
	_, any = integratePAD(allNaN, 0, len(allNaN), 1.0)
	if any {
		t.Fatal("all-NaN window must report any=false")
	}
}

func TestIntegratePADScalesByLayerHeight(t *testing.T) {
	pad := []float64{0.4, 0.6}
	v, _ := integratePAD(pad, 0, 2, 0.5)
	if math.Abs(v-0.5) > tol {
		t.Fatalf("integral = %v, want 0.5 with dz = 0.5", v)
	}
}
