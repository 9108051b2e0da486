// Package canopy computes per-column forest structure metrics from a voxel
// grid: plant area density and index, foliage height diversity, canopy cover,
// and the CHM/DTM surface rasters.
package canopy

import (
	"math"

	"github.com/treeline-data/forestscan/internal/voxel"
)

// Options carries the per-call metric parameters. Jobs running concurrently
// with different parameters each hold their own Options value; there is no
// package-level tuning state.
type Options struct {
	// K is the Beer-Lambert extinction coefficient.
	K float64

	// MinHeight is the lower bound in metres of the vertical integration
	// window for PAI and cover.
	MinHeight float64

	// MaxHeight caps the integration window. Negative means unbounded.
	MaxHeight float64

	// DropGround forces the lowest voxel layer to NaN in PAD profiles,
	// excluding ground returns from the integral.
	DropGround bool
}

// DefaultOptions returns the conventional parameter set: spherical
// leaf-angle extinction (k = 0.5), a 1 m floor to exclude near-ground noise,
// and no ceiling.
func DefaultOptions() Options {
	return Options{K: 0.5, MinHeight: 1.0, MaxHeight: -1}
}

// CoverThresholdGEDI is the height-above-ground threshold, in metres, of the
// GEDI tree-cover convention.
const CoverThresholdGEDI = 2.0

// PADProfile computes plant area density per layer from cumulative pulse
// counts, ground layer first:
//
//	PAD_i = ln(entering_i / exiting_i) / (k * dz)
//
// A layer where either count is zero has no defined attenuation ratio and is
// marked NaN; downstream integrals skip such layers instead of propagating
// the NaN. The top layer of a column that absorbs all remaining pulses is
// therefore always NaN. Finite negative results are preserved.
func PADProfile(entering, exiting []float64, k, dz float64) []float64 {
	pad := make([]float64, len(entering))
	for i := range entering {
		if entering[i] <= 0 || exiting[i] <= 0 {
			pad[i] = math.NaN()
			continue
		}
		pad[i] = math.Log(entering[i]/exiting[i]) / (k * dz)
	}
	return pad
}

// ColumnPAD computes the PAD vertical profile for one grid column.
func ColumnPAD(g *voxel.Grid, ix, iy int, opts Options) []float64 {
	entering, exiting := g.ColumnPulses(ix, iy)
	pad := PADProfile(entering, exiting, opts.K, g.Res.DZ)
	if opts.DropGround && len(pad) > 0 {
		pad[0] = math.NaN()
	}
	return pad
}

// integrationWindow converts the [MinHeight, MaxHeight) window of opts into
// layer indices for a column of nz layers of height dz. ok is false when the
// window selects no layers, which callers treat as "no canopy above the
// threshold" rather than an error.
func integrationWindow(nz int, dz float64, opts Options) (start, end int, ok bool) {
	top := float64(nz) * dz
	maxH := top
	if opts.MaxHeight >= 0 && opts.MaxHeight < maxH {
		maxH = opts.MaxHeight
	}
	if opts.MinHeight >= maxH {
		return 0, 0, false
	}
	start = int(math.Ceil(opts.MinHeight / dz))
	end = int(math.Floor(maxH / dz))
	if end > nz {
		end = nz
	}
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}

// integratePAD sums the finite PAD layers in [start, end) and scales by dz,
// the vertical integral of the profile. The second return is false when every
// layer in the window is NaN.
func integratePAD(pad []float64, start, end int, dz float64) (float64, bool) {
	sum := 0.0
	any := false
	for i := start; i < end; i++ {
		if math.IsNaN(pad[i]) {
			continue
		}
		sum += pad[i]
		any = true
	}
	return sum * dz, any
}
