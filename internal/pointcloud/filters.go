package pointcloud

// HeightBandFilter keeps only points whose height above ground falls inside a
// configurable band. It is used to strip negative-HAG noise before
// voxelization and to drop overhead outliers before canopy statistics.
type HeightBandFilter struct {
	// LowerM is the inclusive lower HAG bound in metres.
	LowerM float64

	// UpperM is the inclusive upper HAG bound in metres. A negative value
	// disables the upper bound.
	UpperM float64

	// Statistics for tuning and validation.
	pointsProcessed int64
	pointsKept      int64
	pointsBelow     int64
	pointsAbove     int64
}

// NewHeightBandFilter constructs a HAG band filter. Pass upper < 0 for an
// open-topped band.
func NewHeightBandFilter(lowerM, upperM float64) *HeightBandFilter {
	return &HeightBandFilter{LowerM: lowerM, UpperM: upperM}
}

// Filter applies the band test to each point, compacting keepers in place and
// returning a truncated slice header over the same backing array.
func (f *HeightBandFilter) Filter(pts []Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	writeIdx := 0
	for readIdx := range pts {
		p := pts[readIdx]
		f.pointsProcessed++
		if p.HAG < f.LowerM {
			f.pointsBelow++
			continue
		}
		if f.UpperM >= 0 && p.HAG > f.UpperM {
			f.pointsAbove++
			continue
		}
		f.pointsKept++
		pts[writeIdx] = p
		writeIdx++
	}
	return pts[:writeIdx]
}

// Stats returns the accumulated filter counters.
func (f *HeightBandFilter) Stats() (processed, kept, below, above int64) {
	return f.pointsProcessed, f.pointsKept, f.pointsBelow, f.pointsAbove
}

// ResetStats clears the accumulated counters.
func (f *HeightBandFilter) ResetStats() {
	f.pointsProcessed = 0
	f.pointsKept = 0
	f.pointsBelow = 0
	f.pointsAbove = 0
}

// FilterGround returns only the ground-classified points (ASPRS class 2).
// The input slice is not modified.
func FilterGround(pts []Point) []Point {
	var out []Point
	for _, p := range pts {
		if p.Class == ClassGround {
			out = append(out, p)
		}
	}
	return out
}

// FilterVegetation returns the points that are not ground-classified.
// The input slice is not modified.
func FilterVegetation(pts []Point) []Point {
	var out []Point
	for _, p := range pts {
		if p.Class != ClassGround {
			out = append(out, p)
		}
	}
	return out
}
