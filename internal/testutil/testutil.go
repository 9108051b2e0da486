// Package testutil provides shared numeric test helpers.
//
// The metric math produces NaN for degenerate cells, so the helpers here
// make NaN-awareness explicit instead of scattering math.IsNaN checks
// through every test.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want. NaN never matches.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Fatalf("got %v, want %v ± %v", got, want, delta)
	}
}

// AssertNaN checks that got is NaN.
func AssertNaN(t *testing.T, got float64) {
	t.Helper()
	if !math.IsNaN(got) {
		t.Fatalf("got %v, want NaN", got)
	}
}

// AssertNotNaN checks that got is a real number.
func AssertNotNaN(t *testing.T, got float64) {
	t.Helper()
	if math.IsNaN(got) {
		t.Fatal("got NaN, want a real value")
	}
}

// NaNEqual reports whether two floats are equal within delta, treating NaN
// as equal to NaN. Used as a go-cmp comparer for raster values.
func NaNEqual(delta float64) func(a, b float64) bool {
	return func(a, b float64) bool {
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.IsNaN(a) && math.IsNaN(b)
		}
		return math.Abs(a-b) <= delta
	}
}
