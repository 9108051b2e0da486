package pointcloud

import "testing"

func TestHeightBandFilter(t *testing.T) {
	pts := []Point{
		{HAG: -0.5},
		{HAG: 0},
		{HAG: 1.2},
		{HAG: 30},
		{HAG: 55},
	}
	f := NewHeightBandFilter(0, 50)
	kept := f.Filter(pts)
	if len(kept) != 3 {
		t.Fatalf("kept %d points, want 3", len(kept))
	}
	processed, keptN, below, above := f.Stats()
	if processed != 5 || keptN != 3 || below != 1 || above != 1 {
		t.Fatalf("stats = (%d, %d, %d, %d), want (5, 3, 1, 1)", processed, keptN, below, above)
	}

	f.ResetStats()
	if p, _, _, _ := f.Stats(); p != 0 {
		t.Fatalf("processed = %d after reset, want 0", p)
	}
}

func TestHeightBandFilterOpenTop(t *testing.T) {
	pts := []Point{{HAG: -1}, {HAG: 500}}
	f := NewHeightBandFilter(0, -1)
	kept := f.Filter(pts)
	if len(kept) != 1 || kept[0].HAG != 500 {
		t.Fatalf("open-topped band kept %v, want only the 500 m point", kept)
	}
}

func TestHeightBandFilterEmpty(t *testing.T) {
	f := NewHeightBandFilter(0, 10)
	if got := f.Filter(nil); got != nil {
		t.Fatalf("empty input should return nil, got %v", got)
	}
}

func TestFilterGround(t *testing.T) {
	pts := []Point{
		{Z: 100, Class: ClassGround},
		{Z: 110, Class: 5},
		{Z: 101, Class: ClassGround},
	}
	ground := FilterGround(pts)
	if len(ground) != 2 {
		t.Fatalf("ground points = %d, want 2", len(ground))
	}
	veg := FilterVegetation(pts)
	if len(veg) != 1 || veg[0].Z != 110 {
		t.Fatalf("vegetation points = %v, want only the class-5 point", veg)
	}
	// The input slice must survive both calls untouched.
	if len(pts) != 3 || pts[1].Class != 5 {
		t.Fatal("input slice was modified")
	}
}
