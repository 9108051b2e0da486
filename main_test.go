package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/treeline-data/forestscan/internal/config"
	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/tiling"
)

func writePointFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.xyz")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write point file: %v", err)
	}
	return path
}

func TestReadXYZFile(t *testing.T) {
	path := writePointFile(t, `# x y z hag class
100.5 200.5 312.0 12.0 5
101.5 200.5 300.4 0.0 2

102.5 201.5 318.2 18.2 5
`)
	pts, schema, err := readXYZFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("read %d points, want 3", len(pts))
	}
	if !schema.HasHAG || !schema.HasClass {
		t.Fatalf("schema = %+v, want HAG and class populated", schema)
	}
	if pts[1].Class != pointcloud.ClassGround {
		t.Fatalf("point 1 class = %d, want ground", pts[1].Class)
	}
	if pts[2].HAG != 18.2 {
		t.Fatalf("point 2 HAG = %v, want 18.2", pts[2].HAG)
	}
}

func TestReadXYZFileWithoutClass(t *testing.T) {
	path := writePointFile(t, "1 2 3 0.5\n4 5 6 1.5\n")
	pts, schema, err := readXYZFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("read %d points, want 2", len(pts))
	}
	if schema.HasClass {
		t.Fatal("schema claims a class column the file does not have")
	}
}

func TestReadXYZFileErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"too few columns", "1 2 3\n"},
		{"non-numeric", "1 2 3 abc\n"},
		{"bad class", "1 2 3 4 notaclass\n"},
	}
	for _, tc := range cases {
		path := writePointFile(t, tc.body)
		if _, _, err := readXYZFile(path); err == nil {
			t.Errorf("%s: want an error", tc.name)
		}
	}
}

func TestMetricOptionsCoverThreshold(t *testing.T) {
	cfg := config.EmptyJobConfig()
	// Cover uses the cover threshold as its integration floor, not min_height.
	opts := metricOptionsFromConfig(cfg, tiling.MetricCover)
	if opts.Canopy.MinHeight != cfg.GetCoverThreshold() {
		t.Fatalf("cover floor = %v, want the %v m cover threshold",
			opts.Canopy.MinHeight, cfg.GetCoverThreshold())
	}
	opts = metricOptionsFromConfig(cfg, tiling.MetricPAI)
	if opts.Canopy.MinHeight != cfg.GetMinHeight() {
		t.Fatalf("pai floor = %v, want min_height %v", opts.Canopy.MinHeight, cfg.GetMinHeight())
	}
}
