package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/treeline-data/forestscan/internal/canopy"
	"github.com/treeline-data/forestscan/internal/config"
	"github.com/treeline-data/forestscan/internal/jobstore"
	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/raster"
	"github.com/treeline-data/forestscan/internal/report"
	"github.com/treeline-data/forestscan/internal/tiling"
	"github.com/treeline-data/forestscan/internal/voxel"
)

// readXYZFile reads a whitespace-separated text point file with columns
// X Y Z HAG [CLASS]. Lines starting with '#' are skipped. This is the CLI's
// thin stand-in for a real point cloud reader; library callers hand the
// engine decoded points directly.
func readXYZFile(path string) ([]pointcloud.Point, pointcloud.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pointcloud.Schema{}, err
	}
	defer f.Close()

	schema := pointcloud.Schema{HasHAG: true}
	var pts []pointcloud.Point
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, schema, fmt.Errorf("%s:%d: want at least 4 columns (X Y Z HAG), got %d",
				path, lineNo, len(fields))
		}
		var p pointcloud.Point
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, schema, fmt.Errorf("%s:%d: column %d: %w", path, lineNo, i+1, err)
			}
			vals[i] = v
		}
		p.X, p.Y, p.Z, p.HAG = vals[0], vals[1], vals[2], vals[3]
		if len(fields) >= 5 {
			c, err := strconv.ParseUint(fields[4], 10, 8)
			if err != nil {
				return nil, schema, fmt.Errorf("%s:%d: class column: %w", path, lineNo, err)
			}
			p.Class = uint8(c)
			schema.HasClass = true
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, schema, err
	}
	if err := schema.Validate(pts); err != nil {
		return nil, schema, err
	}
	return pts, schema, nil
}

// loadConfig reads the job config file when given, or returns all defaults.
func loadConfig(path string) (*config.JobConfig, error) {
	if path == "" {
		return config.EmptyJobConfig(), nil
	}
	return config.LoadJobConfig(path)
}

func metricOptionsFromConfig(cfg *config.JobConfig, metric tiling.Metric) tiling.MetricOptions {
	copts := canopy.Options{
		K:          cfg.GetExtinctionK(),
		MinHeight:  cfg.GetMinHeight(),
		MaxHeight:  cfg.GetMaxHeight(),
		DropGround: cfg.GetDropGround(),
	}
	if metric == tiling.MetricCover {
		copts.MinHeight = cfg.GetCoverThreshold()
	}
	return tiling.MetricOptions{
		Resolution: voxel.Resolution{
			DX: cfg.GetVoxelDX(),
			DY: cfg.GetVoxelDY(),
			DZ: cfg.GetVoxelDZ(),
		},
		Canopy: copts,
		DTMAgg: canopy.DTMAggregation(cfg.GetDTMAggregation()),
		CRS:    cfg.GetCRS(),
	}
}

func runVoxelize(args []string) error {
	fs := flag.NewFlagSet("voxelize", flag.ExitOnError)
	input := fs.String("input", "", "XYZ point file")
	cfgPath := fs.String("config", "", "job config JSON")
	fs.Parse(args)
	if *input == "" {
		return fmt.Errorf("voxelize: -input is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	pts, _, err := readXYZFile(*input)
	if err != nil {
		return err
	}
	res := voxel.Resolution{DX: cfg.GetVoxelDX(), DY: cfg.GetVoxelDY(), DZ: cfg.GetVoxelDZ()}
	grid, ext, err := voxel.Voxelize(pts, res)
	if err != nil {
		return err
	}
	fmt.Printf("grid %d x %d x %d cells over [%g, %g] x [%g, %g]\n",
		grid.NX, grid.NY, grid.NZ, ext.MinX, ext.MaxX, ext.MinY, ext.MaxY)
	return nil
}

func runMetric(args []string) error {
	fs := flag.NewFlagSet("metric", flag.ExitOnError)
	input := fs.String("input", "", "XYZ point file")
	output := fs.String("output", "metric.asc", "output raster path")
	name := fs.String("metric", "", "metric name (overrides config)")
	cfgPath := fs.String("config", "", "job config JSON")
	fs.Parse(args)
	if *input == "" {
		return fmt.Errorf("metric: -input is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	metricName := cfg.GetMetric()
	if *name != "" {
		metricName = *name
	}
	metric, err := tiling.ParseMetric(metricName)
	if err != nil {
		return err
	}
	pts, _, err := readXYZFile(*input)
	if err != nil {
		return err
	}
	r, ext, err := tiling.ComputeAuto(metric, pts, metricOptionsFromConfig(cfg, metric))
	if err != nil {
		return err
	}
	if err := (raster.ASCIIGridWriter{}).Write(r, *output); err != nil {
		return err
	}
	fmt.Printf("%s: %d x %d cells (%d valid) over [%g, %g] x [%g, %g] -> %s\n",
		metric, r.NX, r.NY, r.CountValid(), ext.MinX, ext.MaxX, ext.MinY, ext.MaxY, *output)
	return nil
}

func runDTM(args []string) error {
	fs := flag.NewFlagSet("dtm", flag.ExitOnError)
	input := fs.String("input", "", "XYZ point file with classification column")
	output := fs.String("output", "dtm.asc", "output raster path")
	cfgPath := fs.String("config", "", "job config JSON")
	fs.Parse(args)
	if *input == "" {
		return fmt.Errorf("dtm: -input is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	pts, schema, err := readXYZFile(*input)
	if err != nil {
		return err
	}
	if !schema.HasClass {
		return fmt.Errorf("dtm: input has no classification column; cannot select ground points")
	}
	ground := pointcloud.FilterGround(pts)
	r, err := canopy.DTM(ground, cfg.GetVoxelDX(),
		canopy.DTMAggregation(cfg.GetDTMAggregation()), cfg.GetCRS())
	if err != nil {
		return err
	}
	if err := (raster.ASCIIGridWriter{}).Write(r, *output); err != nil {
		return err
	}
	fmt.Printf("dtm: %d ground points -> %d x %d cells -> %s\n", len(ground), r.NX, r.NY, *output)
	return nil
}

func runTiles(args []string) error {
	fs := flag.NewFlagSet("tiles", flag.ExitOnError)
	input := fs.String("input", "", "XYZ point file")
	cfgPath := fs.String("config", "", "job config JSON")
	reportPath := fs.String("report", "", "write an HTML job report to this path")
	migrations := fs.String("migrations", "db/migrations", "migrations directory for the job ledger")
	fs.Parse(args)
	if *input == "" {
		return fmt.Errorf("tiles: -input is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	metric, err := tiling.ParseMetric(cfg.GetMetric())
	if err != nil {
		return err
	}
	pts, schema, err := readXYZFile(*input)
	if err != nil {
		return err
	}
	src, err := pointcloud.NewMemorySource(pts, schema, cfg.GetCRS())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.GetOutputDir(), 0o755); err != nil {
		return err
	}

	opts := tiling.ProcessOptions{
		Metric:     metric,
		Options:    metricOptionsFromConfig(cfg, metric),
		TileWidth:  cfg.GetTileSize(),
		TileHeight: cfg.GetTileSize(),
		Buffer:     cfg.GetBuffer(),
		OutputDir:  cfg.GetOutputDir(),
		Workers:    cfg.GetWorkers(),
	}

	if dbPath := cfg.GetJobDB(); dbPath != "" {
		store, err := jobstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateUp(*migrations); err != nil {
			return err
		}
		opts.Ledger = store
	}

	jobReport, err := tiling.ProcessTiles(src, opts)
	if err != nil {
		return err
	}
	written, empty, failed := jobReport.Counts()
	fmt.Printf("job %s: %d written, %d empty, %d failed\n", jobReport.JobID, written, empty, failed)
	for _, t := range jobReport.FailedTiles() {
		fmt.Printf("  failed: %s\n", t.Name())
	}
	if *reportPath != "" {
		if err := report.WriteHTML(jobReport, *reportPath); err != nil {
			return err
		}
		fmt.Printf("report: %s\n", *reportPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tiles failed", failed, len(jobReport.Results))
	}
	return nil
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "forestscan_jobs.db", "job ledger sqlite path")
	migrations := fs.String("migrations", "db/migrations", "migrations directory")
	down := fs.Bool("down", false, "roll back the most recent migration instead")
	fs.Parse(args)

	store, err := jobstore.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *down {
		if err := store.MigrateDown(*migrations); err != nil {
			return err
		}
	} else {
		if err := store.MigrateUp(*migrations); err != nil {
			return err
		}
	}
	version, dirty, err := store.MigrateVersion(*migrations)
	if err != nil {
		return err
	}
	fmt.Printf("ledger %s at schema version %d (dirty=%v)\n", *dbPath, version, dirty)
	return nil
}
