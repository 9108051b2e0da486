package tiling

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/treeline-data/forestscan/internal/monitoring"
	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/raster"
)

// TileStatus classifies the outcome of one tile.
type TileStatus string

const (
	// TileWritten means the tile raster was computed and written.
	TileWritten TileStatus = "written"
	// TileEmpty means the buffered read returned no points; a no-data tile
	// was written and a warning recorded.
	TileEmpty TileStatus = "empty"
	// TileFailed means the upstream read or the raster write failed. The
	// failure is per-tile; the job continues.
	TileFailed TileStatus = "failed"
)

// TileResult is the outcome of processing one planned tile.
type TileResult struct {
	Spec       Spec
	Status     TileStatus
	Path       string
	ValidCells int
	Err        error
}

// JobReport aggregates the per-tile outcomes of one tiling job.
type JobReport struct {
	JobID      string
	Metric     Metric
	Bounds     pointcloud.Extent
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []TileResult
}

// Counts tallies the result statuses.
func (r *JobReport) Counts() (written, empty, failed int) {
	for _, t := range r.Results {
		switch t.Status {
		case TileWritten:
			written++
		case TileEmpty:
			empty++
		case TileFailed:
			failed++
		}
	}
	return written, empty, failed
}

// FailedTiles returns the specs of the tiles that failed, for re-submission.
func (r *JobReport) FailedTiles() []Spec {
	var out []Spec
	for _, t := range r.Results {
		if t.Status == TileFailed {
			out = append(out, t.Spec)
		}
	}
	return out
}

// WrittenPaths returns the paths of every tile file that was durably written,
// including no-data tiles.
func (r *JobReport) WrittenPaths() []string {
	var out []string
	for _, t := range r.Results {
		if t.Path != "" && t.Status != TileFailed {
			out = append(out, t.Path)
		}
	}
	return out
}

// Ledger records job progress durably. The jobstore package provides the
// sqlite-backed implementation; ledger failures are logged and never fail
// the job itself.
type Ledger interface {
	StartJob(report *JobReport, tileCount int) error
	RecordTile(jobID string, res TileResult) error
	FinishJob(report *JobReport) error
}

// Bounded is an optional Source capability: a source that knows the overall
// extent of its data. When the caller passes no explicit bounds, ProcessTiles
// asks the source.
type Bounded interface {
	Bounds() (pointcloud.Extent, bool)
}

// ProcessOptions configures a tiling job.
type ProcessOptions struct {
	Metric  Metric
	Options MetricOptions

	TileWidth  float64
	TileHeight float64
	Buffer     float64

	// Bounds limits the job to an explicit region. Nil means the source's
	// own bounds.
	Bounds *pointcloud.Extent

	// Polygon optionally restricts every buffered read.
	Polygon *pointcloud.Polygon

	OutputDir string

	// Workers is the tile worker pool size; values below 1 mean serial.
	Workers int

	// Writer emits the tile rasters. Nil means raster.ASCIIGridWriter.
	Writer raster.Writer

	// Ledger optionally records the job and per-tile outcomes.
	Ledger Ledger
}

// ProcessTiles plans tiles over the job bounds and processes each one:
// buffered read, metric computation, buffer crop, write. Tiles are
// independent; they run across a worker pool with no shared mutable state
// beyond the output directory, and the deterministic tile naming keeps
// parallel writes collision-free. Per-tile failures are recorded in the
// report, not returned as errors; only invalid parameters fail the job as a
// whole.
func ProcessTiles(src pointcloud.Source, opts ProcessOptions) (*JobReport, error) {
	if _, err := ParseMetric(string(opts.Metric)); err != nil {
		return nil, err
	}
	if err := opts.Options.Resolution.Validate(); err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(src, opts.Bounds)
	if err != nil {
		return nil, err
	}
	specs, err := PlanTiles(bounds, opts.TileWidth, opts.TileHeight, opts.Buffer)
	if err != nil {
		return nil, err
	}

	writer := opts.Writer
	if writer == nil {
		writer = raster.ASCIIGridWriter{}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	metricOpts := opts.Options
	if metricOpts.CRS == "" {
		metricOpts.CRS = src.CRS()
	}

	report := &JobReport{
		JobID:     uuid.New().String(),
		Metric:    opts.Metric,
		Bounds:    bounds,
		StartedAt: time.Now(),
		Results:   make([]TileResult, len(specs)),
	}
	if opts.Ledger != nil {
		if err := opts.Ledger.StartJob(report, len(specs)); err != nil {
			monitoring.Logf("tiling: ledger start failed for job %s: %v", report.JobID, err)
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := processTile(src, specs[i], opts, metricOpts, writer)
				report.Results[i] = res
				if opts.Ledger != nil {
					if err := opts.Ledger.RecordTile(report.JobID, res); err != nil {
						monitoring.Logf("tiling: ledger record failed for %s: %v", res.Spec.Name(), err)
					}
				}
			}
		}()
	}
	for i := range specs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.FinishedAt = time.Now()
	sort.Slice(report.Results, func(a, b int) bool {
		ra, rb := report.Results[a].Spec, report.Results[b].Spec
		if ra.Row != rb.Row {
			return ra.Row < rb.Row
		}
		return ra.Col < rb.Col
	})
	if opts.Ledger != nil {
		if err := opts.Ledger.FinishJob(report); err != nil {
			monitoring.Logf("tiling: ledger finish failed for job %s: %v", report.JobID, err)
		}
	}

	written, empty, failed := report.Counts()
	monitoring.Logf("tiling: job %s %s complete: %d written, %d empty, %d failed",
		report.JobID, report.Metric, written, empty, failed)
	return report, nil
}

func resolveBounds(src pointcloud.Source, explicit *pointcloud.Extent) (pointcloud.Extent, error) {
	if explicit != nil {
		if !explicit.Valid() {
			return pointcloud.Extent{}, fmt.Errorf("%w: job bounds %+v",
				pointcloud.ErrInvalidParameter, *explicit)
		}
		return *explicit, nil
	}
	if b, ok := src.(Bounded); ok {
		if ext, ok := b.Bounds(); ok {
			// Reads treat max edges as exclusive; pad a derived extent so the
			// outermost points are not dropped from the last tiles.
			eps := 1e-9 * math.Max(1, math.Max(ext.Width(), ext.Height()))
			ext.MaxX += eps
			ext.MaxY += eps
			return ext, nil
		}
	}
	return pointcloud.Extent{}, fmt.Errorf("%w: no job bounds given and source has none",
		pointcloud.ErrInvalidParameter)
}

func processTile(src pointcloud.Source, spec Spec, opts ProcessOptions, metricOpts MetricOptions, writer raster.Writer) TileResult {
	res := TileResult{Spec: spec}
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_%s.asc", spec.Name(), opts.Metric))

	pts, err := src.Read(spec.Buffered, opts.Polygon)
	if err != nil {
		res.Status = TileFailed
		res.Err = fmt.Errorf("read %s: %w", spec.Name(), err)
		monitoring.Logf("tiling: %v", res.Err)
		return res
	}

	var tile *raster.Raster
	if len(pts) == 0 {
		monitoring.Logf("tiling: %s buffered region is empty, writing no-data tile", spec.Name())
		tile = noDataTile(spec.Output, metricOpts)
		res.Status = TileEmpty
	} else {
		full, err := Compute(opts.Metric, pts, spec.Buffered, metricOpts)
		if err != nil {
			res.Status = TileFailed
			res.Err = fmt.Errorf("compute %s: %w", spec.Name(), err)
			monitoring.Logf("tiling: %v", res.Err)
			return res
		}
		tile, err = full.Crop(spec.Output)
		if err != nil {
			res.Status = TileFailed
			res.Err = fmt.Errorf("crop %s: %w", spec.Name(), err)
			monitoring.Logf("tiling: %v", res.Err)
			return res
		}
		res.Status = TileWritten
		res.ValidCells = tile.CountValid()
	}

	if err := writer.Write(tile, path); err != nil {
		res.Status = TileFailed
		res.Err = fmt.Errorf("write %s: %w", spec.Name(), err)
		monitoring.Logf("tiling: %v", res.Err)
		return res
	}
	res.Path = path
	return res
}

// noDataTile builds an all-NaN raster covering the tile's output region at
// the job resolution, so empty regions still produce a georeferenced file.
func noDataTile(out pointcloud.Extent, opts MetricOptions) *raster.Raster {
	nx := int(math.Ceil(out.Width() / opts.Resolution.DX))
	if nx < 1 {
		nx = 1
	}
	ny := int(math.Ceil(out.Height() / opts.Resolution.DY))
	if ny < 1 {
		ny = 1
	}
	out.MaxX = out.MinX + float64(nx)*opts.Resolution.DX
	out.MaxY = out.MinY + float64(ny)*opts.Resolution.DY
	return raster.New(nx, ny, out, opts.CRS)
}
