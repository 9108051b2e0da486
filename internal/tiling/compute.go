package tiling

import (
	"fmt"

	"github.com/treeline-data/forestscan/internal/canopy"
	"github.com/treeline-data/forestscan/internal/pointcloud"
	"github.com/treeline-data/forestscan/internal/raster"
	"github.com/treeline-data/forestscan/internal/voxel"
)

// Metric names one of the per-column products the engine can rasterize.
type Metric string

const (
	MetricPAI   Metric = "pai"
	MetricFHD   Metric = "fhd"
	MetricCover Metric = "cover"
	MetricCHM   Metric = "chm"
	MetricDTM   Metric = "dtm"
)

// ParseMetric validates a metric name from configuration or the CLI.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricPAI, MetricFHD, MetricCover, MetricCHM, MetricDTM:
		return Metric(name), nil
	}
	return "", fmt.Errorf("%w: unknown metric %q (want pai, fhd, cover, chm or dtm)",
		pointcloud.ErrInvalidParameter, name)
}

// MetricOptions parameterises one metric computation.
type MetricOptions struct {
	Resolution voxel.Resolution
	Canopy     canopy.Options
	DTMAgg     canopy.DTMAggregation
	CRS        string
}

// Compute rasterizes the named metric for points over an explicit extent.
// The voxel metrics (pai, fhd, cover) run the voxelizer first; the surface
// metrics (chm, dtm) bin points directly. Degenerate columns surface as NaN
// cells, never as errors.
func Compute(metric Metric, pts []pointcloud.Point, ext pointcloud.Extent, opts MetricOptions) (*raster.Raster, error) {
	switch metric {
	case MetricPAI, MetricFHD, MetricCover:
		grid, err := voxel.VoxelizeExtent(pts, opts.Resolution, ext)
		if err != nil {
			return nil, err
		}
		switch metric {
		case MetricPAI:
			return canopy.PAI(grid, opts.Canopy, opts.CRS), nil
		case MetricFHD:
			return canopy.FHD(grid, opts.CRS), nil
		default:
			return canopy.Cover(grid, opts.Canopy, opts.CRS), nil
		}
	case MetricCHM:
		return canopy.CHMExtent(pts, opts.Resolution.DX, ext, opts.CRS)
	case MetricDTM:
		agg := opts.DTMAgg
		if agg == "" {
			agg = canopy.DTMMin
		}
		return canopy.DTMExtent(pointcloud.FilterGround(pts), opts.Resolution.DX, ext, agg, opts.CRS)
	}
	return nil, fmt.Errorf("%w: unknown metric %q", pointcloud.ErrInvalidParameter, metric)
}

// ComputeAuto is the single-extent entry point: it derives the extent from
// the points and computes the metric over it. An empty point set produces an
// empty raster.
func ComputeAuto(metric Metric, pts []pointcloud.Point, opts MetricOptions) (*raster.Raster, pointcloud.Extent, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, pointcloud.Extent{}, err
	}
	switch metric {
	case MetricCHM:
		r, err := canopy.CHM(pts, opts.Resolution.DX, opts.CRS)
		if err != nil {
			return nil, pointcloud.Extent{}, err
		}
		return r, r.Extent, nil
	case MetricDTM:
		agg := opts.DTMAgg
		if agg == "" {
			agg = canopy.DTMMin
		}
		r, err := canopy.DTM(pointcloud.FilterGround(pts), opts.Resolution.DX, agg, opts.CRS)
		if err != nil {
			return nil, pointcloud.Extent{}, err
		}
		return r, r.Extent, nil
	default:
		grid, ext, err := voxel.Voxelize(pts, opts.Resolution)
		if err != nil {
			return nil, pointcloud.Extent{}, err
		}
		switch metric {
		case MetricPAI:
			return canopy.PAI(grid, opts.Canopy, opts.CRS), ext, nil
		case MetricFHD:
			return canopy.FHD(grid, opts.CRS), ext, nil
		default:
			return canopy.Cover(grid, opts.Canopy, opts.CRS), ext, nil
		}
	}
}
