// Package config loads job parameter files. Fields are pointers so a partial
// JSON file overrides only what it names; the Get* accessors supply the
// engine defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JobConfig is the root configuration for metric and tiling jobs. The same
// schema is accepted by every CLI subcommand, so one file can drive a whole
// processing campaign.
type JobConfig struct {
	// Metric selection
	Metric *string `json:"metric,omitempty"`

	// Voxel resolution (map units / metres)
	VoxelDX *float64 `json:"voxel_dx,omitempty"`
	VoxelDY *float64 `json:"voxel_dy,omitempty"`
	VoxelDZ *float64 `json:"voxel_dz,omitempty"`

	// Canopy metric params
	ExtinctionK    *float64 `json:"extinction_k,omitempty"`
	MinHeight      *float64 `json:"min_height,omitempty"`
	MaxHeight      *float64 `json:"max_height,omitempty"`
	CoverThreshold *float64 `json:"cover_threshold,omitempty"`
	DropGround     *bool    `json:"drop_ground,omitempty"`

	// Surface params
	DTMAggregation *string `json:"dtm_aggregation,omitempty"` // "min" or "mean"

	// Tiling params
	TileSize  *float64 `json:"tile_size,omitempty"`
	Buffer    *float64 `json:"buffer,omitempty"`
	Workers   *int     `json:"workers,omitempty"`
	OutputDir *string  `json:"output_dir,omitempty"`

	// Georeferencing and bookkeeping
	CRS   *string `json:"crs,omitempty"`
	JobDB *string `json:"job_db,omitempty"` // sqlite ledger path; empty disables
}

// EmptyJobConfig returns a JobConfig with every field unset, meaning all
// defaults.
func EmptyJobConfig() *JobConfig {
	return &JobConfig{}
}

// LoadJobConfig loads a JobConfig from a JSON file. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func LoadJobConfig(path string) (*JobConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Size cap as a safety net against reading the wrong file.
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyJobConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configured values. Unset fields are always valid.
func (c *JobConfig) Validate() error {
	checkPositive := func(name string, v *float64) error {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", name, *v)
		}
		return nil
	}
	for name, v := range map[string]*float64{
		"voxel_dx":  c.VoxelDX,
		"voxel_dy":  c.VoxelDY,
		"voxel_dz":  c.VoxelDZ,
		"tile_size": c.TileSize,
	} {
		if err := checkPositive(name, v); err != nil {
			return err
		}
	}
	if c.ExtinctionK != nil && *c.ExtinctionK <= 0 {
		return fmt.Errorf("extinction_k must be positive, got %g", *c.ExtinctionK)
	}
	if c.Buffer != nil && *c.Buffer < 0 {
		return fmt.Errorf("buffer must be non-negative, got %g", *c.Buffer)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.DTMAggregation != nil && *c.DTMAggregation != "min" && *c.DTMAggregation != "mean" {
		return fmt.Errorf("dtm_aggregation must be \"min\" or \"mean\", got %q", *c.DTMAggregation)
	}
	if c.MinHeight != nil && c.MaxHeight != nil && *c.MaxHeight >= 0 && *c.MaxHeight <= *c.MinHeight {
		return fmt.Errorf("max_height %g must exceed min_height %g", *c.MaxHeight, *c.MinHeight)
	}
	return nil
}

// GetMetric returns the metric name or the default.
func (c *JobConfig) GetMetric() string {
	if c.Metric == nil {
		return "pai"
	}
	return *c.Metric
}

// GetVoxelDX returns the X cell size or the default.
func (c *JobConfig) GetVoxelDX() float64 {
	if c.VoxelDX == nil {
		return 1.0
	}
	return *c.VoxelDX
}

// GetVoxelDY returns the Y cell size or the default.
func (c *JobConfig) GetVoxelDY() float64 {
	if c.VoxelDY == nil {
		return 1.0
	}
	return *c.VoxelDY
}

// GetVoxelDZ returns the layer height or the default.
func (c *JobConfig) GetVoxelDZ() float64 {
	if c.VoxelDZ == nil {
		return 1.0
	}
	return *c.VoxelDZ
}

// GetExtinctionK returns the Beer-Lambert extinction coefficient or the
// spherical leaf-angle default.
func (c *JobConfig) GetExtinctionK() float64 {
	if c.ExtinctionK == nil {
		return 0.5
	}
	return *c.ExtinctionK
}

// GetMinHeight returns the lower integration bound or the 1 m default that
// excludes near-ground noise.
func (c *JobConfig) GetMinHeight() float64 {
	if c.MinHeight == nil {
		return 1.0
	}
	return *c.MinHeight
}

// GetMaxHeight returns the upper integration bound, negative when unbounded.
func (c *JobConfig) GetMaxHeight() float64 {
	if c.MaxHeight == nil {
		return -1
	}
	return *c.MaxHeight
}

// GetCoverThreshold returns the canopy cover height threshold or the GEDI
// 2 m convention.
func (c *JobConfig) GetCoverThreshold() float64 {
	if c.CoverThreshold == nil {
		return 2.0
	}
	return *c.CoverThreshold
}

// GetDropGround reports whether the ground voxel layer is excluded from PAD.
func (c *JobConfig) GetDropGround() bool {
	if c.DropGround == nil {
		return false
	}
	return *c.DropGround
}

// GetDTMAggregation returns the DTM cell aggregation or the default.
func (c *JobConfig) GetDTMAggregation() string {
	if c.DTMAggregation == nil {
		return "min"
	}
	return *c.DTMAggregation
}

// GetTileSize returns the tile edge length or the default.
func (c *JobConfig) GetTileSize() float64 {
	if c.TileSize == nil {
		return 250.0
	}
	return *c.TileSize
}

// GetBuffer returns the tile buffer margin or the default.
func (c *JobConfig) GetBuffer() float64 {
	if c.Buffer == nil {
		return 25.0
	}
	return *c.Buffer
}

// GetWorkers returns the tile worker pool size or the default.
func (c *JobConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetOutputDir returns the tile output directory or the default.
func (c *JobConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "tiles"
	}
	return *c.OutputDir
}

// GetCRS returns the coordinate reference system identifier, empty when the
// source's own CRS should be used.
func (c *JobConfig) GetCRS() string {
	if c.CRS == nil {
		return ""
	}
	return *c.CRS
}

// GetJobDB returns the sqlite job ledger path, empty when disabled.
func (c *JobConfig) GetJobDB() string {
	if c.JobDB == nil {
		return ""
	}
	return *c.JobDB
}
