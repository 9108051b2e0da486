package pointcloud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The external point-cloud reader consumes a JSON pipeline description: an
// ordered list of stage objects, each with a "type" key. Rather than building
// that JSON out of loosely typed maps, each stage here is a typed value that
// validates its own parameters before serialisation, so a malformed pipeline
// fails at construction instead of inside the external library.

// Stage is one processing step in a reader pipeline.
type Stage interface {
	// Validate checks the stage parameters. Returns an ErrInvalidParameter
	// wrap on failure.
	Validate() error
	// StageJSON returns the stage as the key/value map the external reader
	// expects.
	StageJSON() map[string]interface{}
}

// CropPolygonStage crops the stream to a WKT polygon.
type CropPolygonStage struct {
	PolygonWKT string
}

func (s CropPolygonStage) Validate() error {
	wkt := strings.TrimSpace(s.PolygonWKT)
	if !strings.HasPrefix(wkt, "POLYGON") && !strings.HasPrefix(wkt, "MULTIPOLYGON") {
		return fmt.Errorf("%w: crop stage needs a POLYGON or MULTIPOLYGON WKT", ErrInvalidParameter)
	}
	return nil
}

func (s CropPolygonStage) StageJSON() map[string]interface{} {
	return map[string]interface{}{
		"type":    "filters.crop",
		"polygon": s.PolygonWKT,
	}
}

// HAGDelaunayStage computes height above ground by Delaunay triangulation of
// the ground returns in the stream.
type HAGDelaunayStage struct{}

func (s HAGDelaunayStage) Validate() error { return nil }

func (s HAGDelaunayStage) StageJSON() map[string]interface{} {
	return map[string]interface{}{"type": "filters.hag_delaunay"}
}

// HAGRasterStage computes height above ground against an external DTM raster.
type HAGRasterStage struct {
	RasterPath string
}

func (s HAGRasterStage) Validate() error {
	if s.RasterPath == "" {
		return fmt.Errorf("%w: HAG raster stage needs a raster path", ErrInvalidParameter)
	}
	return nil
}

func (s HAGRasterStage) StageJSON() map[string]interface{} {
	return map[string]interface{}{
		"type":   "filters.hag_dem",
		"raster": s.RasterPath,
	}
}

// RangeStage keeps points whose HAG lies in [Lower, Upper]. Upper < 0 leaves
// the band open at the top.
type RangeStage struct {
	Lower float64
	Upper float64
}

func (s RangeStage) Validate() error {
	if s.Upper >= 0 && s.Upper < s.Lower {
		return fmt.Errorf("%w: range stage upper %v below lower %v",
			ErrInvalidParameter, s.Upper, s.Lower)
	}
	return nil
}

func (s RangeStage) StageJSON() map[string]interface{} {
	limits := fmt.Sprintf("HeightAboveGround[%g:]", s.Lower)
	if s.Upper >= 0 {
		limits = fmt.Sprintf("HeightAboveGround[%g:%g]", s.Lower, s.Upper)
	}
	return map[string]interface{}{
		"type":   "filters.range",
		"limits": limits,
	}
}

// SampleRadiusStage thins the stream to at most one point per radius.
type SampleRadiusStage struct {
	Radius float64
}

func (s SampleRadiusStage) Validate() error {
	if s.Radius <= 0 {
		return fmt.Errorf("%w: sample radius must be positive, got %v",
			ErrInvalidParameter, s.Radius)
	}
	return nil
}

func (s SampleRadiusStage) StageJSON() map[string]interface{} {
	return map[string]interface{}{
		"type":   "filters.sample",
		"radius": s.Radius,
	}
}

// ReprojectionStage reprojects the stream between two CRS identifiers.
type ReprojectionStage struct {
	InSRS  string
	OutSRS string
}

func (s ReprojectionStage) Validate() error {
	if s.OutSRS == "" {
		return fmt.Errorf("%w: reprojection stage needs an output SRS", ErrInvalidParameter)
	}
	return nil
}

func (s ReprojectionStage) StageJSON() map[string]interface{} {
	m := map[string]interface{}{
		"type":    "filters.reprojection",
		"out_srs": s.OutSRS,
	}
	if s.InSRS != "" {
		m["in_srs"] = s.InSRS
	}
	return m
}

// BuildPipeline validates every stage and marshals the pipeline document the
// external reader expects. The reader element (input file or service handle)
// is prepended by the caller that owns it.
func BuildPipeline(stages []Stage) ([]byte, error) {
	list := make([]map[string]interface{}, 0, len(stages))
	for i, st := range stages {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		list = append(list, st.StageJSON())
	}
	doc := map[string]interface{}{"pipeline": list}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pipeline marshal: %w", err)
	}
	return out, nil
}
