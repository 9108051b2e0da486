package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Writer emits a raster as a georeferenced file at path. Implementations map
// NaN cells to their format's no-data representation.
type Writer interface {
	Write(r *Raster, path string) error
}

// DefaultNoData matches the conventional GIS no-data marker.
const DefaultNoData = -9999.0

// ASCIIGridWriter writes ESRI ASCII grid (.asc) files, a plain-text raster
// format every standard GIS tool ingests. The CRS travels in a sidecar .prj
// file when present. The format requires square cells.
type ASCIIGridWriter struct {
	// NoData is the value written for NaN cells. Zero means DefaultNoData.
	NoData float64
}

// Write emits the raster to path. Rows are written north-to-south as the
// format requires.
func (w ASCIIGridWriter) Write(r *Raster, path string) error {
	dx, dy := r.CellSize()
	if math.Abs(dx-dy) > 1e-9*math.Max(dx, dy) {
		return fmt.Errorf("ascii grid requires square cells, got %g x %g", dx, dy)
	}
	nodata := w.NoData
	if nodata == 0 {
		nodata = DefaultNoData
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "ncols %d\n", r.NX)
	fmt.Fprintf(bw, "nrows %d\n", r.NY)
	fmt.Fprintf(bw, "xllcorner %g\n", r.Extent.MinX)
	fmt.Fprintf(bw, "yllcorner %g\n", r.Extent.MinY)
	fmt.Fprintf(bw, "cellsize %g\n", dx)
	fmt.Fprintf(bw, "NODATA_value %g\n", nodata)
	for iy := r.NY - 1; iy >= 0; iy-- {
		for ix := 0; ix < r.NX; ix++ {
			if ix > 0 {
				bw.WriteByte(' ')
			}
			v := r.At(ix, iy)
			if math.IsNaN(v) {
				v = nodata
			}
			fmt.Fprintf(bw, "%g", v)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if r.CRS != "" {
		prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
		if err := os.WriteFile(prj, []byte(r.CRS+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", prj, err)
		}
	}
	return nil
}
