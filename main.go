// Command forestscan converts point cloud samples into forest structure
// rasters: plant area index, foliage height diversity, canopy cover, canopy
// height and terrain models. Metrics run either over a whole extent at once
// or tiled with buffered edges for datasets larger than memory.
package main

import (
	"fmt"
	"os"

	"github.com/treeline-data/forestscan/internal/version"
)

const usage = `usage: forestscan <command> [flags]

commands:
  voxelize   bin an XYZ point file into a voxel grid and print its shape
  metric     compute a metric raster (pai, fhd, cover, chm) over one extent
  dtm        compute a terrain model from ground-classified points
  tiles      run a buffered tiling job over a large extent
  migrate    apply job ledger database migrations
  version    print the build identity

run "forestscan <command> -h" for the flags of each command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "voxelize":
		err = runVoxelize(os.Args[2:])
	case "metric":
		err = runMetric(os.Args[2:])
	case "dtm":
		err = runDTM(os.Args[2:])
	case "tiles":
		err = runTiles(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "version":
		fmt.Println(version.String())
		return
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "forestscan: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "forestscan: %v\n", err)
		os.Exit(1)
	}
}
