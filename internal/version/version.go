// Package version carries the build identity stamped in at link time via
// -ldflags "-X ...".
package version

import "fmt"

var (
	// Version is the release version, "dev" for unstamped builds.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the full build identity on one line.
func String() string {
	return fmt.Sprintf("forestscan %s (%s, built %s)", Version, GitSHA, BuildTime)
}
