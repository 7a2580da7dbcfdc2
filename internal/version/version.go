// Package version provides a single build-info string shared by every
// svncore command, in the shape the teacher's binaries print via
// p4prometheus/version.Print. Reimplemented locally rather than imported:
// see DESIGN.md's "Dropped teacher dependencies" for why.
package version

import "fmt"

// These are overridden at build time via -ldflags, matching the teacher's
// own build-info wiring.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Print returns the one-line version banner kingpin.Version() and startup
// logging both use.
func Print(app string) string {
	return fmt.Sprintf("%s version %s (%s) built %s with %s", app, Version, GitCommit, BuildDate, GoVersion)
}
