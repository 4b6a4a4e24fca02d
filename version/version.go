// Package version holds build-time identifying information, injected via
// -ldflags the same way the teacher's version package was populated.
package version

import "runtime"

var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)
