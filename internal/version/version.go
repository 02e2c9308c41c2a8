// Package version exposes build metadata for the graderunner binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version (set by ldflags during build).
	Version = "dev"

	// GitCommit is the git commit hash (set by ldflags during build).
	GitCommit = ""
)

// String returns the version, including the short commit when known, falling
// back to module build info for `go install` binaries.
func String() string {
	v := Version
	if v == "" || v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.Main.Version != "(devel)" && info.Main.Version != "" {
				v = info.Main.Version
			}
		}
	}
	if GitCommit != "" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s-%s", v, GitCommit[:7])
	}
	return v
}

// Platform returns the build platform.
func Platform() string {
	return fmt.Sprintf("%s/%s (%s)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}
