package version

import "runtime/debug"

// ApplyBuildInfo exposes apply for tests.
func ApplyBuildInfo(info *debug.BuildInfo) { apply(info) }

// Reset restores the ldflags defaults.
func Reset() {
	Version = "dev"
	Commit = unknown
	Date = unknown
}
