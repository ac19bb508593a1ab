// Package version exposes the build version of dvbatch.
package version

// Set at build time via -ldflags "-X github.com/dvtools/dvbatch/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overridden by the linker.
var (
	version = "0.1.0-dev"
	commit  = "none"
)

// GetVersion returns the semantic version of this build.
func GetVersion() string {
	return version
}

// GetCommit returns the VCS revision this build was produced from.
func GetCommit() string {
	return commit
}
