// Package version provides build version information for sentinai.
// These variables are set at build time via ldflags.
package version

// Example: go build -ldflags "-X sentinai/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version, or "dev" for development builds.
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String formats the build information on one line.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
