// Package version carries build-time version information for the nudge
// binaries.
package version

// Overridden via -ldflags by release builds.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns the human-readable version line.
func String() string {
	return Version + " (" + Commit + ")"
}
