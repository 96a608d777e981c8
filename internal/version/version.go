package version

import "fmt"

// Name is the program name reported to remote services.
const Name = "alarm-panel"

//nolint:gochecknoglobals // Overridden with -ldflags "-X".
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the semantic version.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, Commit, BuildTime)
}

// UserAgent identifies this build in outgoing HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}
