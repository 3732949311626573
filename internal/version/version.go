package version

import "fmt"

// Name is printed in front of the build information.
const Name = "alarm-scheduler"

var (
	// Version is the release of the scheduler and its client.
	Version = "0.1.0"
	// Commit is the git revision, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp, "unknown" for local builds.
	BuildTime = "unknown"
)

// Short returns the release only.
func Short() string {
	return Version
}

// Full returns the release with revision and build time, as printed by the version subcommand.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, Commit, BuildTime)
}
