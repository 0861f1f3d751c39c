// Package version holds build information set through ldflags:
//
//	go build -ldflags "-X github.com/vpremier/data-download/internal/version.Commit=$(git rev-parse HEAD)"
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("data-download %s (commit: %s, built: %s)", Version, shortCommit(), BuildTime)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
