// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/refurnish/internal/version.Version=v1.2.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs: "v1.2.0 (abc1234, 2026-03-01)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
