// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/vecquery/internal/version.Version=v0.3.0 ..."
package version

import "fmt"

//nolint:gochecknoglobals // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "v0.3.0 (abc1234, 2026-03-01)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
