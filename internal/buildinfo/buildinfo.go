// Package buildinfo exposes version metadata stamped at build time.
//
// The variables are populated through -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/pironjulien/trinity-hackathon-sub002/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/pironjulien/trinity-hackathon-sub002/internal/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/pironjulien/trinity-hackathon-sub002/internal/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds (go run, go test) report "dev".
package buildinfo

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the short git commit hash of the build.
	Commit = "none"
	// Date is the UTC build timestamp in RFC 3339 format.
	Date = "unknown"
)

// Info bundles the build metadata for display and JSON output.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the stamped build metadata.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	}
}

// String renders the metadata as a single human-readable line.
func (i Info) String() string {
	return fmt.Sprintf("trinity %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
