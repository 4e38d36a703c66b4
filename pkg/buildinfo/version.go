// Package buildinfo reports the version eqgraph was built as.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/eqgraph/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/eqgraph/pkg/buildinfo.Commit=$(git rev-parse HEAD)" ./cmd/eqgraph
//
// Builds without ldflags (go install) fall back to the module version and
// VCS revision recorded by the Go toolchain.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info is the build information served by the HTTP API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

var once sync.Once

// Get returns the build information, resolving toolchain fallbacks once.
func Get() Info {
	once.Do(fillFromToolchain)
	return Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
}

func fillFromToolchain() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "none":
			Commit = s.Value
		case s.Key == "vcs.time" && Date == "unknown":
			Date = s.Value
		}
	}
}

// String returns the formatted build information.
func String() string {
	i := Get()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, i.Commit, i.Date)
}

// Template returns the version template string for cobra.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
