// Package version reports how the atelier binary was built. Release builds
// set the variables with -ldflags, for example
// -X github.com/HerbHall/atelier/internal/version.Version=1.2.0; otherwise
// the VCS stamp recorded by the Go toolchain fills in the commit.
package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set at link time.
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var vcs = sync.OnceValues(func() (rev, at string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	return rev, at
})

// Current returns the build description, falling back to the VCS stamp
// and then to "unknown" for fields not set at link time.
func Current() Build {
	b := Build{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	rev, at := vcs()
	if b.GitCommit == "" {
		b.GitCommit = rev
	}
	if b.BuildDate == "" {
		b.BuildDate = at
	}
	if len(b.GitCommit) > 12 {
		b.GitCommit = b.GitCommit[:12]
	}
	if b.GitCommit == "" {
		b.GitCommit = "unknown"
	}
	if b.BuildDate == "" {
		b.BuildDate = "unknown"
	}
	return b
}

// Info is the one-line form printed by "atelier version".
func Info() string {
	b := Current()
	return "atelier " + b.Version + " (" + b.GitCommit + ", " + b.BuildDate + ", " + b.GoVersion + " " + b.Platform + ")"
}

// Short returns the release version.
func Short() string { return Version }

// UserAgent is sent on outgoing backend requests.
func UserAgent() string { return "atelier/" + Version }
