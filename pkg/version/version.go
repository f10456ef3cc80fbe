package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Injected via -ldflags at release build time. Development builds fall back
// to the VCS stamp from the Go build info where available.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the build identity reported by the version endpoint and the
// CLI version command.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"gitCommit"`
	BuildDate string    `json:"buildDate"`
	GoVersion string    `json:"goVersion"`
	Platform  string    `json:"platform"`
	BuildTime time.Time `json:"buildTime,omitempty"`
}

// Current assembles the build identity of the running binary.
func Current() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.GitCommit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			info.GitCommit = rev
		}
	}
	if t, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildTime = t
	}
	return info
}

// String renders the build info as a single human-readable line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("spark-launcher %s (commit %s, built %s, %s, %s)",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
}

// UserAgent returns the HTTP User-Agent value for launcher clients.
func UserAgent() string {
	return "spark-launcher/" + Version
}

// vcsRevision reads the commit hash the module was built from, if the
// toolchain embedded one.
func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
