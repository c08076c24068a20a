package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X .../version.Version=..." by release builds.
var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the source revision. Falls back to the VCS stamp Go embeds.
	Commit = "unknown"
	// BuildTime is an RFC 3339 timestamp. Falls back to the commit time.
	BuildTime = "unknown"
)

// Info is served on /version and exported as portal_build_info.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	resolveOnce sync.Once
	resolved    Info
)

// Get returns the build information, read once per process.
func Get() Info {
	resolveOnce.Do(func() {
		bi, _ := debug.ReadBuildInfo()
		resolved = resolve(bi)
	})
	return resolved
}

func resolve(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi == nil {
		return info
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// UserAgent identifies the portal on outbound backend requests.
func UserAgent() string {
	info := Get()
	return "hxzd-portal/" + info.Version + " (" + info.Commit + ")"
}
