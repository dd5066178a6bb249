// Package version reports build information of the less-theme binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X bennypowers.dev/lesstheme/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes one build
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// Current returns the build information, preferring ldflags over the
// module and VCS data embedded by the go tool
func Current() Info {
	info := Info{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// Short is the version with a short commit suffix
func (i Info) Short() string {
	v := i.Version
	if i.Commit != "" {
		commit := i.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		v += "+" + commit
	}
	if i.Modified {
		v += ".dirty"
	}
	return v
}

func (i Info) String() string {
	if i.BuildTime == "" {
		return i.Short()
	}
	return fmt.Sprintf("%s (built %s)", i.Short(), i.BuildTime)
}
