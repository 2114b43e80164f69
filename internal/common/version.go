package common

import (
	"fmt"
	"runtime/debug"
)

// Version variables injected at build time via ldflags
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromBuildInfo fills the commit from the embedded VCS stamp
// when ldflags were not provided.
func LoadVersionFromBuildInfo() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if len(setting.Value) > 7 {
				GitCommit = setting.Value[:7]
			} else if setting.Value != "" {
				GitCommit = setting.Value
			}
		case "vcs.time":
			if Build == "unknown" {
				Build = setting.Value
			}
		}
	}
}
