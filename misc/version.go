// Package misc provides program identification.
package misc

import (
	"runtime/debug"
	"strings"
)

// set by linker
var (
	appName = "vstyle"
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

// GetVersion returns version set at link time or module version when built
// with "go install".
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return version
}

// GetGitHash returns commit the program was built from, if known.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
