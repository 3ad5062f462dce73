// Package buildinfo carries the build identity of the binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Stamped with -ldflags, for example
//
//	-X 'github.com/m3rciful/playlistbot/core/buildinfo.Version=v1.2.3'
//
// Commit and Date fall back to the VCS stamp the Go toolchain embeds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "":
				Commit = s.Value[:min(len(s.Value), 7)]
			case s.Key == "vcs.time" && Date == "":
				Date = s.Value
			}
		}
	}
	if Commit == "" {
		Commit = "local"
	}
}

// String renders the build identity for `version` output and health probes.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
