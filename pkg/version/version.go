// Package version reports build information of the arborist binary.
package version

import "runtime/debug"

// Set at link time with -ldflags "-X github.com/Sumatoshi-tech/arborist/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Version and Commit from the module build info when
// they were not set at link time, e.g. for "go install" builds.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the build information for humans.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
