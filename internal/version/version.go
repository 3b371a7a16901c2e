// Package version reports build metadata injected with -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

const Name = "habla"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolved prefers the ldflags version and falls back to the module version
// recorded by `go install`.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

func String() string {
	return Name + " " + Resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies habla to remote services.
func UserAgent() string {
	return Name + "/" + Resolved()
}
