// Package version reports the fc build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current application version.
// This is a var (not const) so it can be overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/filecanvas/pkg/version.Version=v1.2.3"
var Version = "v0.1.0"

// String is the one-line description printed by fc --version.
func String() string {
	rev := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				rev = " (" + s.Value[:7] + ")"
			}
		}
	}
	return fmt.Sprintf("fc %s%s %s/%s", Version, rev, runtime.GOOS, runtime.GOARCH)
}
