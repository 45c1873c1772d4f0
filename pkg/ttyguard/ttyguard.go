// Package ttyguard marks headless fc invocations as non-interactive before
// any terminal library initialises.
//
// Importing it for side effects sets CI=1 when fc was started with a headless
// flag. termenv honours CI and skips the OSC/DSR background-colour queries that
// would otherwise be written to stdout and corrupt JSON output from --list or
// --export.
package ttyguard

import (
	"os"
	"strings"
)

func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !Headless(os.Args[1:], os.Getenv("FC_HEADLESS") == "1") {
		return
	}
	_ = os.Setenv("CI", "1")
}

// headlessFlags never start the terminal UI.
var headlessFlags = []string{"import", "export", "list", "sessions", "version", "help", "h"}

// Headless reports whether args select a non-interactive mode.
func Headless(args []string, envHeadless bool) bool {
	if envHeadless {
		return true
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		name, _, _ = strings.Cut(name, "=")
		for _, f := range headlessFlags {
			if name == f {
				return true
			}
		}
	}
	return false
}
