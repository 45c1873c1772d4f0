// Package debug provides conditional debug logging for fc.
//
// Debug logging is enabled by setting the FC_DEBUG environment variable:
//
//	FC_DEBUG=1 fc
//
// Messages go to the zap logger from pkg/logging at debug level, so they land
// in the log file rather than on the terminal the UI is drawing. When
// disabled (default), all debug functions are no-ops.
package debug

import (
	"os"
	"time"

	"github.com/vanderheijden86/filecanvas/pkg/logging"
)

// enabled is true when FC_DEBUG env var is set
var enabled = os.Getenv("FC_DEBUG") != ""

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e {
		logging.SetLevel("debug")
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logging.S().Debugf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logging.S().Debugw("timing", "op", name, "elapsed", d)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logging.S().Debugf("-> %s", name)
	start := time.Now()
	return func() {
		logging.S().Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logging.S().Debugf("%s: %T = %+v", name, v, v)
}
