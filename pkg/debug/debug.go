// Package debug provides conditional debug logging for cw.
//
// Debug logging is enabled by setting the CW_DEBUG environment variable:
//
//	CW_DEBUG=1 cw
//
// When enabled, messages go to the zap logger at debug level (the log file,
// since the TUI owns the terminal). When disabled (default), all debug
// functions are no-ops.
//
// Usage:
//
//	import "github.com/vanderheijden86/coursework/pkg/debug"
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    debug.Log("advance from %d/%d", mi, vi)
//	}
package debug

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/coursework/pkg/logger"
)

// enabled is true when CW_DEBUG env var is set
var enabled = os.Getenv("CW_DEBUG") != ""

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
}

func sugar() *zap.SugaredLogger {
	return logger.Logger.WithOptions(zap.AddCallerSkip(2)).Sugar()
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	sugar().Debugf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	sugar().Debugw("timing", "name", name, "duration", d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	sugar().Debugf(format, args...)
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
	sugar().Debugf("-> %s", name)
	start := time.Now()
	return func() {
		sugar().Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	sugar().Debug(fmt.Sprintf("%s: %T = %+v", name, v, v))
}
