package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// verbosity gates Debugf output. Zero disables all debug logging.
var verbosity atomic.Int32

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbosity sets the maximum level emitted by Debugf.
func SetVerbosity(level int) {
	verbosity.Store(int32(level))
}

// Verbosity returns the current debug level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Debugf logs through Logf when level <= the configured verbosity.
// Per-cycle segmenter chatter uses level 1 (summary) and 3 (per label).
func Debugf(level int, format string, v ...interface{}) {
	if level > int(verbosity.Load()) {
		return
	}
	Logf(format, v...)
}
