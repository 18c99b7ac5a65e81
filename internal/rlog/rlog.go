// Package rlog is the ambient logger the rest of repotoire-go uses instead
// of reaching for a structured-logging library the teacher never imports.
// It is a thin wrapper around the standard library's log.Logger: Warnf and
// Infof always print, prefixed "[repotoire]"; Debugf only prints when
// RL_DEBUG=1 is set in the environment, mirroring the teacher's
// internal/debug package gating verbose output behind an env/build flag
// rather than a log-level configuration system.
package rlog

import (
	"log"
	"os"
)

const prefix = "[repotoire] "

var std = log.New(os.Stderr, "", log.LstdFlags)

var debugEnabled = os.Getenv("RL_DEBUG") == "1"

// Infof logs a normal-priority message — progress and summary lines the
// CLI's non-quiet mode always wants to see.
func Infof(format string, args ...any) {
	std.Printf(prefix+format, args...)
}

// Warnf logs a recoverable failure: a parse error on one file, a detector
// that errored, a cache write that failed. Per §7, none of these abort the
// run; they are surfaced here and counted in the run's warnings.
func Warnf(format string, args ...any) {
	std.Printf(prefix+"warning: "+format, args...)
}

// Debugf logs only when RL_DEBUG=1 is set, the same env-gated verbose mode
// internal/debug uses instead of a configurable log level.
func Debugf(format string, args ...any) {
	if !debugEnabled {
		return
	}
	std.Printf(prefix+"debug: "+format, args...)
}

// SetDebug overrides the RL_DEBUG environment check, for tests that need
// to assert on debug output without mutating process environment.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}
