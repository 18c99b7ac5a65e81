// Package rerr implements the error taxonomy from the analysis engine's
// error-handling design: each failure mode is its own type so callers can
// distinguish "abort the run" from "skip this file and continue" with
// errors.As instead of string matching.
package rerr

import (
	"fmt"
	"time"
)

// ConfigInvalid is returned when project configuration cannot be loaded or
// fails validation (unreadable file, unrecognised or malformed format,
// schema violation, decode failure).
// Callers must abort the run on this error.
type ConfigInvalid struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

func NewConfigInvalid(field, value string, err error) *ConfigInvalid {
	return &ConfigInvalid{Field: field, Value: value, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("invalid config field %s=%q: %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigInvalid) Unwrap() error { return e.Underlying }

// GraphCorrupt is returned when the memory-mapped graph store fails its
// header/offset/version checks. Abort with a remediation hint.
type GraphCorrupt struct {
	Path       string
	Reason     string
	Underlying error
}

func NewGraphCorrupt(path, reason string, err error) *GraphCorrupt {
	return &GraphCorrupt{Path: path, Reason: reason, Underlying: err}
}

func (e *GraphCorrupt) Error() string {
	return fmt.Sprintf("graph store at %s is corrupt (%s): %v — delete the cache directory and re-run",
		e.Path, e.Reason, e.Underlying)
}

func (e *GraphCorrupt) Unwrap() error { return e.Underlying }

// ParseFailed represents a single file that failed to parse. It never
// bubbles up past the builder — the file is skipped and the run continues.
type ParseFailed struct {
	FilePath   string
	Underlying error
	Timestamp  time.Time
}

func NewParseFailed(path string, err error) *ParseFailed {
	return &ParseFailed{FilePath: path, Underlying: err, Timestamp: time.Now()}
}

func (e *ParseFailed) Error() string {
	return fmt.Sprintf("parse failed for %s: %v", e.FilePath, e.Underlying)
}

func (e *ParseFailed) Unwrap() error { return e.Underlying }

// DetectorFailed represents a single detector run that errored. It never
// blocks other detectors; the failing detector contributes no findings.
type DetectorFailed struct {
	Detector   string
	Underlying error
	Timestamp  time.Time
}

func NewDetectorFailed(detector string, err error) *DetectorFailed {
	return &DetectorFailed{Detector: detector, Underlying: err, Timestamp: time.Now()}
}

func (e *DetectorFailed) Error() string {
	return fmt.Sprintf("detector %s failed: %v", e.Detector, e.Underlying)
}

func (e *DetectorFailed) Unwrap() error { return e.Underlying }

// CacheWriteFailed is a warning-level error: the run completes, but the
// incremental cache is considered missing on the next invocation.
type CacheWriteFailed struct {
	Path       string
	Underlying error
}

func NewCacheWriteFailed(path string, err error) *CacheWriteFailed {
	return &CacheWriteFailed{Path: path, Underlying: err}
}

func (e *CacheWriteFailed) Error() string {
	return fmt.Sprintf("failed to write incremental cache at %s: %v", e.Path, e.Underlying)
}

func (e *CacheWriteFailed) Unwrap() error { return e.Underlying }

// ExternalToolTimeout is a warning-level error raised when a subprocess a
// detector depends on is killed after exceeding its deadline. The detector
// contributes whatever findings it had produced so far.
type ExternalToolTimeout struct {
	Tool     string
	Duration time.Duration
}

func NewExternalToolTimeout(tool string, d time.Duration) *ExternalToolTimeout {
	return &ExternalToolTimeout{Tool: tool, Duration: d}
}

func (e *ExternalToolTimeout) Error() string {
	return fmt.Sprintf("external tool %s timed out after %s", e.Tool, e.Duration)
}

// MultiError aggregates failures from a batch operation (e.g. parsing many
// files) none of which should abort the overall run.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors (first: %v)", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error { return e.Errors }

// There is no LockPoisoned error type; this comment documents the policy. A panic while
// holding the graph store's mutex leaves the graph in an unspecified state;
// repotoire-go does not attempt recovery, it lets the panic propagate, the
// same policy the teacher's lock helpers use for RWMutex sections that must
// never silently continue past a partial mutation.
