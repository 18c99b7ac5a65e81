// Package pathutil provides utilities for converting between absolute and
// relative paths, and path-shape heuristics: test-file detection (used by
// the detector engine's test-path predicate) and suffix-based path matching
// (the same rule post-processing's --max-files filter applies with its own
// copy).
//
// ToRelative turns an absolute path into one relative to a root directory;
// the analyze command itself works with repo-relative, slash-separated
// paths.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToSlash normalizes a path to forward slashes so glob patterns behave the
// same on every platform a repo might be analyzed from.
func ToSlash(path string) string {
	return filepath.ToSlash(path)
}

var testFileDirMarkers = []string{"/test/", "/tests/", "/__tests__/", "/spec/"}
var testFilePrefixes = []string{"test/", "tests/"}
var testFileSuffixes = []string{
	"_test.go", "_test.py", "_test.rs",
	".test.ts", ".test.js", ".test.tsx", ".test.jsx",
	".spec.ts", ".spec.js", ".spec.tsx", ".spec.jsx",
}

// IsTestFile reports whether path looks like a test file, by directory
// marker, root prefix, or file suffix. The detector engine's test-path
// predicate (detect.IsTestPath) uses it; the health scorer and the
// non-production security downgrade use their own path checks.
func IsTestFile(path string) bool {
	normalized := ToSlash(path)
	lower := strings.ToLower(normalized)

	for _, marker := range testFileDirMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, prefix := range testFilePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, suffix := range testFileSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// MatchesPathSuffix reports whether a finding path and a --max-files argument
// refer to the same file when an exact match fails, tolerating a leading
// "./" on either side. Mirrors the fallback the Rust CLI uses so users can
// pass either repo-relative or dot-relative paths interchangeably.
func MatchesPathSuffix(findingPath, arg string) bool {
	if findingPath == arg {
		return true
	}
	trimmedArg := strings.TrimPrefix(arg, "./")
	trimmedPath := strings.TrimPrefix(findingPath, "./")
	return strings.HasSuffix(trimmedPath, trimmedArg) || strings.HasSuffix(trimmedArg, trimmedPath)
}
