package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "simple relative path",
			absPath:  "/home/user/project/src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "nested relative path",
			absPath:  "/home/user/project/internal/core/search.go",
			rootDir:  "/home/user/project",
			expected: "internal/core/search.go",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/project/README.md",
			rootDir:  "/home/user/project",
			expected: "README.md",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/project",
			rootDir:  "/home/user/project",
			expected: ".",
		},
		{
			name:     "already relative path",
			absPath:  "src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "path outside root - fallback to absolute",
			absPath:  "/other/location/file.go",
			rootDir:  "/home/user/project",
			expected: "/other/location/file.go",
		},
		{
			name:     "empty root directory",
			absPath:  "/home/user/project/file.go",
			rootDir:  "",
			expected: "/home/user/project/file.go",
		},
		{
			name:     "empty absolute path",
			absPath:  "",
			rootDir:  "/home/user/project",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)

			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected := filepath.ToSlash(tt.expected)
				if result != expected {
					t.Errorf("ToRelative() = %v, want %v", result, expected)
				}
			} else {
				if result != tt.expected {
					t.Errorf("ToRelative() = %v, want %v", result, tt.expected)
				}
			}
		})
	}
}

func TestToSlash(t *testing.T) {
	if got := ToSlash("a/b/c.go"); got != "a/b/c.go" {
		t.Errorf("ToSlash() = %v, want a/b/c.go", got)
	}
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"internal/foo/bar_test.go", true},
		{"internal/foo/bar.go", false},
		{"src/__tests__/widget.js", true},
		{"tests/fixtures/db.py", true},
		{"tests/fixtures/setup.go", true},
		{"src/components/widget.spec.ts", true},
		{"src/components/widget.test.tsx", true},
		{"cmd/repotoire/main.go", false},
		{"spec/models/user_spec.rb", false}, // no recognized suffix/dir marker for .rb
	}
	for _, tt := range tests {
		if got := IsTestFile(tt.path); got != tt.want {
			t.Errorf("IsTestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatchesPathSuffix(t *testing.T) {
	tests := []struct {
		findingPath string
		arg         string
		want        bool
	}{
		{"src/main.go", "src/main.go", true},
		{"./src/main.go", "src/main.go", true},
		{"src/main.go", "./src/main.go", true},
		{"internal/app/src/main.go", "src/main.go", true},
		{"src/main.go", "other.go", false},
	}
	for _, tt := range tests {
		if got := MatchesPathSuffix(tt.findingPath, tt.arg); got != tt.want {
			t.Errorf("MatchesPathSuffix(%q, %q) = %v, want %v", tt.findingPath, tt.arg, got, tt.want)
		}
	}
}
