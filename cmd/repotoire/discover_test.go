package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFilesSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "pkg", "lib.go"), []byte("package pkg"), 0o644))

	files, err := discoverFiles(root, []string{"vendor/**"})
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.Contains(t, rels, "main.go")
	assert.NotContains(t, rels, "vendor/pkg/lib.go")
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny([]string{"**/*_test.go"}, "internal/foo/bar_test.go"))
	assert.False(t, matchesAny([]string{"**/*_test.go"}, "internal/foo/bar.go"))
}

func TestIntersectPaths(t *testing.T) {
	all := []string{"/a/x.go", "/a/y.go", "/a/z.go"}
	subset := []string{"/a/y.go"}
	assert.Equal(t, []string{"/a/y.go"}, intersectPaths(all, subset))
}
