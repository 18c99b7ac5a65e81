package fileprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskStringLiteralsPreservesStructureOutsideStrings(t *testing.T) {
	src := `query := "SELECT * FROM users WHERE id = " + id`
	masked := MaskStringLiterals(src)

	assert.Contains(t, masked, `query := "`)
	assert.NotContains(t, masked, "SELECT")
	assert.Contains(t, masked, `+ id`)
}

func TestMaskStringLiteralsHandlesEscapedQuotes(t *testing.T) {
	src := `s := "a\"b"`
	masked := MaskStringLiterals(src)
	assert.Equal(t, len(src), len(masked))
}

func TestDiskProviderCachesContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(`x := "secret"`), 0o644))

	p := NewDiskProvider(dir, []string{"a.go"})

	content, ok := p.Content("a.go")
	require.True(t, ok)
	assert.Contains(t, content, "secret")

	masked, ok := p.MaskedContent("a.go")
	require.True(t, ok)
	assert.NotContains(t, masked, "secret")

	// second call should be served from cache
	_, _ = p.Content("a.go")
	stats := p.Stats()
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
}

func TestDiskProviderFilesWithExtensions(t *testing.T) {
	p := NewDiskProvider(t.TempDir(), []string{"a.go", "b.py", "c.GO"})
	got := p.FilesWithExtensions([]string{".go"})
	assert.ElementsMatch(t, []string{"a.go", "c.GO"}, got)
}
