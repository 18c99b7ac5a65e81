package incache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestCacheGetPutStaleness(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))

	h1 := ContentHash([]byte("package a"))
	h2 := ContentHash([]byte("package a // changed"))

	assert.True(t, c.IsStale("a.go", h1))

	c.Put("a.go", h1, []graphmodel.Finding{{ID: "f1", Detector: "x"}})
	assert.False(t, c.IsStale("a.go", h1))
	assert.True(t, c.IsStale("a.go", h2))

	findings, ok := c.Get("a.go", h1)
	require.True(t, ok)
	assert.Equal(t, "f1", findings[0].ID)

	_, ok = c.Get("a.go", h2)
	assert.False(t, ok)
}

func TestCacheFlushAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	c := New(path)

	h := ContentHash([]byte("x"))
	c.Put("a.go", h, []graphmodel.Finding{{ID: "f1"}})
	c.SetScore(87.5)
	require.NoError(t, c.Flush())

	loaded := New(path)
	require.NoError(t, loaded.Load())

	findings, ok := loaded.Get("a.go", h)
	require.True(t, ok)
	assert.Equal(t, "f1", findings[0].ID)

	score, ok := loaded.LastScore()
	require.True(t, ok)
	assert.Equal(t, 87.5, score)
}

func TestCacheLoadMissingFileIsNotError(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, c.Load())
}
