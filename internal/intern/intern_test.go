package intern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternDedupes(t *testing.T) {
	in := New()
	k1 := in.Intern("pkg.Foo")
	k2 := in.Intern("pkg.Bar")
	k3 := in.Intern("pkg.Foo")

	assert.Equal(t, k1, k3)
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, 2, in.Len())
}

func TestInternLookup(t *testing.T) {
	in := New()
	k := in.Intern("pkg.Foo")

	s, ok := in.Lookup(k)
	require.True(t, ok)
	assert.Equal(t, "pkg.Foo", s)

	_, ok = in.Lookup(Key(999))
	assert.False(t, ok)
}

func TestInternConcurrentSafe(t *testing.T) {
	in := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in.Intern("shared-key")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, in.Len())
}
