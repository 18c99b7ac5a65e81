package parseradapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGoSource = `package sample

import "fmt"

type Widget struct {
	Name string
}

func (w *Widget) Describe() string {
	return helper(w.Name)
}

func helper(name string) string {
	fmt.Println(name)
	return name
}
`

func TestGoAdapterCanParse(t *testing.T) {
	a, err := NewGoAdapter()
	require.NoError(t, err)

	assert.True(t, a.CanParse("internal/foo/bar.go"))
	assert.False(t, a.CanParse("internal/foo/bar_test.go"))
	assert.False(t, a.CanParse("internal/foo/bar.py"))
}

func TestGoAdapterParseExtractsFunctionsAndImports(t *testing.T) {
	a, err := NewGoAdapter()
	require.NoError(t, err)

	pf, err := a.Parse("sample.go", []byte(sampleGoSource))
	require.NoError(t, err)

	assert.Equal(t, "go", pf.Language)

	var names []string
	for _, fn := range pf.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "helper")
	assert.Contains(t, names, "Describe")

	require.Len(t, pf.Imports, 1)
	assert.Equal(t, "fmt", pf.Imports[0].Target)

	require.Len(t, pf.Classes, 1)
	assert.Equal(t, "Widget", pf.Classes[0].Name)
}

func TestGoAdapterAttributesCallsToEnclosingFunction(t *testing.T) {
	a, err := NewGoAdapter()
	require.NoError(t, err)

	pf, err := a.Parse("sample.go", []byte(sampleGoSource))
	require.NoError(t, err)

	var describeCalls, helperCalls []string
	for _, fn := range pf.Functions {
		switch fn.Name {
		case "Describe":
			describeCalls = fn.Calls
		case "helper":
			helperCalls = fn.Calls
		}
	}
	assert.Contains(t, describeCalls, "helper")
	assert.Contains(t, helperCalls, "Println")
}

func TestReceiverTypeNameStripsPointer(t *testing.T) {
	assert.Equal(t, "Widget", receiverTypeName("*Widget"))
	assert.Equal(t, "Widget", receiverTypeName("Widget"))
}

func TestGoPackageName(t *testing.T) {
	assert.Equal(t, "sample", goPackageName([]byte(sampleGoSource), "sample.go"))
}
