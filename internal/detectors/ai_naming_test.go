package detectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writePy(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return name
}

func TestAINamingPatternFlagsHighGenericRatio(t *testing.T) {
	dir := t.TempDir()
	// 10 body lines, identifiers result/temp/data/value/item/obj/output/x
	// (8 generic) plus user_id/order (not generic) — the spec's own S5
	// scenario, expecting an 80% ratio.
	writePy(t, dir, "a.py", `def process(raw):
    result = raw
    temp = result
    data = temp
    value = data
    item = value
    obj = item
    output = obj
    user_id = 1
    order = 2
    x = 0
    return output
`)
	files := fileprovider.NewDiskProvider(dir, []string{"a.py"})
	graph := graphstore.NewMemStore()

	findings, err := NewAINamingPatternDetector().Detect(graph, files)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "80%")
}

func TestAINamingPatternSkipsShortFunctionBody(t *testing.T) {
	dir := t.TempDir()
	// Only 4 body lines — below the 8-line minimum even though every
	// identifier is generic.
	writePy(t, dir, "a.py", `def process(raw):
    result = raw
    temp = result
    data = temp
    return data
`)
	files := fileprovider.NewDiskProvider(dir, []string{"a.py"})
	graph := graphstore.NewMemStore()

	findings, err := NewAINamingPatternDetector().Detect(graph, files)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAINamingPatternDeduplicatesRepeatedIdentifier(t *testing.T) {
	dir := t.TempDir()
	// "result" is reassigned five times — deduplication must count it
	// once, not five times, so the five non-generic identifiers below it
	// still dominate the ratio and keep the function unflagged.
	writePy(t, dir, "a.py", `def process(raw):
    result = raw
    result = result
    result = result
    result = result
    result = result
    user_id = 1
    order_total = 2
    shipping_zone = 3
    customer_email = 4
    warehouse_code = 5
    return result
`)
	files := fileprovider.NewDiskProvider(dir, []string{"a.py"})
	graph := graphstore.NewMemStore()

	findings, err := NewAINamingPatternDetector().Detect(graph, files)
	require.NoError(t, err)
	assert.Empty(t, findings, "one generic identifier out of six unique ones is below the 40%% threshold")
}
