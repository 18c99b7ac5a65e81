package detect

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubDetector struct {
	name     string
	findings []graphmodel.Finding
	err      error
	panics   bool
}

func (d *stubDetector) Name() string                  { return d.name }
func (d *stubDetector) Category() graphmodel.Category { return graphmodel.CategoryOther }
func (d *stubDetector) Detect(GraphQuery, fileprovider.Provider) ([]graphmodel.Finding, error) {
	if d.panics {
		panic("boom")
	}
	return d.findings, d.err
}

func TestBatchEngineRunsAllDetectorsIndependently(t *testing.T) {
	store := graphstore.NewMemStore()
	files := fileprovider.NewDiskProvider(t.TempDir(), nil)

	ok := &stubDetector{name: "ok", findings: []graphmodel.Finding{{ID: "a"}}}
	failing := &stubDetector{name: "fails", err: errors.New("boom")}
	panicking := &stubDetector{name: "panics", panics: true}

	e := NewBatchEngine(2)
	results := e.Run(context.Background(), store, files, []Detector{ok, failing, panicking})

	require.Len(t, results, 3)
	byName := map[string]RunResult{}
	for _, r := range results {
		byName[r.Detector] = r
	}
	assert.Equal(t, StateSucceeded, byName["ok"].State)
	assert.Len(t, byName["ok"].Findings, 1)
	assert.Equal(t, StateFailed, byName["fails"].State)
	assert.Equal(t, StateFailed, byName["panics"].State)
}

func TestBatchEngineTruncatesOverLimit(t *testing.T) {
	store := graphstore.NewMemStore()
	files := fileprovider.NewDiskProvider(t.TempDir(), nil)

	var many []graphmodel.Finding
	for i := 0; i < 10; i++ {
		many = append(many, graphmodel.Finding{ID: string(rune('a' + i))})
	}

	e := NewBatchEngine(1)
	e.MaxFindingsPerDetector = 5
	results := e.Run(context.Background(), store, files, []Detector{&stubDetector{name: "big", findings: many}})

	require.Len(t, results, 1)
	assert.Equal(t, StateTruncated, results[0].State)
	assert.Len(t, results[0].Findings, 5)
}

func TestBatchEngineSkipsDetectorsAfterCancellation(t *testing.T) {
	store := graphstore.NewMemStore()
	files := fileprovider.NewDiskProvider(t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before any detector boundary is reached

	e := NewBatchEngine(1)
	results := e.Run(ctx, store, files, []Detector{
		&stubDetector{name: "a", findings: []graphmodel.Finding{{ID: "a"}}},
		&stubDetector{name: "b", findings: []graphmodel.Finding{{ID: "b"}}},
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StateFailed, r.State)
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Empty(t, r.Findings)
	}
}

func TestStreamingEngineStopsBetweenBatchesAfterCancellation(t *testing.T) {
	store := graphstore.NewMemStore()
	files := fileprovider.NewDiskProvider(t.TempDir(), nil)

	var detectors []Detector
	for i := 0; i < 5; i++ {
		detectors = append(detectors, &stubDetector{name: string(rune('a' + i)), findings: []graphmodel.Finding{{ID: string(rune('a' + i))}}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewMemorySink()
	e := NewStreamingEngine(2, 2)
	results, err := e.Run(ctx, store, files, detectors, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Equal(t, 0, sink.Batches())
}

func TestStreamingEngineBatchesAndDropsFindings(t *testing.T) {
	store := graphstore.NewMemStore()
	files := fileprovider.NewDiskProvider(t.TempDir(), nil)

	var detectors []Detector
	for i := 0; i < 5; i++ {
		detectors = append(detectors, &stubDetector{name: string(rune('a' + i)), findings: []graphmodel.Finding{{ID: string(rune('a' + i))}}})
	}

	sink := NewMemorySink()
	e := NewStreamingEngine(2, 2)
	results, err := e.Run(context.Background(), store, files, detectors, sink)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Len(t, sink.Findings(), 5)
	assert.Equal(t, 3, sink.Batches()) // ceil(5/2)
}

func TestJSONLSinkAndReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.jsonl")
	sink, err := NewJSONLSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.WriteBatch([]graphmodel.Finding{
		{ID: "1", Severity: graphmodel.SeverityLow},
		{ID: "2", Severity: graphmodel.SeverityCritical},
	}))
	require.NoError(t, sink.Close())

	reader := NewJSONLReader(path)
	all, err := reader.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	high, err := reader.HighSeverityOnly()
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "2", high[0].ID)

	counts, err := reader.CountsBySeverity()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[graphmodel.SeverityLow])
	assert.Equal(t, 1, counts[graphmodel.SeverityCritical])

	first, err := reader.First(1)
	require.NoError(t, err)
	assert.Len(t, first, 1)
}

func TestIsSuppressedInlineAndNextLine(t *testing.T) {
	content := "line1\n" +
		"x := eval(foo) // repotoire:ignore[EvalDetector]\n" +
		"// repotoire:ignore-next-line\n" +
		"y := eval(bar)\n"

	assert.True(t, IsSuppressed(content, 2, "EvalDetector"))
	assert.False(t, IsSuppressed(content, 2, "OtherDetector"))
	assert.True(t, IsSuppressed(content, 4, "EvalDetector"))
	assert.False(t, IsSuppressed(content, 1, "EvalDetector"))
}
