package detect

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/rlog"
)

// DefaultMaxFindingsPerDetector truncates a single detector's output so one
// pathological detector cannot blow out memory or downstream processing.
const DefaultMaxFindingsPerDetector = 5000

// RunState is the per-detector-run state machine the batch and streaming
// engines both drive: Registered -> Scheduled -> Running -> terminal.
type RunState string

const (
	StateRegistered RunState = "registered"
	StateScheduled  RunState = "scheduled"
	StateRunning    RunState = "running"
	StateSucceeded  RunState = "succeeded"
	StateFailed     RunState = "failed"
	StateTruncated  RunState = "truncated"
)

// RunResult records one detector's terminal state and its findings (if
// any), for the batch engine's summary and for tests.
type RunResult struct {
	Detector string
	State    RunState
	Findings []graphmodel.Finding
	Err      error
}

// BatchEngine runs every registered detector on a bounded worker pool.
type BatchEngine struct {
	Workers               int
	MaxFindingsPerDetector int
}

// NewBatchEngine creates a BatchEngine with workers set to hardware
// parallelism when the caller passes 0, matching the default the spec
// requires.
func NewBatchEngine(workers int) *BatchEngine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &BatchEngine{Workers: workers, MaxFindingsPerDetector: DefaultMaxFindingsPerDetector}
}

// Run executes every detector concurrently (bounded by Workers), never
// letting one detector's error or panic prevent the others from
// contributing findings.
func (e *BatchEngine) Run(ctx context.Context, graph GraphQuery, files fileprovider.Provider, detectors []Detector) []RunResult {
	results := make([]RunResult, len(detectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)

	for i, d := range detectors {
		i, d := i, d
		g.Go(func() error {
			// Cancellation is checked at the detector boundary, never
			// inside a running detector: a detector that has already
			// started runs to completion, but one whose turn hasn't
			// come up yet is skipped once the token fires.
			if err := gctx.Err(); err != nil {
				results[i] = RunResult{Detector: d.Name(), State: StateFailed, Err: err}
				return nil
			}
			results[i] = e.runOne(graph, files, d)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *BatchEngine) runOne(graph GraphQuery, files fileprovider.Provider, d Detector) (result RunResult) {
	result = RunResult{Detector: d.Name(), State: StateRunning}
	defer func() {
		if r := recover(); r != nil {
			result.State = StateFailed
			result.Err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
			rlog.Warnf("detector %s panicked: %v", d.Name(), r)
		}
	}()

	findings, err := d.Detect(graph, files)
	if err != nil {
		result.State = StateFailed
		result.Err = err
		rlog.Warnf("detector %s failed: %v", d.Name(), err)
		return result
	}

	limit := e.MaxFindingsPerDetector
	if limit <= 0 {
		limit = DefaultMaxFindingsPerDetector
	}
	if len(findings) > limit {
		rlog.Warnf("detector %s produced %d findings, truncating to %d", d.Name(), len(findings), limit)
		findings = findings[:limit]
		result.State = StateTruncated
	} else {
		result.State = StateSucceeded
	}
	result.Findings = findings
	return result
}

// StreamingEngine runs detectors in fixed-size batches, writing each
// batch's findings to a JSONL sink and dropping them from memory before the
// next batch starts — used above the file-count threshold where holding
// every finding in memory at once is the wrong tradeoff.
type StreamingEngine struct {
	Workers   int
	BatchSize int
}

func NewStreamingEngine(workers, batchSize int) *StreamingEngine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &StreamingEngine{Workers: workers, BatchSize: batchSize}
}

// Sink receives each batch's findings as it completes.
type Sink interface {
	WriteBatch(findings []graphmodel.Finding) error
}

// Run executes detectors in batches of BatchSize, flushing each batch to
// sink and discarding it from memory before starting the next.
func (e *StreamingEngine) Run(ctx context.Context, graph GraphQuery, files fileprovider.Provider, detectors []Detector, sink Sink) ([]RunResult, error) {
	var results []RunResult
	batch := NewBatchEngine(e.Workers)

	for start := 0; start < len(detectors); start += e.BatchSize {
		// Checked between batches, per the cooperative-cancellation
		// contract: a batch already in flight runs to completion, but no
		// further batch starts once the token fires.
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + e.BatchSize
		if end > len(detectors) {
			end = len(detectors)
		}
		batchResults := batch.Run(ctx, graph, files, detectors[start:end])
		results = append(results, batchResults...)

		var findings []graphmodel.Finding
		for _, r := range batchResults {
			findings = append(findings, r.Findings...)
		}
		if err := sink.WriteBatch(findings); err != nil {
			return results, err
		}
		// batchResults' Findings slices go out of scope here; nothing keeps
		// them alive past this iteration, matching the "drop the Vec"
		// memory profile streaming mode is for.
	}
	return results, nil
}

// memorySink is an in-process Sink used by tests and by counts-only
// callers that want totals without a real JSONL file.
type memorySink struct {
	mu       sync.Mutex
	written  []graphmodel.Finding
	batches  int
}

func NewMemorySink() *memorySink { return &memorySink{} }

func (s *memorySink) WriteBatch(findings []graphmodel.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, findings...)
	s.batches++
	return nil
}

func (s *memorySink) Findings() []graphmodel.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]graphmodel.Finding(nil), s.written...)
}

func (s *memorySink) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}
