package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConsolidateMergesSimilarFindingsInSameLocation(t *testing.T) {
	findings := []graphmodel.Finding{
		{
			ID: "a", Detector: "SQLInjectionDetector", Title: "Possible SQL injection",
			Severity: graphmodel.SeverityHigh, Confidence: 0.6,
			AffectedFiles: []string{"a.go"}, LineStart: 10,
		},
		{
			ID: "b", Detector: "TaintAnalysisDetector", Title: "Possible SQL Injection",
			Severity: graphmodel.SeverityCritical, Confidence: 0.7,
			AffectedFiles: []string{"a.go"}, LineStart: 11,
		},
	}

	e := NewEngine(DefaultConfig())
	out, stats := e.Consolidate(findings)

	require.Len(t, out, 1)
	assert.Equal(t, 1, stats.TotalOutput)
	assert.Equal(t, 1, stats.BoostedByConsensus)
	assert.Equal(t, graphmodel.SeverityCritical, out[0].Severity)
	assert.Equal(t, 2, out[0].ClusterSize)
	assert.ElementsMatch(t, []string{"SQLInjectionDetector", "TaintAnalysisDetector"}, out[0].VotedBy)
	assert.Greater(t, out[0].Confidence, 0.7)
	assert.LessOrEqual(t, out[0].Confidence, bayesianCap)
}

func TestConsolidateKeepsDistinctFindingsSeparate(t *testing.T) {
	findings := []graphmodel.Finding{
		{ID: "a", Detector: "GodClassDetector", Title: "God class", Confidence: 0.9, AffectedFiles: []string{"x.go"}, LineStart: 1},
		{ID: "b", Detector: "EvalDetector", Title: "Use of eval", Confidence: 0.9, AffectedFiles: []string{"y.go"}, LineStart: 1},
	}

	e := NewEngine(DefaultConfig())
	out, stats := e.Consolidate(findings)

	assert.Len(t, out, 2)
	assert.Equal(t, 0, stats.BoostedByConsensus)
}

func TestConsolidateRejectsLowConfidence(t *testing.T) {
	findings := []graphmodel.Finding{
		{ID: "a", Detector: "MagicNumberDetector", Title: "Magic number", Confidence: 0.2, AffectedFiles: []string{"x.go"}, LineStart: 1},
	}

	cfg := DefaultConfig()
	e := NewEngine(cfg)
	out, stats := e.Consolidate(findings)

	assert.Len(t, out, 0)
	assert.Equal(t, 1, stats.RejectedLowConfidence)
}

func TestBayesianFusionNeverReachesOne(t *testing.T) {
	fused := bayesianFusion([]float64{0.99, 0.99, 0.99, 0.99})
	assert.LessOrEqual(t, fused, bayesianCap)
}

func TestSortBySeverityThenLocation(t *testing.T) {
	findings := []graphmodel.Finding{
		{ID: "a", Severity: graphmodel.SeverityLow, AffectedFiles: []string{"b.go"}, LineStart: 5},
		{ID: "b", Severity: graphmodel.SeverityCritical, AffectedFiles: []string{"a.go"}, LineStart: 1},
		{ID: "c", Severity: graphmodel.SeverityCritical, AffectedFiles: []string{"a.go"}, LineStart: 3},
	}
	SortBySeverityThenLocation(findings)
	require.Len(t, findings, 3)
	assert.Equal(t, "b", findings[0].ID)
	assert.Equal(t, "c", findings[1].ID)
	assert.Equal(t, "a", findings[2].ID)
}
