package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sev(s graphmodel.Severity) *graphmodel.Severity { return &s }

func TestAssignDeterministicIDsStableAcrossRuns(t *testing.T) {
	a := []graphmodel.Finding{{Detector: "EvalDetector", AffectedFiles: []string{"x.go"}, LineStart: 10}}
	b := []graphmodel.Finding{{Detector: "EvalDetector", AffectedFiles: []string{"x.go"}, LineStart: 10}}
	assignDeterministicIDs(a)
	assignDeterministicIDs(b)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.NotEmpty(t, a[0].ID)
}

func TestApplyDetectorOverridesDisablesAndOverridesSeverity(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "A", Severity: graphmodel.SeverityLow},
		{Detector: "B", Severity: graphmodel.SeverityLow},
	}
	overrides := map[string]DetectorOverride{
		"A": {Enabled: boolPtr(false)},
		"B": {Severity: sev(graphmodel.SeverityCritical)},
	}
	out := applyDetectorOverrides(findings, overrides)
	assert.Len(t, out, 1)
	assert.Equal(t, "B", out[0].Detector)
	assert.Equal(t, graphmodel.SeverityCritical, out[0].Severity)
}

func boolPtr(b bool) *bool { return &b }

func TestFilterExcludedPathsByGlob(t *testing.T) {
	findings := []graphmodel.Finding{
		{AffectedFiles: []string{"vendor/lib/x.go"}},
		{AffectedFiles: []string{"internal/real.go"}},
	}
	out := filterExcludedPaths(findings, []string{"vendor/**"})
	assert.Len(t, out, 1)
	assert.Equal(t, "internal/real.go", out[0].AffectedFiles[0])
}

func TestFilterByMaxFilesSuffixFallback(t *testing.T) {
	findings := []graphmodel.Finding{
		{AffectedFiles: []string{"./src/a.go"}},
		{AffectedFiles: []string{"src/b.go"}},
		{AffectedFiles: []string{"src/c.go"}},
	}
	out := filterByMaxFiles(findings, []string{"src/a.go", "src/b.go"})
	assert.Len(t, out, 2)
}

func TestDedupeDeadCodeOverlapPrefersUnreachable(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "UnreachableCodeDetector", Title: "Unreachable code: doThing", AffectedFiles: []string{"a.go"}, LineStart: 5},
		{Detector: "DeadCodeDetector", Title: "Dead function: doThing", AffectedFiles: []string{"a.go"}, LineStart: 5},
		{Detector: "DeadCodeDetector", Title: "Dead code: other unused", AffectedFiles: []string{"a.go"}, LineStart: 9},
	}
	out := dedupeDeadCodeOverlap(findings)
	assert.Len(t, out, 2)
	for _, f := range out {
		assert.False(t, f.Detector == "DeadCodeDetector" && f.LineStart == 5)
	}
}

func TestEscalateCompoundSmellsBumpsSeverityAtSharedLocation(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "A", AffectedFiles: []string{"a.go"}, LineStart: 1, Severity: graphmodel.SeverityLow},
		{Detector: "B", AffectedFiles: []string{"a.go"}, LineStart: 1, Severity: graphmodel.SeverityMedium},
		{Detector: "C", AffectedFiles: []string{"b.go"}, LineStart: 1, Severity: graphmodel.SeverityCritical},
	}
	out, count := escalateCompoundSmells(findings)
	assert.Equal(t, 2, count)
	assert.Equal(t, graphmodel.SeverityMedium, out[0].Severity)
	assert.Equal(t, graphmodel.SeverityHigh, out[1].Severity)
	assert.Equal(t, graphmodel.SeverityCritical, out[2].Severity) // already capped
}

func TestDowngradeNonProductionSecurity(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "EvalDetector", Severity: graphmodel.SeverityCritical, AffectedFiles: []string{"test/fixtures/x.go"}, Description: "eval used"},
		{Detector: "EvalDetector", Severity: graphmodel.SeverityCritical, AffectedFiles: []string{"src/x.go"}, Description: "eval used"},
	}
	out, count := downgradeNonProductionSecurity(findings)
	assert.Equal(t, 1, count)
	assert.Equal(t, graphmodel.SeverityMedium, out[0].Severity)
	assert.Contains(t, out[0].Description, "[Non-production path]")
	assert.Equal(t, graphmodel.SeverityCritical, out[1].Severity)
}

func TestDowngradeNonProductionSecurityDoesNotDoublePrefix(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "EvalDetector", Severity: graphmodel.SeverityCritical, AffectedFiles: []string{"test/fixtures/x.go"}, Description: "eval used"},
	}
	out, _ := downgradeNonProductionSecurity(findings)
	out, count := downgradeNonProductionSecurity(out)
	assert.Equal(t, 0, count, "already-downgraded findings are Medium, not Critical/High, so a second pass touches nothing")
	assert.Equal(t, 1, strings.Count(out[0].Description, "[Non-production path]"))
}

func TestClampConfidence(t *testing.T) {
	findings := []graphmodel.Finding{{Confidence: 1.5}, {Confidence: -0.2}, {Confidence: 0.5}}
	clampConfidence(findings)
	assert.Equal(t, 1.0, findings[0].Confidence)
	assert.Equal(t, 0.0, findings[1].Confidence)
	assert.Equal(t, 0.5, findings[2].Confidence)
}

func TestRunFullPipelineOrder(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "EvalDetector", Title: "Use of eval in test", Severity: graphmodel.SeverityCritical, Confidence: 1.4, AffectedFiles: []string{"test/fixture.go"}, LineStart: 1},
	}
	out, stats := Run(findings, Config{})
	assert.Len(t, out, 1)
	assert.Equal(t, graphmodel.SeverityMedium, out[0].Severity)
	assert.LessOrEqual(t, out[0].Confidence, 1.0)
	assert.Equal(t, 1, stats.SecurityDowngraded)
	assert.NotEmpty(t, out[0].ID)
}
