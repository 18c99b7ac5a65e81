package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/scorer"
)

func sampleResult() Result {
	return Result{
		RepoPath: "/tmp/repo",
		Findings: []graphmodel.Finding{
			{
				ID:            "f2",
				Detector:      "GodClassDetector",
				Category:      graphmodel.CategoryArchitecture,
				Title:         "God class",
				Description:   "too many methods",
				Severity:      graphmodel.SeverityMedium,
				AffectedFiles: []string{"pkg/big.go"},
				LineStart:     10,
			},
			{
				ID:            "f1",
				Detector:      "SQLInjectionDetector",
				Category:      graphmodel.CategorySecurity,
				Title:         "SQL injection",
				Description:   "string-built query",
				Severity:      graphmodel.SeverityCritical,
				AffectedFiles: []string{"pkg/db.go"},
				LineStart:     42,
			},
		},
		Score: scorer.ScoreBreakdown{OverallScore: 81.5, Grade: "B"},
	}
}

func TestRenderTextOrdersBySeverityThenID(t *testing.T) {
	out, err := Render(sampleResult(), Options{Format: FormatText, NoEmoji: true})
	require.NoError(t, err)

	critIdx := strings.Index(out, "SQL injection")
	godIdx := strings.Index(out, "God class")
	require.NotEqual(t, -1, critIdx)
	require.NotEqual(t, -1, godIdx)
	assert.Less(t, critIdx, godIdx, "critical finding should render before medium finding")
	assert.Contains(t, out, "2 finding(s)")
}

func TestRenderTextMinSeverityFilters(t *testing.T) {
	out, err := Render(sampleResult(), Options{Format: FormatText, MinSeverity: graphmodel.SeverityCritical, NoEmoji: true})
	require.NoError(t, err)
	assert.Contains(t, out, "SQL injection")
	assert.NotContains(t, out, "God class")
}

func TestRenderJSONRoundTrips(t *testing.T) {
	out, err := Render(sampleResult(), Options{Format: FormatJSON})
	require.NoError(t, err)

	var decoded jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "/tmp/repo", decoded.RepoPath)
	assert.Len(t, decoded.Findings, 2)
}

func TestRenderSARIFGroupsRulesByDetector(t *testing.T) {
	out, err := Render(sampleResult(), Options{Format: FormatSARIF})
	require.NoError(t, err)

	var doc sarifDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Runs, 1)
	assert.Len(t, doc.Runs[0].Rules, 2)
	assert.Len(t, doc.Runs[0].Results, 2)
}

func TestFilterAndPaginate(t *testing.T) {
	findings := make([]graphmodel.Finding, 0, 5)
	for i := 0; i < 5; i++ {
		findings = append(findings, graphmodel.Finding{ID: string(rune('a' + i)), Severity: graphmodel.SeverityLow})
	}

	page1 := filterAndPaginate(findings, Options{Page: 1, PerPage: 2})
	page2 := filterAndPaginate(findings, Options{Page: 2, PerPage: 2})
	page3 := filterAndPaginate(findings, Options{Page: 3, PerPage: 2})
	pageOutOfRange := filterAndPaginate(findings, Options{Page: 10, PerPage: 2})

	assert.Len(t, page1, 2)
	assert.Len(t, page2, 2)
	assert.Len(t, page3, 1)
	assert.Empty(t, pageOutOfRange)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sampleResult(), Options{Format: Format("yaml")})
	assert.Error(t, err)
}

func TestFirstFileFallsBackToPlaceholder(t *testing.T) {
	assert.Equal(t, "?", firstFile(graphmodel.Finding{}))
	assert.Equal(t, "pkg/db.go", firstFile(graphmodel.Finding{AffectedFiles: []string{"pkg/db.go"}}))
}
