package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCalculateEmptyCodebaseScoresWell(t *testing.T) {
	graph := graphstore.NewMemStore()
	s := New(graph, DefaultConfig())

	breakdown := s.Calculate(nil)

	assert.GreaterOrEqual(t, breakdown.OverallScore, 90.0)
	assert.Equal(t, "A+", breakdown.Grade)
}

func TestCalculateCriticalFindingCapsGrade(t *testing.T) {
	graph := graphstore.NewMemStore()
	s := New(graph, DefaultConfig())

	findings := []graphmodel.Finding{{
		Detector: "SomeDetector",
		Severity: graphmodel.SeverityCritical,
		Title:    "Critical issue",
	}}

	breakdown := s.Calculate(findings)

	assert.True(t, breakdown.Grade == "C" || breakdown.Grade == "D" || breakdown.Grade == "D+" ||
		breakdown.Grade == "D-" || breakdown.Grade == "F")
}

func TestCalculateGradeCapsCPlusWhenCritical(t *testing.T) {
	findings := []graphmodel.Finding{{
		Detector: "SomeDetector",
		Severity: graphmodel.SeverityCritical,
		Title:    "Critical issue",
	}}

	// 77.0 naturally letter-grades to "C+", which outranks the "C" cap —
	// the Critical finding must still pull it down to "C".
	assert.Equal(t, "C", calculateGrade(77.0, findings))
	assert.Equal(t, "C-", calculateGrade(70.0, findings))
	assert.Equal(t, "C", calculateGrade(100.0, findings))
}

func TestComputeGraphMetricsCountsFilesAndFunctions(t *testing.T) {
	graph := graphstore.NewMemStore()
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFile, QualifiedName: "src/main.go", FilePath: "src/main.go"})
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFile, QualifiedName: "src/lib.go", FilePath: "src/lib.go"})
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFile, QualifiedName: "tests/main_test.go", FilePath: "tests/main_test.go"})
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFunction, QualifiedName: "src/main.go#main", FilePath: "src/main.go", Properties: graphmodel.Properties{"complexity": 5}})
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFunction, QualifiedName: "src/lib.go#helper", FilePath: "src/lib.go", Properties: graphmodel.Properties{"complexity": 3}})
	graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFunction, QualifiedName: "tests/main_test.go#testMain", FilePath: "tests/main_test.go", Properties: graphmodel.Properties{"complexity": 2}})

	s := New(graph, DefaultConfig())
	metrics := s.computeGraphMetrics()

	assert.Equal(t, 3, metrics.TotalFiles)
	assert.Equal(t, 3, metrics.TotalFunctions)
	assert.InDelta(t, 0.333, metrics.TestFileRatio, 0.01)
	assert.Equal(t, 1.0, metrics.SimpleFunctionRatio)
}

func TestIsSecurityFindingMatchesKeywordsAndCWE(t *testing.T) {
	s := New(graphstore.NewMemStore(), DefaultConfig())

	assert.True(t, s.isSecurityFinding(graphmodel.Finding{Detector: "SQLInjectionDetector"}))
	assert.True(t, s.isSecurityFinding(graphmodel.Finding{Category: graphmodel.CategorySecurity}))
	assert.True(t, s.isSecurityFinding(graphmodel.Finding{Detector: "Other", CWEID: "CWE-79"}))
	assert.False(t, s.isSecurityFinding(graphmodel.Finding{Detector: "LargeFileDetector"}))
}

func TestIsTestFileRecognizesCommonConventions(t *testing.T) {
	assert.True(t, isTestFile("tests/fixtures/db_test.go"))
	assert.True(t, isTestFile("src/__tests__/widget.test.ts"))
	assert.True(t, isTestFile("spec/models/user.spec.js"))
	assert.False(t, isTestFile("cmd/repotoire/main.go"))
}

func TestSeverityFindingsReducePillarScores(t *testing.T) {
	graph := graphstore.NewMemStore()
	for i := 0; i < 20; i++ {
		graph.AddNode(graphmodel.Node{Kind: graphmodel.NodeFile, QualifiedName: "f" + string(rune('a'+i)) + ".go", FilePath: "f.go"})
	}
	s := New(graph, DefaultConfig())

	clean := s.Calculate(nil)
	degraded := s.Calculate([]graphmodel.Finding{
		{Detector: "GodClassDetector", Category: graphmodel.CategoryCodeQuality, Severity: graphmodel.SeverityHigh},
		{Detector: "LargeFileDetector", Category: graphmodel.CategoryCodeQuality, Severity: graphmodel.SeverityMedium},
	})

	assert.Less(t, degraded.OverallScore, clean.OverallScore)
}

func TestExplainIncludesGradeAndPillars(t *testing.T) {
	graph := graphstore.NewMemStore()
	s := New(graph, DefaultConfig())
	breakdown := s.Calculate(nil)

	out := Explain(breakdown)
	assert.Contains(t, out, "Health Score")
	assert.Contains(t, out, "Structure Score")
	assert.Contains(t, out, "Quality Score")
	assert.Contains(t, out, "Architecture Score")
}
