package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFromDetectorMapsKnownCategories(t *testing.T) {
	assert.Equal(t, CategorySecurity, FromDetector("SQLInjectionDetector"))
	assert.Equal(t, CategoryCodeQuality, FromDetector("GodClassDetector"))
	assert.Equal(t, CategoryMachineLearning, FromDetector("ReactHooksDetector"))
	assert.Equal(t, CategoryPerformance, FromDetector("NPlusOneDetector"))
	assert.Equal(t, CategoryOther, FromDetector("SomeUnknownDetector"))
}

func TestHeuristicClassifierPenalizesSuppressedAndTestPath(t *testing.T) {
	c := HeuristicClassifier{}
	base := Features{Confidence: 0.8, HasCodeSnippetRef: true, TitleWordCount: 4, AffectedFileCount: 1}
	baseScore := c.Score(base)

	suppressed := base
	suppressed.IsSuppressed = true
	assert.Less(t, c.Score(suppressed), baseScore)

	testPath := base
	testPath.InTestPath = true
	assert.Less(t, c.Score(testPath), baseScore)
}

func TestFilterDropsBelowCategoryThreshold(t *testing.T) {
	findings := []graphmodel.Finding{
		{Detector: "SQLInjectionDetector", Title: "sql injection found", Confidence: 0.9, AffectedFiles: []string{"a.go"}, LineStart: 5},
		{Detector: "MagicNumberDetector", Title: "42", Confidence: 0.3, Suppressed: true, AffectedFiles: []string{"b.go"}, LineStart: 1},
	}

	kept, stats := Filter(findings, HeuristicClassifier{}, DefaultCategoryThresholds(), nil)
	assert.Len(t, kept, 1)
	assert.Equal(t, "SQLInjectionDetector", kept[0].Detector)
	assert.Equal(t, 1, stats.TotalFiltered)
	assert.Equal(t, 1, stats.ByCategory[CategoryCodeQuality])
}

func TestCategoryThresholdsDefaults(t *testing.T) {
	th := DefaultCategoryThresholds()
	assert.Equal(t, 0.35, th.Security)
	assert.Equal(t, 0.55, th.CodeQuality)
	assert.Equal(t, 0.45, th.MachineLearning)
	assert.Equal(t, 0.50, th.Performance)
	assert.Equal(t, 0.45, th.Other)
}
