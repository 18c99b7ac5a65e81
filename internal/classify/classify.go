// Package classify implements the category-aware false-positive filter:
// a stateless heuristic that scores a finding's probability of being a
// true positive from cheap surface features, so post-processing can drop
// low-confidence noise at a threshold tuned per detector category.
package classify

import (
	"strings"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// DetectorCategory groups detectors for FP-threshold purposes. It mirrors
// graphmodel.Category but stays a distinct type: the classifier's notion
// of "category" is about false-positive rate, which does not always line
// up one-to-one with the scorer's pillar-routing categories.
type DetectorCategory string

const (
	CategorySecurity        DetectorCategory = "security"
	CategoryCodeQuality     DetectorCategory = "code_quality"
	CategoryMachineLearning DetectorCategory = "machine_learning"
	CategoryPerformance     DetectorCategory = "performance"
	CategoryOther           DetectorCategory = "other"
)

// securityDetectors names every detector whose findings are security
// sensitive enough to use the conservative threshold. postprocess keeps its
// own, shorter list for the non-production severity downgrade.
var securityDetectors = map[string]bool{
	"CommandInjectionDetector":     true,
	"SQLInjectionDetector":         true,
	"XSSDetector":                  true,
	"SSRFDetector":                 true,
	"PathTraversalDetector":        true,
	"LogInjectionDetector":         true,
	"EvalDetector":                 true,
	"InsecureRandomDetector":       true,
	"HardcodedCredentialsDetector": true,
	"CleartextCredentialsDetector": true,
	"InsecureCookieDetector":       true,
	"InsecureDeserializeDetector":  true,
	"NoSQLInjectionDetector":       true,
}

var qualityDetectors = map[string]bool{
	"GodClassDetector":          true,
	"LargeFileDetector":         true,
	"LongMethodDetector":        true,
	"LazyClassDetector":         true,
	"MiddleManDetector":         true,
	"ShotgunSurgeryDetector":    true,
	"MagicNumberDetector":       true,
	"TodoScannerDetector":       true,
	"WildcardImportDetector":    true,
	"ImplicitCoercionDetector":  true,
	"EmptyCatchDetector":        true,
	"BooleanTrapDetector":       true,
	"ModuleCohesionDetector":    true,
	"CircularDependencyDetector": true,
	"AINamingPatternDetector":   true,
}

var mlDetectors = map[string]bool{
	"ReactHooksDetector": true,
}

var performanceDetectors = map[string]bool{
	"NPlusOneDetector":           true,
	"StringConcatInLoopDetector": true,
	"MissingAwaitDetector":       true,
	"HardcodedTimeoutDetector":   true,
}

// FromDetector maps a detector name to its FP-threshold category.
func FromDetector(detector string) DetectorCategory {
	switch {
	case securityDetectors[detector]:
		return CategorySecurity
	case qualityDetectors[detector]:
		return CategoryCodeQuality
	case mlDetectors[detector]:
		return CategoryMachineLearning
	case performanceDetectors[detector]:
		return CategoryPerformance
	default:
		return CategoryOther
	}
}

// CategoryThresholds holds the minimum true-positive probability required
// to keep a finding, per category. Security is conservative (don't drop
// real vulnerabilities); Code-Quality is aggressive (complexity warnings
// are noisy).
type CategoryThresholds struct {
	Security        float64
	CodeQuality     float64
	MachineLearning float64
	Performance     float64
	Other           float64
}

// DefaultCategoryThresholds matches spec step 9's documented defaults.
func DefaultCategoryThresholds() CategoryThresholds {
	return CategoryThresholds{
		Security:        0.35,
		CodeQuality:     0.55,
		MachineLearning: 0.45,
		Performance:     0.50,
		Other:           0.45,
	}
}

func (t CategoryThresholds) For(category DetectorCategory) float64 {
	switch category {
	case CategorySecurity:
		return t.Security
	case CategoryCodeQuality:
		return t.CodeQuality
	case CategoryMachineLearning:
		return t.MachineLearning
	case CategoryPerformance:
		return t.Performance
	default:
		return t.Other
	}
}

// Features are the cheap, surface-level signals the heuristic classifier
// scores. None of them require re-parsing the source or walking the
// graph again — they're derived straight from the finding itself.
type Features struct {
	Confidence        float64
	HasCodeSnippetRef  bool
	TitleWordCount    int
	AffectedFileCount int
	IsSuppressed      bool
	InTestPath        bool
	InNonProductionPath bool
	SeverityRank      int
}

// FeatureExtractor derives Features from a Finding.
type FeatureExtractor struct{}

func NewFeatureExtractor() FeatureExtractor { return FeatureExtractor{} }

func (FeatureExtractor) Extract(f graphmodel.Finding) Features {
	return Features{
		Confidence:          f.Confidence,
		HasCodeSnippetRef:   f.LineStart > 0,
		TitleWordCount:      len(strings.Fields(f.Title)),
		AffectedFileCount:   len(f.AffectedFiles),
		IsSuppressed:        f.Suppressed,
		InTestPath:          isTestPath(f.FirstFile()),
		InNonProductionPath: false, // populated by callers that have contentclass available
		SeverityRank:        int(f.Severity),
	}
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "test") || strings.Contains(lower, "spec") || strings.Contains(lower, "fixture")
}

// Classifier scores a Features vector as a true-positive probability in
// [0, 1]. It is an interface so the heuristic implementation can be
// swapped for a trained model later without the post-processing pipeline
// changing.
type Classifier interface {
	Score(Features) float64
}

// HeuristicClassifier is a stateless weighted-signal scorer: it starts
// from the detector's own reported confidence and nudges it up or down
// for signals that correlate with false positives (suppressed findings,
// test/fixture paths, titles too short to carry real information, a
// severity already self-reported as low).
type HeuristicClassifier struct{}

func (HeuristicClassifier) Score(f Features) float64 {
	score := f.Confidence
	if score <= 0 {
		score = 0.5
	}

	if f.IsSuppressed {
		score -= 0.5
	}
	if f.InTestPath || f.InNonProductionPath {
		score -= 0.15
	}
	if f.TitleWordCount < 2 {
		score -= 0.1
	}
	if !f.HasCodeSnippetRef {
		score -= 0.1
	}
	if f.AffectedFileCount > 1 {
		score += 0.05
	}
	// Severity self-reported by the detector correlates with how
	// seriously its own heuristic weighed the match.
	score += float64(f.SeverityRank) * 0.03

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// FilterStats summarizes one FP-filtering pass for logging, matching the
// original CLI's per-category filtered counts.
type FilterStats struct {
	TotalFiltered int
	ByCategory    map[DetectorCategory]int
}

// Filter drops findings whose classifier score falls below their
// category's threshold, using extractor to build Features and nonProd to
// flag non-production paths (wired in by the caller so this package does
// not need to depend on internal/detect/contentclass directly).
func Filter(findings []graphmodel.Finding, classifier Classifier, thresholds CategoryThresholds, nonProd func(string) bool) ([]graphmodel.Finding, FilterStats) {
	extractor := NewFeatureExtractor()
	stats := FilterStats{ByCategory: make(map[DetectorCategory]int)}

	var kept []graphmodel.Finding
	for _, f := range findings {
		features := extractor.Extract(f)
		if nonProd != nil {
			features.InNonProductionPath = nonProd(f.FirstFile())
		}
		category := FromDetector(f.Detector)
		score := classifier.Score(features)

		if score >= thresholds.For(category) {
			kept = append(kept, f)
			continue
		}
		stats.TotalFiltered++
		stats.ByCategory[category]++
	}
	return kept, stats
}
