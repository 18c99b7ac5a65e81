// Package scorer implements the graph-aware repository health scorer
// (C10): structure/quality/architecture pillar scores, each built from
// (100 - finding penalties) boosted by positive graph-derived signals,
// rolled up into a weighted overall score and a letter grade. Grounded on
// original_source/repotoire-cli/src/scoring/graph_scorer.rs.
package scorer

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// Bonus caps, ported verbatim from graph_scorer.rs's MAX_*_BONUS constants.
const (
	maxModularityBonus     = 0.10
	maxCohesionBonus       = 0.05
	maxCleanDepsBonus      = 0.10
	maxComplexityDistBonus = 0.05
	maxTestCoverageBonus   = 0.05
)

// PillarWeights controls how Structure/Quality/Architecture combine into
// the overall score. Defaults are Structure×0.4 + Quality×0.3 +
// Architecture×0.3, per the frozen scoring spec (graph_scorer.rs's own
// default of 0.33/0.34/0.33 is overridden — see DefaultConfig).
type PillarWeights struct {
	Structure    float64
	Quality      float64
	Architecture float64
}

// Config is the scoring-relevant slice of project configuration. It is
// deliberately self-contained so internal/scorer has no dependency on
// internal/config — internal/config's ProjectConfig embeds this type
// directly as its Scoring field.
type Config struct {
	SecurityMultiplier float64
	PillarWeights      PillarWeights
}

// DefaultConfig matches the documented pillar weights (Structure 0.4,
// Quality 0.3, Architecture 0.3), overriding the original Rust
// implementation's ProjectConfig::default() (0.33/0.34/0.33) since the
// frozen spec pins these exact figures.
func DefaultConfig() Config {
	return Config{
		SecurityMultiplier: 3.0,
		PillarWeights:      PillarWeights{Structure: 0.4, Quality: 0.3, Architecture: 0.3},
	}
}

// PillarBreakdown is one pillar's score with its contributing bonuses,
// mirroring graph_scorer.rs's PillarBreakdown.
type PillarBreakdown struct {
	Name          string
	BaseScore     float64
	BonusRatio    float64
	FinalScore    float64
	Bonuses       []NamedBonus
	PenaltyPoints float64
	FindingCount  int
}

type NamedBonus struct {
	Name  string
	Value float64
}

// GraphMetrics are the graph-derived signals the scorer's bonuses are
// built from, mirroring graph_scorer.rs's GraphMetrics.
type GraphMetrics struct {
	ModuleCount         int
	AvgCoupling         float64
	AvgCohesion         float64
	CycleCount          int
	SimpleFunctionRatio float64
	TestFileRatio       float64
	TotalFunctions      int
	TotalFiles          int
}

// ScoreBreakdown is the complete, explainable health-score result.
type ScoreBreakdown struct {
	OverallScore float64
	Grade        string
	Structure    PillarBreakdown
	Quality      PillarBreakdown
	Architecture PillarBreakdown
	GraphMetrics GraphMetrics
}

// Scorer computes a ScoreBreakdown from a code graph and a finding list.
type Scorer struct {
	graph  detect.GraphQuery
	config Config
}

func New(graph detect.GraphQuery, config Config) *Scorer {
	return &Scorer{graph: graph, config: config}
}

// Calculate reproduces graph_scorer.rs's GraphScorer::calculate: compute
// graph metrics and their bonuses, deduct per-finding penalties scaled by
// repository size, combine into three pillars, and weight those into an
// overall score with a letter grade.
func (s *Scorer) Calculate(findings []graphmodel.Finding) ScoreBreakdown {
	metrics := s.computeGraphMetrics()

	modularityBonus := s.calculateModularityBonus(metrics)
	cohesionBonus := s.calculateCohesionBonus(metrics)
	cleanDepsBonus := s.calculateCleanDepsBonus(metrics)
	complexityBonus := s.calculateComplexityBonus(metrics)
	testBonus := s.calculateTestBonus(metrics)

	sizeFactor := math.Max(math.Sqrt(float64(metrics.TotalFiles+metrics.TotalFunctions)), 5.0)

	var structurePenalty, qualityPenalty, architecturePenalty float64
	var structureCount, qualityCount, architectureCount int

	for _, f := range findings {
		baseDeduction := severityDeduction(f.Severity)
		scaled := baseDeduction / sizeFactor

		category := string(f.Category)
		detector := strings.ToLower(f.Detector)

		isSecurity := s.isSecurityFinding(f)
		securityMult := 1.0
		if isSecurity {
			securityMult = s.config.SecurityMultiplier
		}
		effective := scaled * securityMult

		switch {
		case isSecurity || strings.Contains(category, "security"):
			qualityPenalty += effective
			qualityCount++
		case strings.Contains(category, "architect") || strings.Contains(category, "bottleneck") ||
			strings.Contains(category, "circular") || strings.Contains(category, "coupling") ||
			strings.Contains(detector, "dependency"):
			architecturePenalty += effective
			architectureCount++
		case strings.Contains(category, "complex") || strings.Contains(category, "naming") ||
			strings.Contains(category, "readab") || strings.Contains(category, "style"):
			structurePenalty += effective
			structureCount++
		default:
			qualityPenalty += effective / 3.0
			structurePenalty += effective / 3.0
			architecturePenalty += effective / 3.0
			qualityCount++
		}
	}

	structure := s.buildPillar("Structure", structurePenalty, structureCount,
		[]NamedBonus{{"Complexity distribution", complexityBonus}})

	quality := s.buildPillar("Quality", qualityPenalty, qualityCount,
		[]NamedBonus{{"Test coverage signal", testBonus}})

	architecture := s.buildPillar("Architecture", architecturePenalty, architectureCount,
		[]NamedBonus{
			{"Modularity (low coupling)", modularityBonus},
			{"Cohesion", cohesionBonus},
			{"Clean dependencies (no cycles)", cleanDepsBonus},
		})

	w := s.config.PillarWeights
	overall := structure.FinalScore*w.Structure + quality.FinalScore*w.Quality + architecture.FinalScore*w.Architecture
	overall = math.Max(overall, 5.0)

	grade := calculateGrade(overall, findings)

	return ScoreBreakdown{
		OverallScore: overall,
		Grade:        grade,
		Structure:    structure,
		Quality:      quality,
		Architecture: architecture,
		GraphMetrics: metrics,
	}
}

func severityDeduction(sev graphmodel.Severity) float64 {
	switch sev {
	case graphmodel.SeverityCritical:
		return 10.0
	case graphmodel.SeverityHigh:
		return 5.0
	case graphmodel.SeverityMedium:
		return 1.5
	case graphmodel.SeverityLow:
		return 0.3
	default:
		return 0.0
	}
}

func (s *Scorer) buildPillar(name string, penalty float64, findingCount int, bonuses []NamedBonus) PillarBreakdown {
	baseScore := math.Min(math.Max(100.0-penalty, 25.0), 100.0)
	var totalBonus float64
	for _, b := range bonuses {
		totalBonus += b.Value
	}
	finalScore := math.Min(baseScore*(1.0+totalBonus), 100.0)

	return PillarBreakdown{
		Name:          name,
		BaseScore:     baseScore,
		BonusRatio:    totalBonus,
		FinalScore:    finalScore,
		Bonuses:       bonuses,
		PenaltyPoints: penalty,
		FindingCount:  findingCount,
	}
}

func (s *Scorer) computeGraphMetrics() GraphMetrics {
	functions := s.graph.GetNodesByKind(graphmodel.NodeFunction)
	files := s.graph.GetNodesByKind(graphmodel.NodeFile)

	modules := map[string]bool{}
	funcToModule := map[string]string{}
	for _, f := range files {
		modules[moduleDir(f.FilePath)] = true
	}
	for _, fn := range functions {
		funcToModule[fn.QualifiedName] = moduleDir(fn.FilePath)
	}

	totalCalls := 0
	crossModuleCalls := 0
	for _, fn := range functions {
		callerMod, ok := funcToModule[fn.QualifiedName]
		if !ok {
			continue
		}
		for _, callee := range s.graph.GetCallees(fn.QualifiedName) {
			totalCalls++
			calleeMod, ok := funcToModule[callee.QualifiedName]
			if ok && calleeMod != callerMod {
				crossModuleCalls++
			}
		}
	}

	avgCoupling := 0.0
	avgCohesion := 1.0
	if totalCalls > 0 {
		avgCoupling = float64(crossModuleCalls) / float64(totalCalls)
		avgCohesion = float64(totalCalls-crossModuleCalls) / float64(totalCalls)
	}

	cycleCount := len(s.graph.FindImportCycles()) + len(s.graph.FindCallCycles())

	simpleCount := 0
	for _, fn := range functions {
		if fn.Properties.Int("complexity", 1) <= 10 {
			simpleCount++
		}
	}
	simpleRatio := 1.0
	if len(functions) > 0 {
		simpleRatio = float64(simpleCount) / float64(len(functions))
	}

	testFiles := 0
	for _, f := range files {
		if isTestFile(f.FilePath) {
			testFiles++
		}
	}
	testRatio := 0.0
	if len(files) > 0 {
		testRatio = float64(testFiles) / float64(len(files))
	}

	return GraphMetrics{
		ModuleCount:         len(modules),
		AvgCoupling:         avgCoupling,
		AvgCohesion:         avgCohesion,
		CycleCount:          cycleCount,
		SimpleFunctionRatio: simpleRatio,
		TestFileRatio:       testRatio,
		TotalFunctions:      len(functions),
		TotalFiles:          len(files),
	}
}

func moduleDir(path string) string {
	dir := filepath.Dir(filepath.ToSlash(path))
	if dir == "." {
		return ""
	}
	return dir
}

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0.0), 1.0) }

func (s *Scorer) calculateModularityBonus(m GraphMetrics) float64 {
	couplingScore := 1.0 - clamp01((m.AvgCoupling-0.3)/0.4)
	return couplingScore * maxModularityBonus
}

func (s *Scorer) calculateCohesionBonus(m GraphMetrics) float64 {
	cohesionScore := clamp01((m.AvgCohesion - 0.3) / 0.4)
	return cohesionScore * maxCohesionBonus
}

func (s *Scorer) calculateCleanDepsBonus(m GraphMetrics) float64 {
	penalty := math.Min(float64(m.CycleCount)*0.2, 1.0)
	return (1.0 - penalty) * maxCleanDepsBonus
}

func (s *Scorer) calculateComplexityBonus(m GraphMetrics) float64 {
	score := clamp01((m.SimpleFunctionRatio - 0.5) / 0.4)
	return score * maxComplexityDistBonus
}

func (s *Scorer) calculateTestBonus(m GraphMetrics) float64 {
	score := clamp01(m.TestFileRatio / 0.2)
	return score * maxTestCoverageBonus
}

// isSecurityFinding reproduces graph_scorer.rs's is_security_finding
// keyword/CWE heuristic, also documented in SPEC_FULL.md §5.
func (s *Scorer) isSecurityFinding(f graphmodel.Finding) bool {
	category := string(f.Category)
	detector := strings.ToLower(f.Detector)

	return strings.Contains(category, "security") ||
		strings.Contains(category, "inject") ||
		strings.Contains(detector, "sql") ||
		strings.Contains(detector, "xss") ||
		strings.Contains(detector, "secret") ||
		strings.Contains(detector, "credential") ||
		strings.Contains(detector, "command") ||
		strings.Contains(detector, "traversal") ||
		strings.Contains(detector, "ssrf") ||
		strings.Contains(detector, "taint") ||
		f.CWEID != ""
}

// isTestFile reproduces graph_scorer.rs's is_test_file heuristic.
func isTestFile(path string) bool {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "/test/"),
		strings.Contains(lower, "/tests/"),
		strings.Contains(lower, "/__tests__/"),
		strings.Contains(lower, "/spec/"),
		strings.HasPrefix(lower, "test/"),
		strings.HasPrefix(lower, "tests/"),
		strings.HasSuffix(lower, "_test.go"),
		strings.HasSuffix(lower, "_test.py"),
		strings.HasSuffix(lower, "_test.rs"),
		strings.HasSuffix(lower, ".test.ts"),
		strings.HasSuffix(lower, ".test.js"),
		strings.HasSuffix(lower, ".spec.ts"),
		strings.HasSuffix(lower, ".spec.js"):
		return true
	default:
		return false
	}
}

// calculateGrade reproduces graph_scorer.rs's calculate_grade: any
// Critical-severity finding caps the grade at C regardless of the
// numeric score.
func calculateGrade(score float64, findings []graphmodel.Finding) string {
	criticalCount := 0
	for _, f := range findings {
		if f.Severity == graphmodel.SeverityCritical {
			criticalCount++
		}
	}

	baseGrade := letterGrade(score)
	if criticalCount == 0 {
		return baseGrade
	}
	if gradeAboveCap[baseGrade] {
		return "C"
	}
	return baseGrade
}

// gradeAboveCap lists every grade that outranks the "any Critical finding"
// cap of C — A+ through C+ inclusive. C itself and everything below it is
// already within the capped set and passes through unchanged.
var gradeAboveCap = map[string]bool{
	"A+": true, "A": true, "A-": true,
	"B+": true, "B": true, "B-": true,
	"C+": true,
}

func letterGrade(score float64) string {
	switch {
	case score >= 97.0:
		return "A+"
	case score >= 93.0:
		return "A"
	case score >= 90.0:
		return "A-"
	case score >= 87.0:
		return "B+"
	case score >= 83.0:
		return "B"
	case score >= 80.0:
		return "B-"
	case score >= 77.0:
		return "C+"
	case score >= 73.0:
		return "C"
	case score >= 70.0:
		return "C-"
	case score >= 67.0:
		return "D+"
	case score >= 63.0:
		return "D"
	case score >= 60.0:
		return "D-"
	default:
		return "F"
	}
}

// Explain renders a human-readable breakdown of a score, mirroring
// graph_scorer.rs's explain().
func Explain(b ScoreBreakdown) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Health Score: %.1f (%s)\n\n", b.OverallScore, b.Grade)
	sb.WriteString("## Scoring Formula\n\n```\n")
	sb.WriteString("Overall = Structure x weight + Quality x weight + Architecture x weight\n")
	sb.WriteString("Pillar  = (100 - penalties) x (1 + graph_bonuses)\n```\n\n")

	m := b.GraphMetrics
	sb.WriteString("## Graph Analysis\n\n")
	fmt.Fprintf(&sb, "- **Modules**: %d\n", m.ModuleCount)
	fmt.Fprintf(&sb, "- **Coupling**: %.1f%% cross-module calls (lower is better)\n", m.AvgCoupling*100)
	fmt.Fprintf(&sb, "- **Cohesion**: %.1f%% intra-module calls (higher is better)\n", m.AvgCohesion*100)
	fmt.Fprintf(&sb, "- **Cycles**: %d circular dependencies\n", m.CycleCount)
	fmt.Fprintf(&sb, "- **Simple functions**: %.1f%% have complexity <= 10\n", m.SimpleFunctionRatio*100)
	fmt.Fprintf(&sb, "- **Test files**: %.1f%%\n\n", m.TestFileRatio*100)

	for _, pillar := range []PillarBreakdown{b.Structure, b.Quality, b.Architecture} {
		fmt.Fprintf(&sb, "## %s Score: %.1f\n\n", pillar.Name, pillar.FinalScore)
		fmt.Fprintf(&sb, "- Base: 100 - %.1f penalties = %.1f\n", pillar.PenaltyPoints, pillar.BaseScore)
		if len(pillar.Bonuses) > 0 {
			sb.WriteString("- Bonuses:\n")
			for _, bonus := range pillar.Bonuses {
				if bonus.Value > 0.001 {
					fmt.Fprintf(&sb, "  - %s: +%.1f%%\n", bonus.Name, bonus.Value*100)
				}
			}
		}
		fmt.Fprintf(&sb, "- Findings: %d\n\n", pillar.FindingCount)
	}

	return sb.String()
}
