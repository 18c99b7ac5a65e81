// Package voting implements the consolidation engine: findings reported by
// multiple detectors (or multiple passes) for what is really the same
// defect are clustered, and each cluster collapses to one representative
// finding with a confidence boosted by the weight of evidence behind it.
package voting

import (
	"math"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// Strategy selects which cluster member becomes the representative finding.
type Strategy string

const (
	StrategyFirst    Strategy = "first"
	StrategyMajority Strategy = "majority"
	StrategyWeighted Strategy = "weighted"
)

// ConfidenceMethod selects how a cluster's member confidences combine into
// one boosted confidence.
type ConfidenceMethod string

const (
	ConfidenceAverage  ConfidenceMethod = "average"
	ConfidenceMax      ConfidenceMethod = "max"
	ConfidenceBayesian ConfidenceMethod = "bayesian"
)

// SeverityResolution selects how a cluster's member severities combine.
type SeverityResolution string

const (
	SeverityHighest  SeverityResolution = "highest"
	SeverityMajority SeverityResolution = "majority"
)

// bayesianCap is the ceiling independent-evidence fusion never exceeds —
// no amount of corroborating detectors makes a finding 100% certain.
const bayesianCap = 0.99

// Config selects the consolidation engine's behavior. Defaults mirror the
// original CLI's fixed tuple: Weighted strategy, Bayesian confidence,
// Highest severity, a 0.5 minimum confidence threshold, and a minimum
// cluster size of 2 before boosting kicks in.
type Config struct {
	Strategy            Strategy
	ConfidenceMethod    ConfidenceMethod
	SeverityResolution  SeverityResolution
	MinConfidence       float64
	MinClusterForBoost  int
	// LineWindow is the approximate line-range tolerance (±N) within which
	// two findings in the same file are considered the same location.
	LineWindow int
	// SimilarityThreshold is the Jaro-Winkler cutoff above which two
	// (stemmed, normalized) titles are considered the same finding.
	SimilarityThreshold float64
}

// DefaultConfig matches the original CLI's fixed voting configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyWeighted,
		ConfidenceMethod:    ConfidenceBayesian,
		SeverityResolution:  SeverityHighest,
		MinConfidence:       0.5,
		MinClusterForBoost:  2,
		LineWindow:          2,
		SimilarityThreshold: 0.80,
	}
}

// Stats summarizes one Consolidate call for reporting.
type Stats struct {
	TotalInput         int
	TotalOutput        int
	BoostedByConsensus int
	RejectedLowConfidence int
}

// Engine runs the clustering/consolidation pass.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Consolidate clusters findings by (affected files, approximate line
// range, normalized title), then collapses each cluster to one
// representative finding with boosted confidence, merged_from recorded as
// ClusterSize, and drops clusters whose resolved confidence falls below
// MinConfidence.
func (e *Engine) Consolidate(findings []graphmodel.Finding) ([]graphmodel.Finding, Stats) {
	stats := Stats{TotalInput: len(findings)}
	clusters := e.cluster(findings)

	var out []graphmodel.Finding
	for _, cluster := range clusters {
		rep := e.resolve(cluster)
		if len(cluster) >= e.cfg.MinClusterForBoost {
			stats.BoostedByConsensus++
		}
		if rep.Confidence < e.cfg.MinConfidence {
			stats.RejectedLowConfidence++
			continue
		}
		out = append(out, rep)
	}
	stats.TotalOutput = len(out)
	return out, stats
}

// cluster groups findings whose affected-file sets overlap, whose start
// lines are within LineWindow, and whose normalized titles are similar (see
// sameCluster); the clustering is a simple greedy union since the expected
// cluster count per run is small relative to total findings.
func (e *Engine) cluster(findings []graphmodel.Finding) [][]graphmodel.Finding {
	assigned := make([]bool, len(findings))
	var clusters [][]graphmodel.Finding

	for i := range findings {
		if assigned[i] {
			continue
		}
		group := []graphmodel.Finding{findings[i]}
		assigned[i] = true
		for j := i + 1; j < len(findings); j++ {
			if assigned[j] {
				continue
			}
			if e.sameCluster(findings[i], findings[j]) {
				group = append(group, findings[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, group)
	}
	return clusters
}

func (e *Engine) sameCluster(a, b graphmodel.Finding) bool {
	if !sameFileSet(a.AffectedFiles, b.AffectedFiles) {
		return false
	}
	if abs(a.LineStart-b.LineStart) > e.cfg.LineWindow {
		return false
	}
	return e.similarTitle(a.Title, b.Title)
}

func sameFileSet(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	set := make(map[string]bool, len(a))
	for _, f := range a {
		set[f] = true
	}
	for _, f := range b {
		if set[f] {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// similarTitle normalizes both titles (lowercase, stemmed words) and scores
// them with Jaro-Winkler similarity, matching the original engine's
// fuzzy-title clustering.
func (e *Engine) similarTitle(a, b string) bool {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == nb {
		return true
	}
	sim, err := edlib.StringsSimilarity(na, nb, edlib.JaroWinkler)
	if err != nil {
		return false
	}
	return float64(sim) >= e.cfg.SimilarityThreshold
}

func normalizeTitle(title string) string {
	words := strings.Fields(strings.ToLower(title))
	stemmed := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,:;()[]{}\"'")
		if w == "" {
			continue
		}
		stemmed = append(stemmed, porter2.Stem(w))
	}
	return strings.Join(stemmed, " ")
}

// resolve picks the representative finding for a cluster, per Strategy,
// then overwrites its Severity and Confidence per the configured
// resolution/confidence method.
func (e *Engine) resolve(cluster []graphmodel.Finding) graphmodel.Finding {
	rep := e.pickRepresentative(cluster)
	rep.Severity = e.resolveSeverity(cluster)
	rep.Confidence = e.resolveConfidence(cluster)
	rep.ClusterSize = len(cluster)
	for _, f := range cluster {
		rep.VotedBy = append(rep.VotedBy, f.Detector)
	}
	return rep
}

func (e *Engine) pickRepresentative(cluster []graphmodel.Finding) graphmodel.Finding {
	switch e.cfg.Strategy {
	case StrategyMajority:
		counts := make(map[string]int)
		for _, f := range cluster {
			counts[f.Title]++
		}
		best := cluster[0]
		bestCount := 0
		for _, f := range cluster {
			if counts[f.Title] > bestCount {
				best, bestCount = f, counts[f.Title]
			}
		}
		return best
	case StrategyWeighted:
		best := cluster[0]
		for _, f := range cluster[1:] {
			if f.Confidence > best.Confidence {
				best = f
			}
		}
		return best
	default: // StrategyFirst
		return cluster[0]
	}
}

func (e *Engine) resolveSeverity(cluster []graphmodel.Finding) graphmodel.Severity {
	if e.cfg.SeverityResolution == SeverityMajority {
		counts := make(map[graphmodel.Severity]int)
		best := cluster[0].Severity
		bestCount := 0
		for _, f := range cluster {
			counts[f.Severity]++
			if counts[f.Severity] > bestCount {
				best, bestCount = f.Severity, counts[f.Severity]
			}
		}
		return best
	}
	highest := cluster[0].Severity
	for _, f := range cluster[1:] {
		if f.Severity > highest {
			highest = f.Severity
		}
	}
	return highest
}

func (e *Engine) resolveConfidence(cluster []graphmodel.Finding) float64 {
	confidences := make([]float64, len(cluster))
	for i, f := range cluster {
		c := f.Confidence
		if c <= 0 {
			c = 0.5 // undocumented confidence defaults to a neutral prior
		}
		confidences[i] = c
	}

	switch e.cfg.ConfidenceMethod {
	case ConfidenceMax:
		max := confidences[0]
		for _, c := range confidences[1:] {
			if c > max {
				max = c
			}
		}
		return max
	case ConfidenceBayesian:
		return bayesianFusion(confidences)
	default: // ConfidenceAverage
		sum := 0.0
		for _, c := range confidences {
			sum += c
		}
		return sum / float64(len(confidences))
	}
}

// bayesianFusion combines independent confidences as
// 1 - Π(1 - c_i), capped below 1.0 so consensus across many detectors
// asymptotically approaches but never reaches certainty.
func bayesianFusion(confidences []float64) float64 {
	product := 1.0
	for _, c := range confidences {
		product *= (1 - c)
	}
	fused := 1 - product
	return math.Min(fused, bayesianCap)
}

// SortBySeverityThenLocation orders findings the way post-processing's
// final output does: severity descending, then file, then line.
func SortBySeverityThenLocation(findings []graphmodel.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.FirstFile() != b.FirstFile() {
			return a.FirstFile() < b.FirstFile()
		}
		return a.LineStart < b.LineStart
	})
}
