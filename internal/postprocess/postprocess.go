// Package postprocess runs the ordered pipeline applied to findings after
// detection and before scoring: deterministic ID reassignment, incremental
// cache update, config overrides, exclude-path and max-files filtering,
// dead-code dedup, compound-smell escalation, non-production security
// downgrade, category-aware FP filtering, and confidence clamping.
package postprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/repotoire-go/repotoire/internal/classify"
	"github.com/repotoire-go/repotoire/internal/detect/contentclass"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/incache"
	"github.com/repotoire-go/repotoire/internal/rlog"
)

// securityDetectors names detectors whose Critical/High findings get
// downgraded to Medium when every affected file sits on a non-production
// path. Matches the original CLI's fixed SECURITY_DETECTORS list.
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
}

// DetectorOverride is a project-config override applied to one detector's
// findings: disable it outright, or force a severity.
type DetectorOverride struct {
	Enabled  *bool
	Severity *graphmodel.Severity
}

// Config carries every post-processing input that varies per run.
type Config struct {
	DetectorOverrides map[string]DetectorOverride
	ExcludePaths      []string // doublestar glob patterns
	MaxFiles          int
	AllFiles          []string // the analyzed file set, used by max-files filtering
	Incremental       bool
	FilesToParse      []string
	Cache             *incache.Cache
	Files             fileprovider.Provider
	Verify            bool
}

// Stats reports what each step removed or changed, for a run summary.
type Stats struct {
	ExcludedByPath       int
	FilteredByMaxFiles   int
	DedupedDeadCode      int
	CompoundEscalated    int
	SecurityDowngraded   int
	FPFiltered           classify.FilterStats
}

// Run executes the full pipeline in order and returns the surviving
// findings plus a summary of what each step did.
func Run(findings []graphmodel.Finding, cfg Config) ([]graphmodel.Finding, Stats) {
	var stats Stats

	assignDeterministicIDs(findings)

	if cfg.Incremental && cfg.Cache != nil {
		updateIncrementalCache(cfg.Cache, cfg.Files, cfg.FilesToParse, findings)
	}

	findings = applyDetectorOverrides(findings, cfg.DetectorOverrides)

	if len(cfg.ExcludePaths) > 0 {
		before := len(findings)
		findings = filterExcludedPaths(findings, cfg.ExcludePaths)
		stats.ExcludedByPath = before - len(findings)
	}

	if cfg.MaxFiles > 0 {
		before := len(findings)
		findings = filterByMaxFiles(findings, cfg.AllFiles)
		stats.FilteredByMaxFiles = before - len(findings)
	}

	before := len(findings)
	findings = dedupeDeadCodeOverlap(findings)
	stats.DedupedDeadCode = before - len(findings)

	findings, stats.CompoundEscalated = escalateCompoundSmells(findings)

	findings, stats.SecurityDowngraded = downgradeNonProductionSecurity(findings)

	var fpStats classify.FilterStats
	findings, fpStats = classify.Filter(findings, classify.HeuristicClassifier{}, classify.DefaultCategoryThresholds(), contentclass.IsNonProductionPath)
	stats.FPFiltered = fpStats

	clampConfidence(findings)

	if cfg.Verify {
		runVerifyProbe()
	}

	return findings, stats
}

// findingID derives the stable {detector, first_file, first_line} id every
// finding is reassigned during step 0, so re-runs over unchanged code
// produce identical ids regardless of what a detector assigned initially.
func findingID(detector, file string, line int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", detector, file, line)))
	return hex.EncodeToString(sum[:])[:16]
}

func assignDeterministicIDs(findings []graphmodel.Finding) {
	for i := range findings {
		findings[i].ID = findingID(findings[i].Detector, findings[i].FirstFile(), findings[i].LineStart)
	}
}

// updateIncrementalCache groups findings per analyzed file and writes each
// file's findings into the cache keyed by its current content hash, then
// flushes the cache to disk — mirroring the original pipeline's
// cache_findings-per-file-then-save_cache shape.
func updateIncrementalCache(cache *incache.Cache, files fileprovider.Provider, paths []string, findings []graphmodel.Finding) {
	for _, path := range paths {
		var perFile []graphmodel.Finding
		for _, f := range findings {
			for _, af := range f.AffectedFiles {
				if af == path {
					perFile = append(perFile, f)
					break
				}
			}
		}
		if files == nil {
			continue
		}
		content, ok := files.Content(path)
		if !ok {
			continue
		}
		cache.Put(path, incache.ContentHash([]byte(content)), perFile)
	}
	if err := cache.Flush(); err != nil {
		rlog.Warnf("failed to save incremental cache: %v", err)
	}
}

func applyDetectorOverrides(findings []graphmodel.Finding, overrides map[string]DetectorOverride) []graphmodel.Finding {
	if len(overrides) == 0 {
		return findings
	}
	out := findings[:0]
	for _, f := range findings {
		if ov, ok := overrides[f.Detector]; ok {
			if ov.Enabled != nil && !*ov.Enabled {
				continue
			}
			if ov.Severity != nil {
				f.Severity = *ov.Severity
			}
		}
		out = append(out, f)
	}
	return out
}

func filterExcludedPaths(findings []graphmodel.Finding, patterns []string) []graphmodel.Finding {
	var out []graphmodel.Finding
	for _, f := range findings {
		excluded := false
		for _, path := range f.AffectedFiles {
			if matchesAnyGlob(path, patterns) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, f)
		}
	}
	return out
}

func matchesAnyGlob(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// filterByMaxFiles keeps a finding only if it has no affected files, or at
// least one affected file is in the analyzed set — either exactly or by
// path-suffix match (to tolerate recorded paths with a different prefix,
// e.g. a leading "./").
func filterByMaxFiles(findings []graphmodel.Finding, allFiles []string) []graphmodel.Finding {
	allowed := make(map[string]bool, len(allFiles))
	for _, f := range allFiles {
		allowed[f] = true
	}

	var out []graphmodel.Finding
	for _, f := range findings {
		if len(f.AffectedFiles) == 0 {
			out = append(out, f)
			continue
		}
		keep := false
		for _, path := range f.AffectedFiles {
			if allowed[path] {
				keep = true
				break
			}
			for a := range allowed {
				if pathSuffixMatch(path, a) {
					keep = true
					break
				}
			}
			if keep {
				break
			}
		}
		if keep {
			out = append(out, f)
		}
	}
	return out
}

func pathSuffixMatch(findingPath, arg string) bool {
	trimmedArg := strings.TrimPrefix(arg, "./")
	trimmedPath := strings.TrimPrefix(findingPath, "./")
	return strings.HasSuffix(trimmedPath, trimmedArg) || strings.HasSuffix(trimmedArg, trimmedPath)
}

// dedupeDeadCodeOverlap drops a DeadCodeDetector finding whenever an
// UnreachableCodeDetector finding already covers the same (file, line,
// symbol) — unreachable-code analysis is strictly more precise, so it
// wins when both detectors flag the same spot.
func dedupeDeadCodeOverlap(findings []graphmodel.Finding) []graphmodel.Finding {
	type key struct {
		file   string
		line   int
		symbol string
	}
	unreachable := make(map[key]bool)
	for _, f := range findings {
		if f.Detector != "UnreachableCodeDetector" {
			continue
		}
		unreachable[key{f.FirstFile(), f.LineStart, extractSymbolFromTitle(f.Title)}] = true
	}

	var out []graphmodel.Finding
	for _, f := range findings {
		if f.Detector == "DeadCodeDetector" {
			k := key{f.FirstFile(), f.LineStart, extractSymbolFromTitle(f.Title)}
			if unreachable[k] {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func extractSymbolFromTitle(title string) string {
	parts := strings.SplitN(title, ":", 3)
	if len(parts) >= 2 {
		return strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return strings.ToLower(strings.TrimSpace(title))
}

// escalateCompoundSmells bumps severity by one step (capped at Critical)
// for every finding sharing a (file, line) with at least one other
// finding — multiple independent detectors flagging the same location is
// itself a signal the spot deserves more attention.
func escalateCompoundSmells(findings []graphmodel.Finding) ([]graphmodel.Finding, int) {
	type key struct {
		file string
		line int
	}
	counts := make(map[key]int)
	for _, f := range findings {
		counts[key{f.FirstFile(), f.LineStart}]++
	}

	escalated := 0
	for i := range findings {
		k := key{findings[i].FirstFile(), findings[i].LineStart}
		if k.file == "" || counts[k] < 2 {
			continue
		}
		if findings[i].Severity < graphmodel.SeverityCritical {
			findings[i].Severity++
			escalated++
		}
	}
	return findings, escalated
}

func downgradeNonProductionSecurity(findings []graphmodel.Finding) ([]graphmodel.Finding, int) {
	downgraded := 0
	for i := range findings {
		f := &findings[i]
		if !securityDetectors[f.Detector] {
			continue
		}
		if f.Severity != graphmodel.SeverityCritical && f.Severity != graphmodel.SeverityHigh {
			continue
		}
		isNonProd := false
		for _, path := range f.AffectedFiles {
			if contentclass.IsNonProductionPath(path) {
				isNonProd = true
				break
			}
		}
		if !isNonProd {
			continue
		}
		f.Severity = graphmodel.SeverityMedium
		if !strings.HasPrefix(f.Description, "[Non-production path] ") {
			f.Description = "[Non-production path] " + f.Description
		}
		downgraded++
	}
	return findings, downgraded
}

func clampConfidence(findings []graphmodel.Finding) {
	for i := range findings {
		c := findings[i].Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		findings[i].Confidence = c
	}
}

// SortFindings orders the final output deterministically: severity
// descending, then file, then line, then id — used by the CLI for stable
// textual and JSON output across runs.
func SortFindings(findings []graphmodel.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.FirstFile() != b.FirstFile() {
			return a.FirstFile() < b.FirstFile()
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.ID < b.ID
	})
}
