package detectors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// CircularDependencyDetector finds import cycles via the graph's Tarjan
// SCC pass and grades severity by cycle length, counting the cycle as one
// file longer when its most strongly coupled edge is dense (a target with
// more than 10 importers). The weakest link — the edge whose target has
// the fewest importers — is named in the description as the cheapest
// place to break the cycle.
type CircularDependencyDetector struct{}

func NewCircularDependencyDetector() *CircularDependencyDetector { return &CircularDependencyDetector{} }

func (d *CircularDependencyDetector) Name() string                 { return "CircularDependencyDetector" }
func (d *CircularDependencyDetector) Category() graphmodel.Category { return graphmodel.CategoryArchitecture }

func (d *CircularDependencyDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding

	for _, cycle := range graph.FindImportCycles() {
		if len(cycle) < 2 {
			continue
		}
		maxCoupling := 1
		minCoupling := -1
		var weakFrom, weakTo string
		for i := range cycle {
			from, to := cycle[i], cycle[(i+1)%len(cycle)]
			strength := len(graph.GetImporters(to)) // proxy for import-edge weight
			if strength < 1 {
				strength = 1
			}
			if strength > maxCoupling {
				maxCoupling = strength
			}
			if minCoupling == -1 || strength < minCoupling {
				minCoupling = strength
				weakFrom, weakTo = from, to
			}
		}

		severity := circularSeverity(len(cycle), maxCoupling)

		display := make([]string, 0, len(cycle))
		limit := len(cycle)
		if limit > 5 {
			limit = 5
		}
		for _, f := range cycle[:limit] {
			display = append(display, filepath.Base(f))
		}
		chain := strings.Join(display, " -> ")
		if len(cycle) > 5 {
			chain += fmt.Sprintf(" ... (%d files total)", len(cycle))
		}

		desc := fmt.Sprintf("Found circular import chain: %s", chain)
		if weakFrom != "" {
			desc += fmt.Sprintf("\nWeakest link: %s -> %s (break here first)", filepath.Base(weakFrom), filepath.Base(weakTo))
		}

		findings = append(findings, newFinding(
			d.Name(), d.Category(), severity,
			fmt.Sprintf("Circular dependency involving %d files", len(cycle)),
			desc, append([]string(nil), cycle...), 0, 0,
		))
	}
	return findings, nil
}

func circularSeverity(cycleLength, maxCoupling int) graphmodel.Severity {
	n := cycleLength
	if maxCoupling > 10 {
		n++
	}
	switch {
	case n >= 10:
		return graphmodel.SeverityCritical
	case n >= 5:
		return graphmodel.SeverityHigh
	case n >= 3:
		return graphmodel.SeverityMedium
	default:
		return graphmodel.SeverityLow
	}
}
