package detectors

import (
	"fmt"
	"sort"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// ModuleCohesionDetector runs a single-level greedy Louvain-style
// modularity optimization over the file-level call graph (weighted by
// cross-file call counts) to flag poor global modularity, god modules, and
// misplaced files, per spec.md §4.4's "Module Cohesion (Louvain)" family.
type ModuleCohesionDetector struct {
	ModularityPoorThreshold float64
	GodModuleFileRatio      float64
	MisplacedImportRatio    float64
	Resolution              float64
}

func NewModuleCohesionDetector() *ModuleCohesionDetector {
	return &ModuleCohesionDetector{
		ModularityPoorThreshold: 0.3,
		GodModuleFileRatio:      0.2,
		MisplacedImportRatio:    0.8,
		Resolution:              1.0,
	}
}

func (d *ModuleCohesionDetector) Name() string                  { return "ModuleCohesionDetector" }
func (d *ModuleCohesionDetector) Category() graphmodel.Category { return graphmodel.CategoryArchitecture }

// fileGraph is the weighted undirected projection of the call graph onto
// files: weight[a][b] counts calls crossing from a file in a to a file in
// b (or vice versa).
type fileGraph struct {
	nodes   []string
	weight  map[string]map[string]int
	degree  map[string]int
	total   int
}

func buildFileGraph(graph detect.GraphQuery) *fileGraph {
	fg := &fileGraph{weight: map[string]map[string]int{}, degree: map[string]int{}}
	seen := map[string]bool{}

	for _, fn := range graph.GetNodesByKind(graphmodel.NodeFunction) {
		if !seen[fn.FilePath] {
			seen[fn.FilePath] = true
			fg.nodes = append(fg.nodes, fn.FilePath)
		}
		for _, callee := range graph.GetCallees(fn.QualifiedName) {
			if callee.FilePath == "" || callee.FilePath == fn.FilePath {
				continue
			}
			a, b := fn.FilePath, callee.FilePath
			if a > b {
				a, b = b, a
			}
			if fg.weight[a] == nil {
				fg.weight[a] = map[string]int{}
			}
			fg.weight[a][b]++
			fg.degree[fn.FilePath]++
			fg.degree[callee.FilePath]++
			fg.total++
		}
	}
	sort.Strings(fg.nodes)
	return fg
}

func (fg *fileGraph) edgeWeight(a, b string) int {
	if a > b {
		a, b = b, a
	}
	return fg.weight[a][b]
}

// greedyLouvainOneLevel runs one pass of greedy modularity-gain community
// merging: each file starts in its own community and moves into whichever
// neighboring community maximizes modularity gain, repeating until no
// move improves the score. This is the single-level simplification of
// full multi-level Louvain — sufficient for the file-count scale repo
// analysis operates at and avoids building the full dendrogram.
func (fg *fileGraph) greedyLouvainOneLevel(resolution float64) (map[string]int, float64) {
	community := make(map[string]int, len(fg.nodes))
	for i, n := range fg.nodes {
		community[n] = i
	}
	m2 := float64(fg.total) * 2
	if m2 == 0 {
		return community, 0
	}

	improved := true
	for improved {
		improved = false
		for _, n := range fg.nodes {
			neighborComms := map[int]int{}
			for other := range fg.weight[n] {
				neighborComms[community[other]] += fg.weight[n][other]
			}
			for other, w := range fg.weight {
				if inner, ok := w[n]; ok {
					neighborComms[community[other]] += inner
				}
			}
			currentComm := community[n]
			bestComm := currentComm
			bestGain := 0.0
			for comm, linkWeight := range neighborComms {
				if comm == currentComm {
					continue
				}
				gain := (float64(linkWeight) - resolution*float64(fg.degree[n])*float64(communityDegree(fg, community, comm))/m2)
				if gain > bestGain {
					bestGain = gain
					bestComm = comm
				}
			}
			if bestComm != currentComm {
				community[n] = bestComm
				improved = true
			}
		}
	}

	return community, modularityScore(fg, community, m2)
}

func communityDegree(fg *fileGraph, community map[string]int, comm int) int {
	sum := 0
	for n, c := range community {
		if c == comm {
			sum += fg.degree[n]
		}
	}
	return sum
}

func modularityScore(fg *fileGraph, community map[string]int, m2 float64) float64 {
	if m2 == 0 {
		return 0
	}
	var q float64
	for a := range fg.weight {
		for b, w := range fg.weight[a] {
			if community[a] == community[b] {
				q += 2 * float64(w)
			}
		}
	}
	for _, n := range fg.nodes {
		_ = n
	}
	// Subtract the expected-weight null model term per community.
	degByComm := map[int]int{}
	for n, c := range community {
		degByComm[c] += fg.degree[n]
	}
	for _, deg := range degByComm {
		q -= (float64(deg) * float64(deg)) / m2
	}
	return q / m2
}

func (d *ModuleCohesionDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	fg := buildFileGraph(graph)
	if len(fg.nodes) < 3 || fg.total == 0 {
		return nil, nil
	}

	community, modularity := fg.greedyLouvainOneLevel(d.Resolution)

	var findings []graphmodel.Finding

	if modularity < d.ModularityPoorThreshold {
		findings = append(findings, newFinding(
			d.Name(), d.Category(), graphmodel.SeverityMedium,
			"Poor global modularity",
			fmt.Sprintf("Call-graph modularity is %.2f (below %.2f) — the codebase's modules are not cleanly separated.", modularity, d.ModularityPoorThreshold),
			nil, 0, 0,
		))
	}

	communityFiles := map[int][]string{}
	for n, c := range community {
		communityFiles[c] = append(communityFiles[c], n)
	}
	totalFiles := len(fg.nodes)
	for comm, members := range communityFiles {
		if float64(len(members))/float64(totalFiles) > d.GodModuleFileRatio && len(members) > 5 {
			sort.Strings(members)
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityMedium,
				"God module detected",
				fmt.Sprintf("Community %d contains %d of %d files (%.0f%%) — consider splitting by responsibility.", comm, len(members), totalFiles, 100*float64(len(members))/float64(totalFiles)),
				members, 0, 0,
			))
		}
	}

	for _, n := range fg.nodes {
		own := fg.degree[n]
		if own == 0 {
			continue
		}
		external := 0
		internal := 0
		for other, w := range fg.weight[n] {
			if community[other] != community[n] {
				external += w
			} else {
				internal += w
			}
		}
		for other, w := range fg.weight {
			if innerW, ok := w[n]; ok {
				if community[other] != community[n] {
					external += innerW
				} else {
					internal += innerW
				}
			}
		}
		total := external + internal
		if total == 0 {
			continue
		}
		if float64(external)/float64(total) >= d.MisplacedImportRatio {
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityLow,
				"Misplaced file",
				fmt.Sprintf("%s's calls are %.0f%% to files outside its own module — it likely belongs elsewhere.", n, 100*float64(external)/float64(total)),
				[]string{n}, 0, 0,
			))
		}
	}

	return findings, nil
}
