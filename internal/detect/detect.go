// Package detect implements the detector contract, the derived per-run
// contexts every detector shares, suppression-comment filtering, and the
// batch and streaming engines that execute the registered detector set
// against a graph.
package detect

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
	"github.com/repotoire-go/repotoire/pkg/pathutil"
)

// GraphQuery is the read-only view of the code graph a detector receives —
// Store's query methods minus every mutator, so a detector cannot touch the
// graph it is inspecting.
type GraphQuery interface {
	GetNode(qualifiedName string) (graphmodel.Node, bool)
	GetNodesByKind(kind graphmodel.NodeKind) []graphmodel.Node
	GetFunctionsInFile(filePath string) []graphmodel.Node
	GetComplexFunctions(threshold int) []graphmodel.Node
	GetLongParamFunctions(threshold int) []graphmodel.Node
	GetCallers(qualifiedName string) []graphmodel.Node
	GetCallees(qualifiedName string) []graphmodel.Node
	GetImporters(qualifiedName string) []graphmodel.Node
	GetParentClasses(qualifiedName string) []graphmodel.Node
	GetChildClasses(qualifiedName string) []graphmodel.Node
	FanIn(qualifiedName string) int
	FanOut(qualifiedName string) int
	CallFanIn(qualifiedName string) int
	CallFanOut(qualifiedName string) int
	Stats() graphstore.Stats
	FindImportCycles() [][]string
	FindCallCycles() [][]string
	FindMinimalCycle(qualifiedName string, kind graphmodel.EdgeKind) []string
}

// Detector is any component that inspects the graph and file content to
// produce findings. Detectors are pure with respect to (graph, files) —
// any auxiliary state (an n-gram model, a cache directory) is injected at
// construction, never read ad hoc during Detect.
type Detector interface {
	Name() string
	Category() graphmodel.Category
	Detect(graph GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error)
}

// Context precomputes, once per run, the per-function lookup by file+line
// every detector would otherwise recompute. Call fan-in/out is read from
// Graph on demand, and the test-path predicate is the package-level
// IsTestPath. Detectors receive it read-only.
type Context struct {
	Graph GraphQuery
	Files fileprovider.Provider

	functionsByFile map[string][]graphmodel.Node
}

func NewContext(graph GraphQuery, files fileprovider.Provider) *Context {
	ctx := &Context{Graph: graph, Files: files, functionsByFile: make(map[string][]graphmodel.Node)}
	for _, f := range files.Files() {
		ctx.functionsByFile[f] = graph.GetFunctionsInFile(f)
	}
	return ctx
}

// FunctionAtLine returns the innermost function in path containing line, if
// any — the per-function-by-file+line-range lookup detectors must not
// recompute themselves.
func (c *Context) FunctionAtLine(path string, line int) (graphmodel.Node, bool) {
	var best graphmodel.Node
	found := false
	for _, fn := range c.functionsByFile[path] {
		if line < fn.LineStart || line > fn.LineEnd {
			continue
		}
		if !found || (fn.LineEnd-fn.LineStart) < (best.LineEnd-best.LineStart) {
			best = fn
			found = true
		}
	}
	return best, found
}

// IsTestPath is the shared test-path predicate, reused from pathutil so
// every detector agrees on what "test code" means.
func IsTestPath(path string) bool {
	return pathutil.IsTestFile(path)
}

var suppressRule = regexp.MustCompile(`repotoire:ignore\[([a-zA-Z0-9_,\- ]+)\]`)
var suppressNextLine = regexp.MustCompile(`repotoire:ignore-next-line`)

// IsSuppressed checks the current and previous source lines of content for
// a `repotoire:ignore[rule]` or `repotoire:ignore-next-line` marker
// matching detectorName, per the suppression-comment contract every
// detector honors uniformly.
func IsSuppressed(content string, line int, detectorName string) bool {
	lines := splitLinesCached(content)

	at := func(n int) (string, bool) {
		if n < 1 || n > len(lines) {
			return "", false
		}
		return lines[n-1], true
	}

	if cur, ok := at(line); ok && lineHasRule(cur, detectorName) {
		return true
	}
	if prev, ok := at(line - 1); ok {
		if lineHasRule(prev, detectorName) || suppressNextLine.MatchString(prev) {
			return true
		}
	}
	return false
}

func lineHasRule(line, detectorName string) bool {
	m := suppressRule.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	for _, rule := range strings.Split(m[1], ",") {
		rule = strings.TrimSpace(rule)
		if rule == detectorName || strings.EqualFold(rule, detectorName) {
			return true
		}
	}
	return false
}

func splitLinesCached(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// ParseLineNumber is a small helper detectors use when extracting a line
// number embedded in a title (e.g. for dead/unreachable-code dedup keys).
func ParseLineNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
