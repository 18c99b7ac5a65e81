// Package detectors implements the concrete detector library: the 38
// pattern-, metric-, and graph-based analyses of the families spec.md §4.4 enumerates,
// each satisfying detect.Detector. Detectors are grouped one-file-per-
// family, sharing the line-scanning and entry-point heuristics in this
// file.
package detectors

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// newFinding builds a Finding with a provisional ID — post-processing
// reassigns the real deterministic ID from (detector, first file, first
// line), so detectors need not agree on an ID scheme themselves.
func newFinding(detector string, category graphmodel.Category, severity graphmodel.Severity, title, description string, files []string, lineStart, lineEnd int) graphmodel.Finding {
	return graphmodel.Finding{
		ID:            fmt.Sprintf("%s:%s:%d", detector, firstOf(files), lineStart),
		Detector:      detector,
		Category:      category,
		Severity:      severity,
		Title:         title,
		Description:   description,
		AffectedFiles: files,
		LineStart:     lineStart,
		LineEnd:       lineEnd,
		Confidence:    0.7,
	}
}

func firstOf(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return files[0]
}

// scanLines walks content line-by-line, invoking fn(lineNumber, line) for
// a regex match. Suppressed lines (repotoire:ignore) never reach fn.
func scanLines(detector, path, content string, re *regexp.Regexp, fn func(lineNo int, line string, match []string)) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lineNo := i + 1
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if detect.IsSuppressed(content, lineNo, detector) {
			continue
		}
		fn(lineNo, line, m)
	}
}

// entryPointNamePrefixes and entryPointPathPrefixes are the heuristic
// allowlist dead-code/unreachable-code detection uses to avoid flagging
// framework entry points (main, test runners, HTTP handlers, CLI
// commands) that have no in-graph caller by construction.
var entryPointNamePrefixes = []string{
	"main", "test_", "handle_", "get_", "post_", "on_", "__init__", "route",
	"Test", "Handle", "Init", "Setup", "New",
}

var entryPointPathPrefixes = []string{
	"/cli/", "/cmd/", "/main", "/routes/", "/handlers/", "/controllers/",
}

// IsEntryPoint reports whether a function's name or file path matches the
// heuristic allowlist of framework/runtime entry points that legitimately
// have zero in-graph callers.
func IsEntryPoint(name, filePath string) bool {
	for _, p := range entryPointNamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	lower := strings.ToLower(filepath.ToSlash(filePath))
	for _, p := range entryPointPathPrefixes {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// moduleOf returns the directory containing path — the unit coupling,
// cohesion, and module-cohesion detection operate on, per spec's glossary
// ("Module — the directory containing a file").
func moduleOf(path string) string {
	dir := filepath.Dir(filepath.ToSlash(path))
	if dir == "." {
		return ""
	}
	return dir
}

// sortedKeys returns a sorted copy of a string set's keys, used wherever a
// detector needs deterministic output order (affected-file lists, cycle
// members) so finding IDs stay stable across runs.
func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns the full registered detector library in a stable order —
// the set cmd/repotoire wires into the engine by default, at the
// un-scaled (project_type "web", multiplier 1.0) thresholds.
func All() []detect.Detector {
	return BuildAll(SizeMultiplier{Complexity: 1.0})
}

// SizeMultiplier is the subset of a project type's multiplier table that
// the detector library itself needs to scale thresholds — kept as its own
// type here (rather than importing internal/config's richer Multiplier)
// so this package never depends on internal/config; cmd/repotoire
// converts config.Multiplier into this shape when it builds the engine's
// detector list.
type SizeMultiplier struct {
	// Complexity scales every size/length/fan-in threshold in the size-
	// smells family: a kernel or compiler project tolerates larger
	// functions and classes than a web service does, per spec.md §6.
	Complexity float64
	// LenientDead is passed straight through to DeadCodeDetector.Lenient.
	LenientDead bool
}

// scale applies a SizeMultiplier.Complexity factor to an int threshold,
// rounding to the nearest integer and never returning less than 1.
func scale(threshold int, factor float64) int {
	if factor <= 0 {
		factor = 1.0
	}
	scaled := int(float64(threshold)*factor + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// BuildAll constructs the full detector library with the size-smells
// family's thresholds scaled by mult.Complexity and DeadCodeDetector's
// leniency set from mult.LenientDead — the project-type-aware
// instantiation spec.md §6 describes ("Web 1.0 / Kernel 3.0 etc.").
func BuildAll(mult SizeMultiplier) []detect.Detector {
	f := mult.Complexity
	if f <= 0 {
		f = 1.0
	}

	godClass := NewGodClassDetector()
	godClass.MaxMethods = scale(godClass.MaxMethods, f)
	godClass.MaxLOC = scale(godClass.MaxLOC, f)

	largeFile := NewLargeFileDetector()
	largeFile.Threshold = scale(largeFile.Threshold, f)

	longMethod := NewLongMethodDetector()
	longMethod.Threshold = scale(longMethod.Threshold, f)

	lazyClass := NewLazyClassDetector()
	lazyClass.MaxMethods = scale(lazyClass.MaxMethods, f)
	lazyClass.MaxLOC = scale(lazyClass.MaxLOC, f)

	middleMan := NewMiddleManDetector()
	// DelegationThreshold is a ratio, not a size; it does not scale.

	shotgun := NewShotgunSurgeryDetector()
	shotgun.MinCallers = scale(shotgun.MinCallers, f)

	deadCode := NewDeadCodeDetector()
	deadCode.Lenient = mult.LenientDead

	return []detect.Detector{
		NewCircularDependencyDetector(),
		NewModuleCohesionDetector(),
		deadCode,
		NewUnreachableCodeDetector(),
		godClass,
		largeFile,
		longMethod,
		lazyClass,
		middleMan,
		shotgun,
		NewNPlusOneDetector(),
		NewStringConcatInLoopDetector(),
		NewMissingAwaitDetector(),
		NewHardcodedTimeoutDetector(),
		NewInsecureRandomDetector(),
		NewInsecureCookieDetector(),
		NewInsecureDeserializeDetector(),
		NewSQLInjectionDetector(),
		NewNoSQLInjectionDetector(),
		NewSSRFDetector(),
		NewPathTraversalDetector(),
		NewXSSDetector(),
		NewEvalDetector(),
		NewCommandInjectionDetector(),
		NewMagicNumberDetector(),
		NewTodoScannerDetector(),
		NewWildcardImportDetector(),
		NewImplicitCoercionDetector(),
		NewEmptyCatchDetector(),
		NewBooleanTrapDetector(),
		NewReactHooksDetector(),
		NewUnwrapWithoutContextDetector(),
		NewUnsafeWithoutSafetyCommentDetector(),
		NewCloneInHotPathDetector(),
		NewMissingMustUseDetector(),
		NewBoxDynTraitDetector(),
		NewMutexPoisoningDetector(),
		NewAINamingPatternDetector(),
	}
}

// sourceExtensions limits pattern-based detectors to source files, so they
// never scan binary blobs or vendored data files picked up by Files().
var sourceExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".rb", ".php",
	".c", ".cc", ".cpp", ".h", ".hpp", ".rs", ".cs",
}

func sourceFiles(files fileprovider.Provider) []string {
	return files.FilesWithExtensions(sourceExtensions)
}
