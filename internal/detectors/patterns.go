package detectors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// MagicNumberDetector flags unexplained numeric literals of two or more
// digits, grounded on
// original_source/repotoire-cli/src/detectors/magic_numbers.rs (number
// pattern `\b(\d{2,})\b`; common allowed values like 0, 1, 100 are excluded
// since they rarely need a name).
type MagicNumberDetector struct{}

func NewMagicNumberDetector() *MagicNumberDetector         { return &MagicNumberDetector{} }
func (d *MagicNumberDetector) Name() string                 { return "MagicNumberDetector" }
func (d *MagicNumberDetector) Category() graphmodel.Category { return graphmodel.CategoryReadability }

var magicNumberPattern = regexp.MustCompile(`\b(\d{2,})\b`)
var magicNumberAllowList = map[string]bool{
	"100": true, "200": true, "404": true, "500": true, "1000": true,
	"10": true, "16": true, "24": true, "32": true, "64": true, "128": true, "256": true,
}

func (d *MagicNumberDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range sourceFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		for i, line := range splitLines(content) {
			trimmed := stripLine(line)
			if trimmed == "" || isCommentLine(trimmed) {
				continue
			}
			match := magicNumberPattern.FindStringSubmatch(line)
			if match == nil || magicNumberAllowList[match[1]] {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityLow,
				fmt.Sprintf("Magic number: %s", match[1]),
				fmt.Sprintf("Literal %s appears without a named constant explaining its meaning.", match[1]),
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// TodoScannerDetector flags TODO/FIXME/HACK/XXX/BUG markers left in source,
// grounded on
// original_source/repotoire-cli/src/detectors/todo_scanner.rs.
type TodoScannerDetector struct{}

func NewTodoScannerDetector() *TodoScannerDetector          { return &TodoScannerDetector{} }
func (d *TodoScannerDetector) Name() string                  { return "TodoScannerDetector" }
func (d *TodoScannerDetector) Category() graphmodel.Category { return graphmodel.CategoryTechnicalDebt }

var todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX|BUG)[\s:]+(.{0,80})`)

func (d *TodoScannerDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range sourceFiles(files) {
		content, ok := files.Content(path)
		if !ok {
			continue
		}
		for i, line := range splitLines(content) {
			match := todoPattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			marker := strings.ToUpper(match[1])
			severity := graphmodel.SeverityLow
			if marker == "FIXME" || marker == "BUG" {
				severity = graphmodel.SeverityMedium
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), severity,
				fmt.Sprintf("%s comment", marker),
				strings.TrimSpace(match[2]),
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// WildcardImportDetector flags `import *`-style wildcard imports, grounded
// on original_source/repotoire-cli/src/detectors/wildcard_imports.rs.
type WildcardImportDetector struct{}

func NewWildcardImportDetector() *WildcardImportDetector    { return &WildcardImportDetector{} }
func (d *WildcardImportDetector) Name() string               { return "WildcardImportDetector" }
func (d *WildcardImportDetector) Category() graphmodel.Category {
	return graphmodel.CategoryMaintainability
}

var wildcardImportPattern = regexp.MustCompile(`(?i)(from\s+\S+\s+import\s+\*|import\s+\*\s+from|import\s+\*\s*;|\.\*;)`)

func (d *WildcardImportDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, sourceFiles(files), wildcardImportPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityLow,
			"Wildcard import",
			"Importing everything from a module obscures which names are actually used and risks silent name collisions.",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}

// ImplicitCoercionDetector flags loose-equality comparisons that trigger
// implicit type coercion, grounded on
// original_source/repotoire-cli/src/detectors/implicit_coercion.rs (loose
// equality pattern excludes strict === / !== and negated != operators).
type ImplicitCoercionDetector struct{}

func NewImplicitCoercionDetector() *ImplicitCoercionDetector { return &ImplicitCoercionDetector{} }
func (d *ImplicitCoercionDetector) Name() string              { return "ImplicitCoercionDetector" }
func (d *ImplicitCoercionDetector) Category() graphmodel.Category {
	return graphmodel.CategoryBugRisk
}

var looseEqualityPattern = regexp.MustCompile(`[^!=<>]==[^=]`)

func (d *ImplicitCoercionDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var jsLikeExts = []string{".js", ".jsx", ".ts", ".tsx", ".php"}
	return scanRegexFinding(d.Name(), d.Category(), files, files.FilesWithExtensions(jsLikeExts), looseEqualityPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityLow,
			"Loose equality triggers implicit coercion",
			"`==`/`!=` coerce operand types before comparing, which can produce surprising results (e.g. `0 == \"\"`).",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}

// EmptyCatchDetector flags catch/except blocks with no handling logic,
// grounded on
// original_source/repotoire-cli/src/detectors/empty_catch.rs (scans the
// body following a catch/except header for any non-comment statement
// before the block closes; a lone `pass`/`;`/comment-only body counts as
// empty).
type EmptyCatchDetector struct{}

func NewEmptyCatchDetector() *EmptyCatchDetector            { return &EmptyCatchDetector{} }
func (d *EmptyCatchDetector) Name() string                   { return "EmptyCatchDetector" }
func (d *EmptyCatchDetector) Category() graphmodel.Category { return graphmodel.CategoryErrorHandling }

var catchHeaderPattern = regexp.MustCompile(`^\s*(\}\s*)?(catch|except)\b.*[:\{]\s*$`)

func (d *EmptyCatchDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range sourceFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !catchHeaderPattern.MatchString(line) {
				continue
			}
			headerIndent := indentOf(line)
			bodyEmpty := true
			j := i + 1
			for ; j < len(lines); j++ {
				trimmed := stripLine(lines[j])
				if trimmed == "" || isCommentLine(trimmed) {
					continue
				}
				if indentOf(lines[j]) <= headerIndent {
					break
				}
				if trimmed == "pass" || trimmed == ";" || isBlockCloser(trimmed) {
					continue
				}
				bodyEmpty = false
				break
			}
			if !bodyEmpty {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityMedium,
				"Empty catch block",
				"Exception is caught and silently discarded, hiding failures from callers and logs.",
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// BooleanTrapDetector flags calls passing two or more bare boolean
// literals as positional arguments, grounded on
// original_source/repotoire-cli/src/detectors/boolean_trap.rs.
type BooleanTrapDetector struct{}

func NewBooleanTrapDetector() *BooleanTrapDetector          { return &BooleanTrapDetector{} }
func (d *BooleanTrapDetector) Name() string                  { return "BooleanTrapDetector" }
func (d *BooleanTrapDetector) Category() graphmodel.Category { return graphmodel.CategoryReadability }

var booleanTrapPattern = regexp.MustCompile(`\w+\s*\([^)]*\b(true|false|True|False)\s*,\s*(true|false|True|False)`)

func (d *BooleanTrapDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, sourceFiles(files), booleanTrapPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityLow,
			"Boolean trap: ambiguous positional bool arguments",
			"Call passes two or more bare boolean literals positionally — callers can't tell what each flag means without checking the signature.",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}

// ReactHooksDetector flags React hook calls made conditionally, in a loop,
// or inside a nested function, grounded on
// original_source/repotoire-cli/src/detectors/react_hooks.rs's rules-of-hooks
// checks: a hook call within five lines after a conditional, a loop
// header, or a less-indented nested function header. Dependency arrays of
// useEffect/useMemo/useCallback are not checked.
type ReactHooksDetector struct{}

func NewReactHooksDetector() *ReactHooksDetector            { return &ReactHooksDetector{} }
func (d *ReactHooksDetector) Name() string                   { return "ReactHooksDetector" }
func (d *ReactHooksDetector) Category() graphmodel.Category { return graphmodel.CategoryBugRisk }

var (
	hookCallPattern   = regexp.MustCompile(`\b(useState|useEffect|useContext|useReducer|useCallback|useMemo|useRef|useImperativeHandle|useLayoutEffect|useDebugValue|useTransition|useDeferredValue|useId|useSyncExternalStore|useInsertionEffect|use[A-Z]\w*)\s*\(`)
	hookConditional   = regexp.MustCompile(`^\s*(if\s*\(|else\s*\{|switch\s*\(|\?\s*$|&&\s*$|\|\|\s*$)`)
	hookLoop          = regexp.MustCompile(`^\s*(for\s*\(|while\s*\(|\.forEach\(|\.map\(|\.filter\()`)
	hookNestedFunc    = regexp.MustCompile(`^\s*(function\s+\w+|const\s+\w+\s*=\s*(async\s+)?\(|const\s+\w+\s*=\s*(async\s+)?function)`)
)

func (d *ReactHooksDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	var exts = []string{".js", ".jsx", ".ts", ".tsx"}
	for _, path := range files.FilesWithExtensions(exts) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !hookCallPattern.MatchString(line) {
				continue
			}
			violation := ""
			for back := 1; back <= 5 && i-back >= 0; back++ {
				prior := lines[i-back]
				if hookConditional.MatchString(prior) {
					violation = "inside a conditional branch"
					break
				}
				if hookLoop.MatchString(prior) {
					violation = "inside a loop"
					break
				}
				if hookNestedFunc.MatchString(prior) && indentOf(prior) < indentOf(line) {
					violation = "inside a nested function"
					break
				}
			}
			if violation == "" {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityHigh,
				"React hook called conditionally",
				fmt.Sprintf("Hook call appears %s, violating the rules of hooks — hook call order must be identical on every render.", violation),
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// parseIntOr parses s as a base-10 int, returning def on failure.
func parseIntOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
