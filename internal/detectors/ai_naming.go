package detectors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// AINamingPatternDetector flags functions whose local variable names skew
// heavily generic (result/temp/data/item/...) or single-letter outside a
// loop/index context — research-grounded on
// original_source/repotoire-cli/src/detectors/ai_naming_pattern.rs, whose
// GENERIC_WORDS/SINGLE_LETTER_GENERICS/IGNORED_NAMES/LOOP_CONTEXT_NAMES
// lists and 40%-ratio/5-identifier-minimum defaults are reproduced here
// verbatim.
type AINamingPatternDetector struct {
	GenericRatioThreshold float64
	MinIdentifiers        int
	MinBodyLines          int
}

func NewAINamingPatternDetector() *AINamingPatternDetector {
	return &AINamingPatternDetector{GenericRatioThreshold: 0.4, MinIdentifiers: 5, MinBodyLines: 8}
}

func (d *AINamingPatternDetector) Name() string                  { return "AINamingPatternDetector" }
func (d *AINamingPatternDetector) Category() graphmodel.Category { return graphmodel.CategoryNaming }

var aiSingleLetterGenerics = map[string]bool{}
var aiGenericWords = map[string]bool{}
var aiIgnoredNames = map[string]bool{}
var aiLoopContextNames = map[string]bool{"i": true, "j": true, "k": true, "idx": true}

func init() {
	for _, w := range []string{
		"i", "j", "k", "x", "y", "n", "m", "a", "b", "c", "d", "e", "f", "g", "h", "l", "o", "p", "q",
		"r", "s", "t", "u", "v", "w", "z",
	} {
		aiSingleLetterGenerics[w] = true
	}
	for _, w := range []string{
		"result", "results", "retval", "return_value", "temp", "tmp", "temporary", "data", "value",
		"values", "vals", "item", "items", "elem", "element", "elements", "obj", "object", "objects",
		"output", "out", "input", "response", "request", "var", "variable", "arg", "args", "argument",
		"arguments", "param", "params", "parameter", "parameters", "info", "stuff", "thing", "things",
		"content", "contents", "entry", "entries", "record", "records", "node", "nodes", "current",
		"new", "old", "first", "last", "next", "left", "right", "count", "num", "number", "index",
		"key", "keys", "flag", "flags", "status", "state", "type", "kind", "name", "id", "str",
		"string", "text", "list", "array", "dict", "dictionary", "map", "mapping", "set", "sets",
		"tuple", "func", "function", "callback", "handler", "wrapper", "helper", "util", "utils",
		"utility",
	} {
		aiGenericWords[w] = true
	}
	for _, w := range []string{"self", "cls", "_", "__", "True", "False", "None", "Exception", "Error"} {
		aiIgnoredNames[w] = true
	}
}

var aiAssignmentPattern = regexp.MustCompile(`^\s+(\w+)\s*=\s`)
var aiForLoopPattern = regexp.MustCompile(`^\s+for\s+(\w+)\s+in\s`)
var aiFuncDefPattern = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(`)

// isGenericName reproduces ai_naming_pattern.rs's is_generic_name: an
// ignored name is never generic; a single-letter loop variable in
// loop-context is exempt; any other single letter from the curated set,
// or any curated generic word, counts as generic.
func (d *AINamingPatternDetector) isGenericName(name string, isLoopVariable bool) bool {
	lower := strings.ToLower(name)
	if aiIgnoredNames[name] || aiIgnoredNames[lower] {
		return false
	}
	if len(name) == 1 {
		if isLoopVariable && aiLoopContextNames[lower] {
			return false
		}
		if aiSingleLetterGenerics[lower] {
			return true
		}
	}
	return aiGenericWords[lower]
}

func (d *AINamingPatternDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range files.FilesWithExtensions([]string{".py"}) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)

		var funcStart, funcIndent int
		var funcName string
		inFunc := false
		// unique identifiers seen in the current function body, keyed by
		// lowercase name, value is whether it was bound as a for-loop
		// variable anywhere in the body — mirrors the original's
		// is_loop_var set, deduplicated the same way as its unique_idents.
		loopVar := map[string]bool{}
		seenCase := map[string]string{} // lowercase -> first-seen original casing

		flush := func(endLine int) {
			if !inFunc {
				return
			}
			bodyLines := endLine - (funcStart + 1)
			if bodyLines < d.MinBodyLines {
				return
			}
			identifiers := len(seenCase)
			if identifiers < d.MinIdentifiers {
				return
			}
			generic := 0
			for lower, original := range seenCase {
				if d.isGenericName(original, loopVar[lower]) {
					generic++
				}
			}
			ratio := float64(generic) / float64(identifiers)
			if ratio < d.GenericRatioThreshold {
				return
			}
			if detect.IsSuppressed(content, funcStart+1, d.Name()) {
				return
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityLow,
				fmt.Sprintf("Generic variable names in '%s'", funcName),
				fmt.Sprintf("%.0f%% of local identifiers in '%s' are generic placeholders (result/temp/data/item/...) rather than domain-specific names.", ratio*100, funcName),
				[]string{path}, funcStart+1, endLine,
			))
		}

		for i, line := range lines {
			if m := aiFuncDefPattern.FindStringSubmatch(line); m != nil {
				flush(i)
				funcStart = i
				funcIndent = len(m[1])
				funcName = m[2]
				inFunc = true
				loopVar = map[string]bool{}
				seenCase = map[string]string{}
				continue
			}
			if inFunc && indentOf(line) <= funcIndent && stripLine(line) != "" {
				flush(i)
				inFunc = false
				continue
			}
			if !inFunc {
				continue
			}
			var name string
			isLoop := false
			if m := aiForLoopPattern.FindStringSubmatch(line); m != nil {
				name = m[1]
				isLoop = true
			} else if m := aiAssignmentPattern.FindStringSubmatch(line); m != nil {
				name = m[1]
				if aiIgnoredNames[name] {
					continue
				}
			} else {
				continue
			}
			lower := strings.ToLower(name)
			if isLoop {
				loopVar[lower] = true
			}
			if _, ok := seenCase[lower]; !ok {
				seenCase[lower] = name
			}
		}
		flush(len(lines))
	}
	return findings, nil
}
