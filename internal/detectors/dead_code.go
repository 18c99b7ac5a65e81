package detectors

import (
	"fmt"
	"unicode"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// DeadCodeDetector flags functions with zero in-graph callers that are not
// framework entry points — the graph-based half of spec.md §4.4's
// "Dead function / Unreachable code" family. No equivalent file survived
// the original_source/ distillation (confirmed by an exhaustive search of
// the retrieved tree); this detector is original synthesis built directly
// from spec.md's own wording: "a function is dead if it has zero
// call-graph callers and is not an entry point".
type DeadCodeDetector struct {
	// Lenient skips exported/capitalized names — a project-type's public
	// API surface legitimately has zero in-repo callers (library and
	// framework consumers live outside the indexed graph). Set from the
	// project type's multiplier table; see SizeMultiplier.
	Lenient bool
}

func NewDeadCodeDetector() *DeadCodeDetector { return &DeadCodeDetector{} }

func (d *DeadCodeDetector) Name() string                  { return "DeadCodeDetector" }
func (d *DeadCodeDetector) Category() graphmodel.Category { return graphmodel.CategoryDeadCode }

// exportedName reports whether name looks like public API surface by the
// convention Go (and several other languages in the indexed corpus) use:
// an initial uppercase letter.
func exportedName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (d *DeadCodeDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding

	for _, fn := range graph.GetNodesByKind(graphmodel.NodeFunction) {
		if IsEntryPoint(fn.Name, fn.FilePath) {
			continue
		}
		if d.Lenient && exportedName(fn.Name) {
			continue
		}
		if graph.CallFanIn(fn.QualifiedName) > 0 {
			continue
		}
		content, ok := files.Content(fn.FilePath)
		if ok && detect.IsSuppressed(content, fn.LineStart, d.Name()) {
			continue
		}

		findings = append(findings, newFinding(
			d.Name(), d.Category(), graphmodel.SeverityLow,
			fmt.Sprintf("Dead function: %s", fn.Name),
			fmt.Sprintf("%s has no callers found in the call graph and does not match a known entry-point pattern.", fn.QualifiedName),
			[]string{fn.FilePath}, fn.LineStart, fn.LineEnd,
		))
	}
	return findings, nil
}

// UnreachableCodeDetector finds the statement textually following an
// unconditional control-transfer (return/throw/raise/exit/break/continue)
// at the same indentation within the same block — the
// intra-function half of the same spec family, grounded on
// original_source/repotoire-cli/src/detectors/unreachable_code.rs's
// line-scanning approach (look for a transfer keyword, then flag the next
// non-blank, non-comment line if it sits at the same indentation and is
// not a block closer). One finding at most per transfer; deeper-indented
// continuation lines and the lines after the first are not flagged.
type UnreachableCodeDetector struct{}

func NewUnreachableCodeDetector() *UnreachableCodeDetector { return &UnreachableCodeDetector{} }

func (d *UnreachableCodeDetector) Name() string                  { return "UnreachableCodeDetector" }
func (d *UnreachableCodeDetector) Category() graphmodel.Category { return graphmodel.CategoryDeadCode }

// languagesWithCompilerEnforcement skips this detector for languages whose
// own compiler already rejects unreachable code after a terminal
// statement (Go is the clearest example: "missing return" and unreachable
// code are compile errors), matching spec's "skip languages whose
// compiler already enforces it" carve-out.
var languagesWithCompilerEnforcement = map[string]bool{
	"go": true,
}

func (d *UnreachableCodeDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding

	for _, path := range sourceFiles(files) {
		lang := languageOf(path)
		if languagesWithCompilerEnforcement[lang] {
			continue
		}
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		findings = append(findings, scanUnreachable(d.Name(), d.Category(), path, content)...)
	}
	return findings, nil
}

func scanUnreachable(detName string, category graphmodel.Category, path, content string) []graphmodel.Finding {
	var findings []graphmodel.Finding
	lines := splitLines(content)

	terminalKeyword := func(line string) bool {
		trimmed := trimIndent(line)
		for _, kw := range []string{"return", "throw", "raise", "exit(", "break", "continue"} {
			if hasWordPrefix(trimmed, kw) {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(lines)-1; i++ {
		line := lines[i]
		if !terminalKeyword(line) {
			continue
		}
		terminalIndent := indentOf(line)
		for j := i + 1; j < len(lines); j++ {
			next := lines[j]
			trimmed := stripLine(next)
			if trimmed == "" || isCommentLine(trimmed) {
				continue
			}
			nextIndent := indentOf(next)
			if nextIndent < terminalIndent {
				break // block closed
			}
			if nextIndent == terminalIndent {
				if isBlockCloser(trimmed) {
					break
				}
				lineNo := j + 1
				if detect.IsSuppressed(content, lineNo, detName) {
					break
				}
				findings = append(findings, newFinding(
					detName, category, graphmodel.SeverityMedium,
					"Unreachable code",
					fmt.Sprintf("Code at line %d follows an unconditional %s and can never execute.", lineNo, firstWord(terminalIndentWord(lines[i]))),
					[]string{path}, lineNo, lineNo,
				))
			}
			break
		}
	}
	return findings
}
