package detectors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// NPlusOneDetector flags a query-like call appearing inside a loop body,
// grounded on
// original_source/repotoire-cli/src/detectors/n_plus_one.rs (loop-header
// pattern `for ... in|.forEach|.map(|.each`; query pattern covering ORM
// lookups, SQL SELECT, and awaited findOne calls; function-name query
// prefixes get_/find_/fetch_/load_/query_/select_).
type NPlusOneDetector struct{}

func NewNPlusOneDetector() *NPlusOneDetector          { return &NPlusOneDetector{} }
func (d *NPlusOneDetector) Name() string               { return "NPlusOneDetector" }
func (d *NPlusOneDetector) Category() graphmodel.Category {
	return graphmodel.CategoryPerformance
}

var npOneLoopHeader = regexp.MustCompile(`(?i)(for\s+\w+\s+in|\.forEach|\.map\(|\.each)`)
var npOneQuery = regexp.MustCompile(`(?i)(\.get\(|\.find\(|\.filter\(|\.first\(|\.where\(|\.query\(|SELECT\s|Model\.\w+\.get|await\s+\w+\.findOne)`)
var npOneQueryFuncPrefix = regexp.MustCompile(`(?i)(get_|find_|fetch_|load_|query_|select_)`)

func (d *NPlusOneDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range sourceFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !npOneLoopHeader.MatchString(line) {
				continue
			}
			loopIndent := indentOf(line)
			for j := i + 1; j < len(lines); j++ {
				next := lines[j]
				trimmed := stripLine(next)
				if trimmed == "" || isCommentLine(trimmed) {
					continue
				}
				if indentOf(next) <= loopIndent {
					break
				}
				if !npOneQuery.MatchString(next) && !npOneQueryFuncPrefix.MatchString(next) {
					continue
				}
				lineNo := j + 1
				if detect.IsSuppressed(content, lineNo, d.Name()) {
					break
				}
				findings = append(findings, newFinding(
					d.Name(), d.Category(), graphmodel.SeverityMedium,
					"Potential N+1 query",
					"A data-fetching call runs once per loop iteration instead of being batched into a single query outside the loop.",
					[]string{path}, lineNo, lineNo,
				))
				break
			}
		}
	}
	return findings, nil
}

// StringConcatInLoopDetector flags `x += "..."`-style string accumulation
// inside a loop body, grounded on
// original_source/repotoire-cli/src/detectors/string_concat_loop.rs.
type StringConcatInLoopDetector struct{}

func NewStringConcatInLoopDetector() *StringConcatInLoopDetector {
	return &StringConcatInLoopDetector{}
}
func (d *StringConcatInLoopDetector) Name() string { return "StringConcatInLoopDetector" }
func (d *StringConcatInLoopDetector) Category() graphmodel.Category {
	return graphmodel.CategoryPerformance
}

var concatLoopHeader = regexp.MustCompile(`(?i)(for\s+\w+\s+in|\.forEach|\.map\(|\.each|for\s*\(|while\s*\()`)
var concatAssignPattern = regexp.MustCompile(`\w+\s*\+=\s*(?:["'` + "`" + `]|f["'])`)

func (d *StringConcatInLoopDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range sourceFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !concatLoopHeader.MatchString(line) {
				continue
			}
			loopIndent := indentOf(line)
			for j := i + 1; j < len(lines); j++ {
				next := lines[j]
				trimmed := stripLine(next)
				if trimmed == "" || isCommentLine(trimmed) {
					continue
				}
				if indentOf(next) <= loopIndent {
					break
				}
				if !concatAssignPattern.MatchString(next) {
					continue
				}
				lineNo := j + 1
				if detect.IsSuppressed(content, lineNo, d.Name()) {
					continue
				}
				findings = append(findings, newFinding(
					d.Name(), d.Category(), graphmodel.SeverityLow,
					"String concatenation in loop",
					"Building a string with += inside a loop reallocates on every iteration; use a builder/buffer/join instead.",
					[]string{path}, lineNo, lineNo,
				))
			}
		}
	}
	return findings, nil
}

// MissingAwaitDetector flags calls to an async-looking API (fetch/axios/
// I/O) whose line neither awaits, returns, nor chains `.then(` on the
// result, grounded on
// original_source/repotoire-cli/src/detectors/missing_await.rs. Only
// applies within functions already declared async, since a non-async
// caller could not await regardless.
type MissingAwaitDetector struct{}

func NewMissingAwaitDetector() *MissingAwaitDetector { return &MissingAwaitDetector{} }
func (d *MissingAwaitDetector) Name() string          { return "MissingAwaitDetector" }
func (d *MissingAwaitDetector) Category() graphmodel.Category {
	return graphmodel.CategoryBugRisk
}

var asyncCallPattern = regexp.MustCompile(`(?i)(fetch\(|axios\.|\.json\(\)|\.text\(\)|async_\w+\(|aio\w+\.|\.read\(\)|\.write\(\)|\.send\(\)|\.get\(|\.post\(|\.put\(|\.delete\()`)
var asyncFuncHeader = regexp.MustCompile(`(?:async\s+(?:def|function)|async\s+\w+\s*\(|async\s+\w+\s*=)`)

func (d *MissingAwaitDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var exts = []string{".js", ".jsx", ".ts", ".tsx", ".py"}
	var findings []graphmodel.Finding
	for _, path := range files.FilesWithExtensions(exts) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		insideAsync := false
		asyncIndent := -1
		for i, line := range lines {
			if asyncFuncHeader.MatchString(line) {
				insideAsync = true
				asyncIndent = indentOf(line)
				continue
			}
			if insideAsync && stripLine(line) != "" && indentOf(line) <= asyncIndent {
				insideAsync = false
			}
			if !insideAsync {
				continue
			}
			if !asyncCallPattern.MatchString(line) {
				continue
			}
			if matchesWord(line, "await") || matchesWord(line, "return") || strings.Contains(line, ".then(") {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityMedium,
				"Async call without await",
				fmt.Sprintf("Call on line %d returns a promise/coroutine inside an async function but is not awaited or returned — the result (and any rejection) is silently dropped.", lineNo),
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

func matchesWord(line, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(line)
}

// HardcodedTimeoutDetector flags timeout/sleep/delay values hardcoded with
// 4+ digits (i.e. plausibly a millisecond constant that should be
// configurable), grounded on
// original_source/repotoire-cli/src/detectors/hardcoded_timeout.rs.
type HardcodedTimeoutDetector struct{}

func NewHardcodedTimeoutDetector() *HardcodedTimeoutDetector { return &HardcodedTimeoutDetector{} }
func (d *HardcodedTimeoutDetector) Name() string              { return "HardcodedTimeoutDetector" }
func (d *HardcodedTimeoutDetector) Category() graphmodel.Category {
	return graphmodel.CategoryMaintainability
}

var hardcodedTimeoutPattern = regexp.MustCompile(`(?i)(timeout|sleep|delay|wait|setTimeout|setInterval|read_timeout|write_timeout|connect_timeout)\s*[\(=:]\s*(\d{4,})`)

func (d *HardcodedTimeoutDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, sourceFiles(files), hardcodedTimeoutPattern, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityLow,
			"Hardcoded timeout value",
			"A timeout/sleep/delay duration is hardcoded rather than sourced from configuration, making it hard to tune per environment.",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}
