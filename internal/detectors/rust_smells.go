package detectors

import (
	"regexp"
	"strings"

	"github.com/repotoire-go/repotoire/internal/detect"
	"github.com/repotoire-go/repotoire/internal/fileprovider"
	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// This file groups the Rust-specific smell detectors, grounded on
// original_source/repotoire-cli/src/detectors/rust_smells/mod.rs's shared
// regex set (unwrap/expect/unsafe/SAFETY-comment/clone/hot-path-indicator/
// must_use/Box-dyn/mutex-unwrap) and its is_safe_unwrap_context allowlist.
// All operate only on .rs files — on any other extension they return no
// findings, matching spec.md §4.4's "language-specific family" framing.

var (
	rustUnwrapCall   = regexp.MustCompile(`\.unwrap\s*\(\s*\)`)
	rustExpectCall   = regexp.MustCompile(`\.expect\s*\(\s*["']`)
	rustUnsafeBlock  = regexp.MustCompile(`\bunsafe\s*\{`)
	rustSafetyCmt    = regexp.MustCompile(`(?i)//\s*SAFETY:|///\s*#\s*Safety|//\s*SAFETY\s*:`)
	rustCloneCall    = regexp.MustCompile(`\.clone\s*\(\s*\)`)
	rustHotPathWord  = regexp.MustCompile(`(?i)\b(loop|while|for|iter|map|filter|fold|reduce|collect|into_iter)\b`)
	rustMustUseAttr  = regexp.MustCompile(`#\[must_use`)
	rustBoxDynTrait  = regexp.MustCompile(`Box\s*<\s*dyn\s+\w+`)
	rustMutexUnwrap  = regexp.MustCompile(`\.lock\s*\(\s*\)\s*\.unwrap\s*\(\s*\)`)
)

var rustSafeUnwrapMarkers = []string{
	"OnceLock", "OnceCell", "Lazy", "get_or_init",
	"Query::new", "const ", "static ", "lazy_static!", "once_cell",
	".read().unwrap()", ".write().unwrap()", ".lock().unwrap()",
	".to_str().unwrap()", ".to_lowercase().next().unwrap()",
}

func rustFiles(files fileprovider.Provider) []string {
	return files.FilesWithExtensions([]string{".rs"})
}

func isSafeUnwrapContext(line string) bool {
	trimmed := stripLine(line)
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
		return true
	}
	if strings.HasSuffix(trimmed, `\n\`) || strings.HasPrefix(trimmed, `"`) || strings.HasPrefix(trimmed, `r#"`) {
		return true
	}
	if strings.Contains(line, "Regex::new") {
		return true
	}
	for _, marker := range rustSafeUnwrapMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// UnwrapWithoutContextDetector flags `.unwrap()` calls outside of known-safe
// contexts (OnceLock init, tests, literal strings), grounded on
// rust_smells/unwrap.rs (referenced via mod.rs's shared regex/allowlist).
type UnwrapWithoutContextDetector struct{}

func NewUnwrapWithoutContextDetector() *UnwrapWithoutContextDetector {
	return &UnwrapWithoutContextDetector{}
}
func (d *UnwrapWithoutContextDetector) Name() string { return "UnwrapWithoutContextDetector" }
func (d *UnwrapWithoutContextDetector) Category() graphmodel.Category {
	return graphmodel.CategoryBugRisk
}

func (d *UnwrapWithoutContextDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range rustFiles(files) {
		if detect.IsTestPath(path) {
			continue
		}
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		for i, line := range splitLines(content) {
			if !rustUnwrapCall.MatchString(line) && !rustExpectCall.MatchString(line) {
				continue
			}
			if isSafeUnwrapContext(line) {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityMedium,
				"unwrap()/expect() without error context",
				"Panics immediately on None/Err with no recovery path — prefer `?`, a match, or a contextual `.expect(\"why this holds\")`.",
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// UnsafeWithoutSafetyCommentDetector flags `unsafe {}` blocks lacking a
// `// SAFETY:` comment in the preceding lines, grounded on
// rust_smells/unsafe_comment.rs.
type UnsafeWithoutSafetyCommentDetector struct{}

func NewUnsafeWithoutSafetyCommentDetector() *UnsafeWithoutSafetyCommentDetector {
	return &UnsafeWithoutSafetyCommentDetector{}
}
func (d *UnsafeWithoutSafetyCommentDetector) Name() string {
	return "UnsafeWithoutSafetyCommentDetector"
}
func (d *UnsafeWithoutSafetyCommentDetector) Category() graphmodel.Category {
	return graphmodel.CategoryBugRisk
}

func (d *UnsafeWithoutSafetyCommentDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range rustFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !rustUnsafeBlock.MatchString(line) {
				continue
			}
			hasSafety := false
			for back := 1; back <= 3 && i-back >= 0; back++ {
				if rustSafetyCmt.MatchString(lines[i-back]) {
					hasSafety = true
					break
				}
			}
			if hasSafety {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityHigh,
				"unsafe block without SAFETY comment",
				"An `unsafe {}` block has no `// SAFETY:` explanation of the invariants that make it sound.",
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// CloneInHotPathDetector flags `.clone()` calls that appear inside a loop
// or iterator chain, grounded on rust_smells/clone_hot_path.rs.
type CloneInHotPathDetector struct{}

func NewCloneInHotPathDetector() *CloneInHotPathDetector { return &CloneInHotPathDetector{} }
func (d *CloneInHotPathDetector) Name() string            { return "CloneInHotPathDetector" }
func (d *CloneInHotPathDetector) Category() graphmodel.Category {
	return graphmodel.CategoryPerformance
}

func (d *CloneInHotPathDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range rustFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !rustCloneCall.MatchString(line) {
				continue
			}
			inHotPath := rustHotPathWord.MatchString(line)
			if !inHotPath {
				for back := 1; back <= 5 && i-back >= 0; back++ {
					if rustHotPathWord.MatchString(lines[i-back]) {
						inHotPath = true
						break
					}
				}
			}
			if !inHotPath {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityLow,
				"clone() inside a hot path",
				"Cloning inside a loop/iterator chain allocates repeatedly; consider borrowing or restructuring ownership.",
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// MissingMustUseDetector flags Result/Option-returning public functions
// whose declaration lacks #[must_use] — approximated textually by looking
// for `pub fn` returning `Result<` or `Option<` without a #[must_use]
// attribute in the 2 preceding lines, grounded on rust_smells/must_use.rs.
type MissingMustUseDetector struct{}

func NewMissingMustUseDetector() *MissingMustUseDetector { return &MissingMustUseDetector{} }
func (d *MissingMustUseDetector) Name() string            { return "MissingMustUseDetector" }
func (d *MissingMustUseDetector) Category() graphmodel.Category {
	return graphmodel.CategoryMaintainability
}

var rustPubFnResultOption = regexp.MustCompile(`pub\s+fn\s+\w+.*->\s*(Result|Option)\s*<`)

func (d *MissingMustUseDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	var findings []graphmodel.Finding
	for _, path := range rustFiles(files) {
		content, ok := files.MaskedContent(path)
		if !ok {
			continue
		}
		lines := splitLines(content)
		for i, line := range lines {
			if !rustPubFnResultOption.MatchString(line) {
				continue
			}
			hasMustUse := false
			for back := 1; back <= 2 && i-back >= 0; back++ {
				if rustMustUseAttr.MatchString(lines[i-back]) {
					hasMustUse = true
					break
				}
			}
			if hasMustUse {
				continue
			}
			lineNo := i + 1
			if detect.IsSuppressed(content, lineNo, d.Name()) {
				continue
			}
			findings = append(findings, newFinding(
				d.Name(), d.Category(), graphmodel.SeverityLow,
				"Result/Option-returning function missing #[must_use]",
				"Callers can silently drop an error or an absent value; marking the function #[must_use] turns that into a compiler warning.",
				[]string{path}, lineNo, lineNo,
			))
		}
	}
	return findings, nil
}

// BoxDynTraitDetector flags `Box<dyn Trait>` usage in positions where a
// generic parameter would avoid the dynamic-dispatch and heap-allocation
// cost, grounded on rust_smells/box_dyn.rs.
type BoxDynTraitDetector struct{}

func NewBoxDynTraitDetector() *BoxDynTraitDetector { return &BoxDynTraitDetector{} }
func (d *BoxDynTraitDetector) Name() string         { return "BoxDynTraitDetector" }
func (d *BoxDynTraitDetector) Category() graphmodel.Category {
	return graphmodel.CategoryPerformance
}

func (d *BoxDynTraitDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, rustFiles(files), rustBoxDynTrait, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityLow,
			"Box<dyn Trait> where a generic may suffice",
			"Dynamic dispatch via Box<dyn Trait> costs an allocation and a vtable indirection; if the concrete type is known at the call site, a generic parameter is monomorphized instead.",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}

// MutexPoisoningDetector flags `.lock().unwrap()`, which panics the whole
// thread (and poisons the mutex for every other holder) if a prior holder
// panicked while holding the lock, grounded on
// rust_smells/mutex_poisoning.rs.
type MutexPoisoningDetector struct{}

func NewMutexPoisoningDetector() *MutexPoisoningDetector { return &MutexPoisoningDetector{} }
func (d *MutexPoisoningDetector) Name() string            { return "MutexPoisoningDetector" }
func (d *MutexPoisoningDetector) Category() graphmodel.Category {
	return graphmodel.CategoryBugRisk
}

func (d *MutexPoisoningDetector) Detect(graph detect.GraphQuery, files fileprovider.Provider) ([]graphmodel.Finding, error) {
	return scanRegexFinding(d.Name(), d.Category(), files, rustFiles(files), rustMutexUnwrap, func(path string, lineNo int, line string) *graphmodel.Finding {
		f := newFinding(d.Name(), d.Category(), graphmodel.SeverityMedium,
			"Mutex lock poisoning risk",
			".lock().unwrap() panics if the mutex is poisoned by an earlier panicking holder, cascading one panic into every future lock attempt; handle the PoisonError explicitly.",
			[]string{path}, lineNo, lineNo)
		return &f
	}), nil
}
