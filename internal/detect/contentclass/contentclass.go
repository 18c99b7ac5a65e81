// Package contentclass classifies files by content and path rather than
// extension alone: generated/bundled code, minified code, AST/compiler
// code, test fixtures, and non-production paths. Post-processing uses the
// non-production-path classification to downgrade and filter findings in
// code nobody ships; no detector calls this package.
package contentclass

import (
	"regexp"
	"strings"
)

var (
	umdWrapper      = regexp.MustCompile(`^\s*\(function\s*\(\s*\w+\s*,\s*\w+\s*\)\s*\{`)
	commonjsWrapper = regexp.MustCompile(`^(?:'use strict';\s*)?(?:Object\.defineProperty\(exports|exports\.\w+\s*=|module\.exports\s*=)`)
	generatedHeader = regexp.MustCompile(`(?i)(?:generated\s+(?:by|from|using)|auto[- ]?generated|do\s+not\s+edit|machine\s+generated|this\s+file\s+is\s+generated)`)
)

// IsLikelyBundledPath reports whether a path's directory shape indicates
// generated/build output rather than hand-written source.
func IsLikelyBundledPath(path string) bool {
	p := strings.ToLower(path)
	for _, marker := range []string{
		"/dist/", "/build/", "/npm/", "/cjs/", "/esm/", "/umd/",
		".min.", ".bundle.", "/fixtures/", "/__fixtures__/",
		"/legacy-", "/devtools-", "-devtools/",
	} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

// IsCompilerCodePath reports whether a path looks like compiler/AST/parser
// code, which needs higher detector thresholds rather than a blanket skip.
func IsCompilerCodePath(path string) bool {
	p := strings.ToLower(path)
	for _, marker := range []string{"/compiler/", "/babel-plugin-", "/hir/", "/mir/", "/ast/", "/parser/", "/transform"} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

// IsBundledCode inspects file content for build-tool signatures: license
// banners, webpack/UMD/CommonJS wrappers, generated-file comments, or a
// source map reference.
func IsBundledCode(content string) bool {
	header := content
	if len(header) > 1000 {
		header = header[:1000]
	}

	if strings.HasPrefix(header, "/*!") || strings.HasPrefix(header, "/** @license") || strings.HasPrefix(header, "/**\n * @license") {
		return true
	}
	if strings.Contains(header, "__webpack_require__") || strings.Contains(header, "__webpack_exports__") ||
		strings.Contains(header, "System.register") || strings.Contains(header, `define(["require"`) ||
		strings.Contains(header, `define(['require'`) {
		return true
	}
	if umdWrapper.MatchString(header) {
		return true
	}
	if commonjsWrapper.MatchString(header) && strings.Contains(content, "process.env.NODE_ENV") {
		return true
	}
	if generatedHeader.MatchString(header) {
		return true
	}
	if strings.Contains(content, "//# sourceMappingURL=") {
		return true
	}
	return false
}

// IsMinifiedCode flags content whose average line length, or whose first
// few lines, look machine-compacted rather than hand-written.
func IsMinifiedCode(content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return false
	}
	avgLineLen := len(content) / len(lines)
	if avgLineLen > 500 {
		return true
	}
	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range lines[:limit] {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 500 && strings.Count(trimmed, ";") > 20 {
			return true
		}
	}
	return false
}

var astKeywords = []string{
	"AST", "Node", "visitor", "Expr", "Stmt", "Decl",
	"Identifier", "Literal", "BinaryExpression", "CallExpression",
	"FunctionDeclaration", "VariableDeclaration", "BlockStatement",
}

// IsASTManipulationCode flags functions whose name or body looks like AST
// traversal/compiler plumbing (visitX/transformX/... or a dense cluster of
// AST type names in the first couple KB of the file).
func IsASTManipulationCode(funcName, content string) bool {
	name := strings.ToLower(funcName)
	for _, prefix := range []string{"visit", "transform", "traverse", "enter", "exit", "parse", "emit", "lower", "infer"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	sample := content
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	matches := 0
	for _, kw := range astKeywords {
		if strings.Contains(sample, kw) {
			matches++
		}
	}
	return matches >= 3
}

// IsTestInfrastructure flags mocks/fixtures/setup files that should be
// analysed under relaxed test-context rules rather than skipped outright.
func IsTestInfrastructure(filePath, content string) bool {
	path := strings.ToLower(filePath)
	header := content
	if len(header) > 500 {
		header = header[:500]
	}

	for _, marker := range []string{"@fixture", "@mock", "// test fixture", "// mock", "/* fixture"} {
		if strings.Contains(header, marker) {
			return true
		}
	}
	for _, marker := range []string{"setuptest", "testsetup", "jest.config", "jest.setup"} {
		if strings.Contains(path, marker) {
			return true
		}
	}
	if strings.Contains(header, "jest.fn()") || strings.Contains(header, "jest.mock(") ||
		strings.Contains(header, "vi.fn()") || strings.Contains(header, "sinon.stub") || strings.Contains(header, "Mock") {
		mockCount := strings.Count(content, "mock") + strings.Count(content, "Mock") +
			strings.Count(content, "stub") + strings.Count(content, "fake")
		if mockCount >= 3 {
			return true
		}
	}
	return false
}

// IsFixtureCode flags content that exists only as a simplified example to
// test against, not shipped production code.
func IsFixtureCode(content string) bool {
	header := content
	if len(header) > 1000 {
		header = header[:1000]
	}
	for _, marker := range []string{"@fixture", "// fixture", "/* fixture", "# fixture", "test fixture"} {
		if strings.Contains(header, marker) {
			return true
		}
	}
	placeholders := strings.Count(content, "foo") + strings.Count(content, "bar") +
		strings.Count(content, "baz") + strings.Count(content, "qux")
	if placeholders >= 4 && len(content) < 5000 {
		return true
	}
	markers := 0
	for _, m := range []string{"// input:", "// output:", "// expected:", "// before:", "// after:"} {
		if strings.Contains(content, m) {
			markers++
		}
	}
	return markers >= 2
}

// IsNonProductionPath reports whether a path belongs to scripts, tests,
// fixtures, examples, or devtools — the set of locations the post-processing
// pipeline downgrades security findings within, since a vulnerable pattern
// in a throwaway script is not the same risk as one in shipped code.
func IsNonProductionPath(path string) bool {
	p := strings.ToLower(path)
	for _, marker := range []string{
		"/scripts/", "/script/", "/test/", "/tests/", "/__tests__/", "/spec/",
		"/fixtures/", "/__fixtures__/", "/examples/", "/example/", "/demo/", "/demos/",
		"/devtools/",
	} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	for _, prefix := range []string{"scripts/", "test/", "tests/", "examples/", "demo/", "devtools/"} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
