// Package parserapi defines the frozen contract between a language parser
// and the graph builder. Any parser — the bundled tree-sitter adapter or an
// external one — produces exactly these types; the builder never depends on
// a specific parser implementation.
package parserapi

// ParsedFile is everything a single-file parse pass extracts.
type ParsedFile struct {
	Path      string
	Language  string
	Functions []ParsedFunction
	Classes   []ParsedClass
	Imports   []ParsedImport
}

// ParsedFunction is one function or method found in a file. QualifiedName
// must be globally unique within the repository (package/module path plus
// name); Calls holds the callee names as written in source, resolved to
// qualified names by the builder's second pass.
type ParsedFunction struct {
	Name          string
	QualifiedName string
	LineStart     int
	LineEnd       int
	Properties    map[string]any
	Calls         []string
}

// ParsedClass is one class, struct, or interface definition.
type ParsedClass struct {
	Name          string
	QualifiedName string
	LineStart     int
	LineEnd       int
	MethodCount   int
	Properties    map[string]any
	Parents       []string
}

// ParsedImport is one import statement. IsTypeOnly marks imports that exist
// only for type information (e.g. a Go blank identifier import never counts
// as type-only, but a TypeScript `import type` does) — cycle detection
// excludes type-only import edges.
type ParsedImport struct {
	Target     string
	IsTypeOnly bool
}

// Parser is the contract a language adapter implements to feed the builder.
type Parser interface {
	// Language returns the language identifier this parser handles (e.g. "go").
	Language() string
	// CanParse reports whether this parser handles the given file path,
	// typically by extension.
	CanParse(path string) bool
	// Parse extracts a ParsedFile from file content.
	Parse(path string, content []byte) (ParsedFile, error)
}
