// Package parseradapter implements parserapi.Parser on top of tree-sitter,
// the same extraction technology the teacher's internal/parser package
// uses: a Parser/Query pair per language, walked with a QueryCursor over
// named captures rather than a hand-rolled recursive descent. The bundled
// adapter covers Go; additional languages plug in the same way (see
// setupGo below for the pattern a second adapter would repeat).
package parseradapter

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/repotoire-go/repotoire/internal/parserapi"
)

// goFunctionQuery captures top-level funcs, methods (with their receiver
// type, so QualifiedName can be Receiver.Method), struct and interface type
// declarations, call expressions (plain and selector calls), and import
// specs — the function/method/type/import capture groups the teacher's
// setupGo uses plus a call group, reduced to what the graph builder
// actually consumes.
const goFunctionQuery = `
(function_declaration name: (identifier) @function.name) @function
(method_declaration
    receiver: (parameter_list
        (parameter_declaration type: (_) @method.receiver))
    name: (field_identifier) @method.name) @method
(type_declaration
    (type_spec name: (type_identifier) @type.name
        type: (struct_type) @type.struct)) @type
(type_declaration
    (type_spec name: (type_identifier) @type.name
        type: (interface_type) @type.interface)) @type
(call_expression function: (identifier) @call.name) @call
(call_expression function: (selector_expression field: (field_identifier) @call.name)) @call
(import_spec path: (interpreted_string_literal) @import.path) @import
`

// GoAdapter parses Go source with tree-sitter-go, implementing
// parserapi.Parser. It is not goroutine-safe: tree_sitter.Parser carries
// internal state, so concurrent parsing needs one GoAdapter per goroutine
// rather than a shared instance (mirroring the teacher's
// one-parser-per-extension-per-instance setup). The analyze command parses
// files sequentially with a single instance.
type GoAdapter struct {
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
}

// NewGoAdapter constructs a ready-to-use Go parser, or returns an error if
// the grammar failed to load or the capture query failed to compile — a
// condition the teacher's own setupGo silently tolerates (leaving the
// extension unregistered) but that a fresh adapter surfaces instead, since
// there is no multi-language registry here to fall back on.
func NewGoAdapter() (*GoAdapter, error) {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("parseradapter: set go language: %w", err)
	}

	query, err := tree_sitter.NewQuery(language, goFunctionQuery)
	if err != nil {
		return nil, fmt.Errorf("parseradapter: compile go query: %w", err)
	}

	return &GoAdapter{parser: parser, query: query}, nil
}

func (a *GoAdapter) Language() string { return "go" }

func (a *GoAdapter) CanParse(path string) bool {
	return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
}

// Parse extracts functions, methods, type declarations (as classes), and
// imports from a single Go source file. Calls are recorded on the
// enclosing function by line range — a call_expression capture falling
// inside a function's [LineStart, LineEnd] is attributed to it, matching
// the builder's two-pass design (this pass emits unresolved callee names;
// the builder's second pass resolves them against QualifiedName).
func (a *GoAdapter) Parse(path string, content []byte) (parserapi.ParsedFile, error) {
	tree := a.parser.Parse(content, nil)
	if tree == nil {
		return parserapi.ParsedFile{}, fmt.Errorf("parseradapter: failed to parse %s", path)
	}
	defer tree.Close()

	pkg := goPackageName(content, path)

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(a.query, tree.RootNode(), content)

	captureNames := a.query.CaptureNames()

	result := parserapi.ParsedFile{Path: path, Language: "go"}
	var calls []callSite

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		names := map[string]string{}
		for _, c := range match.Captures {
			name := captureNames[c.Index]
			if strings.HasSuffix(name, ".name") || strings.HasSuffix(name, ".receiver") {
				names[name] = nodeText(c.Node, content)
			}
		}

		for _, c := range match.Captures {
			node := c.Node
			switch captureNames[c.Index] {
			case "function":
				result.Functions = append(result.Functions, parseGoFunction(node, content, pkg, names["function.name"], ""))
			case "method":
				recv := receiverTypeName(names["method.receiver"])
				result.Functions = append(result.Functions, parseGoFunction(node, content, pkg, names["method.name"], recv))
			case "type":
				result.Classes = append(result.Classes, parseGoType(node, content, pkg, names["type.name"]))
			case "import":
				result.Imports = append(result.Imports, parserapi.ParsedImport{
					Target: strings.Trim(nodeText(node, content), `"`),
				})
			case "call":
				calls = append(calls, callSite{
					name: names["call.name"],
					line: int(node.StartPosition().Row) + 1,
				})
			}
		}
	}

	attributeCalls(result.Functions, calls)
	return result, nil
}

type callSite struct {
	name string
	line int
}

// attributeCalls assigns each captured call expression to the function
// whose [LineStart, LineEnd] contains it. Nested functions (closures
// assigned to a func_literal, which this query does not capture as
// functions) simply attribute their calls to the enclosing named
// function, which is the resolution the builder's call graph wants.
func attributeCalls(fns []parserapi.ParsedFunction, calls []callSite) {
	for _, call := range calls {
		var best *parserapi.ParsedFunction
		for i := range fns {
			fn := &fns[i]
			if call.line < fn.LineStart || call.line > fn.LineEnd {
				continue
			}
			if best == nil || (fn.LineEnd-fn.LineStart) < (best.LineEnd-best.LineStart) {
				best = fn
			}
		}
		if best != nil {
			best.Calls = append(best.Calls, call.name)
		}
	}
}

func parseGoFunction(node tree_sitter.Node, content []byte, pkg, name, receiver string) parserapi.ParsedFunction {
	qualified := name
	if receiver != "" {
		qualified = receiver + "." + name
	}
	if pkg != "" {
		qualified = pkg + "." + qualified
	}
	return parserapi.ParsedFunction{
		Name:          name,
		QualifiedName: qualified,
		LineStart:     int(node.StartPosition().Row) + 1,
		LineEnd:       int(node.EndPosition().Row) + 1,
		Properties: map[string]any{
			"receiver": receiver,
		},
	}
}

func parseGoType(node tree_sitter.Node, content []byte, pkg, name string) parserapi.ParsedClass {
	qualified := name
	if pkg != "" {
		qualified = pkg + "." + name
	}
	return parserapi.ParsedClass{
		Name:          name,
		QualifiedName: qualified,
		LineStart:     int(node.StartPosition().Row) + 1,
		LineEnd:       int(node.EndPosition().Row) + 1,
	}
}

func nodeText(node tree_sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// receiverTypeName strips a pointer receiver's leading "*" so "*Foo" and
// "Foo" both qualify their methods as "Foo.Method".
func receiverTypeName(recv string) string {
	return strings.TrimPrefix(strings.TrimSpace(recv), "*")
}

// goPackageName scans the file for its package clause; it never needs the
// full parse tree since the package name is always the first non-comment
// token, and a plain text search is the same shortcut the teacher takes
// for similarly cheap, always-present file headers.
func goPackageName(content []byte, path string) string {
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "package"))
		}
	}
	return ""
}
