package analyzer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

// GoAnalyzer implements Analyzer for .go source using the tree-sitter-go
// grammar. One GoAnalyzer allocates its own *tree_sitter.Parser per call to
// Analyze so the Analyzer itself stays stateless and safe to share across
// goroutines, matching the "pure function of its inputs" contract of
// spec §4.E.
type GoAnalyzer struct{}

// NewGoAnalyzer builds a GoAnalyzer.
func NewGoAnalyzer() *GoAnalyzer { return &GoAnalyzer{} }

func (GoAnalyzer) SupportedExtensions() []string { return []string{".go"} }

func (GoAnalyzer) Analyze(source []byte, filePath string) (Result, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	lang := tree_sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(lang); err != nil {
		return Result{}, &Error{File: filePath, Reason: "set language: " + err.Error()}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return Result{}, &Error{File: filePath, Reason: "parse returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return Result{}, &Error{File: filePath, Reason: "empty root node"}
	}

	pkgName := filePath
	var out Result

	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "package_clause":
			if id := node.NamedChild(0); id != nil {
				pkgName = text(id, source)
			}
		case "import_declaration":
			out.Imports = append(out.Imports, extractImports(node, source, pkgName)...)
		case "function_declaration":
			fn := extractFunction(node, source, pkgName, filePath)
			out.Functions = append(out.Functions, fn)
			out.Calls = append(out.Calls, extractCalls(node, source, pkgName, fn.Name, fn.Arity)...)
		case "method_declaration":
			fn := extractMethod(node, source, pkgName, filePath)
			out.Functions = append(out.Functions, fn)
			out.Calls = append(out.Calls, extractCalls(node, source, pkgName, fn.Name, fn.Arity)...)
		case "type_declaration":
			out.Modules = append(out.Modules, extractTypeDecl(node, source, pkgName, filePath)...)
		}
	}

	out.Modules = append([]ModuleRecord{{Name: pkgName, File: filePath, Line: 1}}, out.Modules...)
	return out, nil
}

func text(n *tree_sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

func line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func leadingDoc(n *tree_sitter.Node, source []byte) string {
	prev := n.PrevSibling()
	var lines []string
	for prev != nil && prev.Kind() == "comment" {
		lines = append([]string{strings.TrimPrefix(strings.TrimPrefix(text(prev, source), "//"), " ")}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.Join(lines, "\n")
}

func visibilityOf(name string) Visibility {
	if name == "" {
		return VisibilityUnknown
	}
	r := []rune(name)[0]
	if r >= 'A' && r <= 'Z' {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

func countParams(n *tree_sitter.Node) int {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < params.NamedChildCount(); i++ {
		if params.NamedChild(i).Kind() == "parameter_declaration" {
			count++
		}
	}
	return count
}

func extractFunction(n *tree_sitter.Node, source []byte, module, file string) FunctionRecord {
	name := ""
	if id := n.ChildByFieldName("name"); id != nil {
		name = text(id, source)
	}
	return FunctionRecord{
		Name:       name,
		Arity:      countParams(n),
		Module:     module,
		File:       file,
		Line:       line(n),
		Doc:        leadingDoc(n, source),
		Visibility: visibilityOf(name),
	}
}

func extractMethod(n *tree_sitter.Node, source []byte, module, file string) FunctionRecord {
	fn := extractFunction(n, source, module, file)
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		fn.Metadata = map[string]any{"receiver": text(recv, source)}
	}
	return fn
}

func extractTypeDecl(n *tree_sitter.Node, source []byte, module, file string) []ModuleRecord {
	var out []ModuleRecord
	for i := uint(0); i < n.NamedChildCount(); i++ {
		spec := n.NamedChild(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := text(nameNode, source)
		out = append(out, ModuleRecord{
			Name: module + "." + name,
			File: file,
			Line: line(spec),
			Doc:  leadingDoc(n, source),
			Metadata: map[string]any{
				"kind":   "type",
				"module": module,
			},
		})
	}
	return out
}

func extractImports(n *tree_sitter.Node, source []byte, module string) []ImportRecord {
	var out []ImportRecord
	var walk func(*tree_sitter.Node)
	walk = func(node *tree_sitter.Node) {
		if node.Kind() == "import_spec" {
			if p := node.ChildByFieldName("path"); p != nil {
				target := strings.Trim(text(p, source), `"`)
				out = append(out, ImportRecord{FromModule: module, ToModule: target, Kind: ImportKindImport})
			}
			return
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(n)
	return out
}

// extractCalls walks a function or method body, recording every
// call_expression site. A selector call (pkg.Fn(...)) attributes ToModule
// to the selector's operand text; a bare call (fn(...)) attributes it to
// the enclosing module since same-package calls carry no qualifier.
func extractCalls(n *tree_sitter.Node, source []byte, module, fromFunc string, fromArity int) []CallRecord {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []CallRecord
	var walk func(*tree_sitter.Node)
	walk = func(node *tree_sitter.Node) {
		if node.Kind() == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				toModule, toName := resolveCallee(fn, source, module)
				out = append(out, CallRecord{
					FromModule:   module,
					FromFunction: fromFunc,
					FromArity:    fromArity,
					ToModule:     toModule,
					ToFunction:   toName,
					Line:         line(node),
				})
			}
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(body)
	return out
}

func resolveCallee(fn *tree_sitter.Node, source []byte, module string) (string, string) {
	switch fn.Kind() {
	case "selector_expression":
		operand := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		if operand != nil && field != nil {
			return text(operand, source), text(field, source)
		}
	case "identifier":
		return module, text(fn, source)
	}
	return module, text(fn, source)
}
