package frontend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// treeSitterFrontend parses C and C++ in-process with tree-sitter grammars.
type treeSitterFrontend struct {
	cpp *sitter.Language
	c   *sitter.Language
}

// NewTreeSitter creates the tree-sitter front-end. The C grammar is used for .c files and the
// C++ grammar for everything else.
func NewTreeSitter() Frontend {
	return &treeSitterFrontend{
		cpp: sitter.NewLanguage(cpp.Language()),
		c:   sitter.NewLanguage(c.Language()),
	}
}

func (f *treeSitterFrontend) Name() string {
	return TreeSitter
}

// ParseFile reads and parses a file on disk.
func (f *treeSitterFrontend) ParseFile(ctx context.Context, path string) ([]Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.parseSource(path, source)
}

func (f *treeSitterFrontend) parseSource(path string, source []byte) ([]Symbol, error) {
	lang := f.cpp
	if strings.ToLower(filepath.Ext(path)) == ".c" {
		lang = f.c
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	namespaces, records := collectScopes(root, source)
	x := &symbolExtractor{
		source:     source,
		namespaces: namespaces,
		records:    records,
	}
	walkTree(root, x.visit)
	return x.symbols, nil
}

// symbolExtractor accumulates declarations while walking a syntax tree.
type symbolExtractor struct {
	source     []byte
	namespaces map[string]bool
	records    map[string]bool
	symbols    []Symbol
}

func (x *symbolExtractor) visit(n *sitter.Node) bool {
	switch n.Kind() {
	case "function_definition":
		if fd := unwrapFunctionDeclarator(n.ChildByFieldName("declarator")); fd != nil {
			x.addFunction(n, fd)
		}
	case "declaration", "field_declaration":
		for i := 0; i < int(n.ChildCount()); i++ {
			if fd := unwrapFunctionDeclarator(n.Child(uint(i))); fd != nil {
				x.addFunction(n, fd)
			}
		}
	case "class_specifier":
		x.addRecord(n, KindClass)
	case "struct_specifier":
		x.addRecord(n, KindStruct)
	case "enum_specifier":
		x.addRecord(n, KindEnum)
	}
	return true
}

// addFunction records a function, method or constructor named by the function_declarator fd.
func (x *symbolExtractor) addFunction(decl, fd *sitter.Node) {
	nameNode, scope := resolveDeclaratorName(fd.ChildByFieldName("declarator"), x.source)
	if nameNode == nil {
		return
	}
	name := symbolName(nameNode, x.source)
	if name == "" {
		return
	}

	kind := KindFunction
	if scope != "" {
		// Out-of-line definition such as Sema::ActOnOpenMPTaskwaitDirective.
		switch {
		case scope == name:
			kind = KindConstructor
		case !x.isNamespace(scope):
			kind = KindMethod
		}
	} else if class := enclosingClass(decl, x.source); class != "" {
		kind = KindMethod
		if class == name {
			kind = KindConstructor
		}
	}

	x.symbols = append(x.symbols, Symbol{
		Name: name,
		Line: int(nameNode.StartPosition().Row) + 1,
		Kind: kind,
	})
}

// isNamespace reports whether an out-of-line qualifier names a namespace. Namespaces opened in
// the file and classes declared in it are known. Any other scope is only visible through headers
// the front-end never sees, so it is classified by spelling: lowercase qualifiers (llvm::, omp::)
// are namespaces and capitalized ones (Sema::) are classes, matching LLVM naming.
func (x *symbolExtractor) isNamespace(scope string) bool {
	switch {
	case x.namespaces[scope]:
		return true
	case x.records[scope]:
		return false
	}
	r, _ := utf8.DecodeRuneInString(scope)
	return unicode.IsLower(r)
}

// addRecord records a class, struct or enum definition or forward declaration.
func (x *symbolExtractor) addRecord(n *sitter.Node, kind Kind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	if n.ChildByFieldName("body") == nil && !isStandaloneSpecifier(n) {
		// Elaborated type use such as "struct Foo *p", not a declaration.
		return
	}
	name := symbolName(nameNode, x.source)
	if name == "" {
		return
	}
	x.symbols = append(x.symbols, Symbol{
		Name: name,
		Line: int(nameNode.StartPosition().Row) + 1,
		Kind: kind,
	})
}

// isStandaloneSpecifier reports whether n is a forward declaration like "class Foo;".
func isStandaloneSpecifier(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "translation_unit", "declaration_list", "field_declaration_list", "template_declaration":
		return true
	case "declaration", "field_declaration":
		return parent.ChildByFieldName("declarator") == nil
	}
	return false
}

// unwrapFunctionDeclarator returns the function_declarator under n, looking through pointer and
// reference declarators. Returns nil when n does not declare a function.
func unwrapFunctionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "function_declarator":
			return n
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			inner := n.ChildByFieldName("declarator")
			if inner == nil {
				inner = findChildByKind(n, "function_declarator")
			}
			n = inner
		default:
			return nil
		}
	}
	return nil
}

// resolveDeclaratorName returns the node naming a function and, for qualified names, the
// innermost scope component ("Sema" for clang::Sema::ActOnX).
func resolveDeclaratorName(n *sitter.Node, source []byte) (*sitter.Node, string) {
	scope := ""
	for n != nil {
		switch n.Kind() {
		case "identifier", "field_identifier", "operator_name", "operator_cast":
			return n, scope
		case "template_function", "template_method":
			return n.ChildByFieldName("name"), scope
		case "qualified_identifier":
			if s := n.ChildByFieldName("scope"); s != nil {
				scope = symbolName(s, source)
			}
			n = n.ChildByFieldName("name")
		case "destructor_name":
			return nil, ""
		default:
			return nil, ""
		}
	}
	return nil, ""
}

// symbolName returns the unqualified spelling of a name node.
func symbolName(n *sitter.Node, source []byte) string {
	switch n.Kind() {
	case "qualified_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return symbolName(name, source)
		}
	case "template_type", "template_function", "template_method":
		if name := n.ChildByFieldName("name"); name != nil {
			return symbolName(name, source)
		}
	}
	return strings.TrimSpace(extractNodeText(n, source))
}

// enclosingClass returns the name of the class or struct whose body contains n, or "" when n
// is at namespace scope or is a friend declaration.
func enclosingClass(n *sitter.Node, source []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "friend_declaration", "function_definition", "compound_statement", "namespace_definition", "translation_unit":
			return ""
		case "field_declaration_list":
			owner := p.Parent()
			if owner == nil {
				return ""
			}
			if name := owner.ChildByFieldName("name"); name != nil {
				return symbolName(name, source)
			}
			return ""
		}
	}
	return ""
}

// collectScopes gathers the names of namespaces and of classes or structs declared in the file.
func collectScopes(root *sitter.Node, source []byte) (namespaces, records map[string]bool) {
	namespaces = make(map[string]bool)
	records = make(map[string]bool)
	walkTree(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "namespace_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				// Nested specifiers ("a::b") declare every component.
				for _, part := range strings.Split(extractNodeText(name, source), "::") {
					if part = strings.TrimSpace(part); part != "" {
						namespaces[part] = true
					}
				}
			}
		case "class_specifier", "struct_specifier":
			if name := n.ChildByFieldName("name"); name != nil {
				records[symbolName(name, source)] = true
			}
		}
		return true
	})
	return namespaces, records
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

// findChildByKind finds the first child node with the given kind.
func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}
