// Package frontend extracts declared symbols from C and C++ source files.
//
// Two front-ends are available: an in-process tree-sitter parser (the default) and clang,
// driven through its JSON AST dump. Both report symbol kinds with clang's cursor kind names so
// results are comparable regardless of which one produced them.
package frontend

import (
	"context"
	"fmt"
)

// Kind is the category of a declared symbol.
type Kind string

const (
	KindFunction    Kind = "FUNCTION_DECL"
	KindMethod      Kind = "CXX_METHOD"
	KindConstructor Kind = "CONSTRUCTOR"
	KindClass       Kind = "CLASS_DECL"
	KindStruct      Kind = "STRUCT_DECL"
	KindEnum        Kind = "ENUM_DECL"
)

// Symbol is one declaration found in a file.
type Symbol struct {
	Name string `json:"name"`
	Line int    `json:"line"` // 1-indexed
	Kind Kind   `json:"kind"`
}

// Frontend parses a file on disk and lists the symbols it declares.
type Frontend interface {
	// ParseFile returns declarations in document order. Partial results are returned for files
	// with syntax errors; an error means nothing usable could be produced.
	ParseFile(ctx context.Context, path string) ([]Symbol, error)

	// Name identifies the front-end in logs and reports.
	Name() string
}

const (
	TreeSitter = "treesitter"
	Clang      = "clang"
)

// New creates the front-end named kind. clangPath is only used by the clang front-end and may be
// empty to search the platform defaults.
func New(kind, clangPath string) (Frontend, error) {
	switch kind {
	case TreeSitter, "":
		return NewTreeSitter(), nil
	case Clang:
		bin, err := LocateClang(clangPath)
		if err != nil {
			return nil, err
		}
		return NewClang(bin), nil
	default:
		return nil, fmt.Errorf("unsupported front-end: %s (supported: %s, %s)", kind, TreeSitter, Clang)
	}
}
