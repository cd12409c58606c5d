package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ClangTimeout bounds a single clang invocation.
const ClangTimeout = 2 * time.Minute

// clangFrontend runs "clang -fsyntax-only -Xclang -ast-dump=json" and reads declarations out of
// the dumped AST.
type clangFrontend struct {
	binary  string
	timeout time.Duration
}

// NewClang creates a front-end backed by the clang executable at binary.
func NewClang(binary string) Frontend {
	return &clangFrontend{binary: binary, timeout: ClangTimeout}
}

func (f *clangFrontend) Name() string {
	return Clang
}

// ParseFile runs clang on path. Diagnostics (missing headers in particular) do not fail the
// parse as long as clang still produced an AST.
func (f *clangFrontend) ParseFile(ctx context.Context, path string) ([]Symbol, error) {
	execCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, f.binary, clangArgs(path)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("clang timed out after %s on %s", f.timeout, path)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stdout.Len() == 0 {
			if stderr.Len() > 0 {
				return nil, fmt.Errorf("clang error: %s", strings.TrimSpace(stderr.String()))
			}
			return nil, fmt.Errorf("clang execution failed: %w", runErr)
		}
	}

	symbols, err := parseClangAST(stdout.Bytes(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clang output: %w", err)
	}
	return symbols, nil
}

func clangArgs(path string) []string {
	args := []string{"-fsyntax-only", "-Xclang", "-ast-dump=json"}
	if strings.ToLower(filepath.Ext(path)) == ".c" {
		args = append(args, "-x", "c")
	} else {
		args = append(args, "-x", "c++", "-std=c++17")
	}
	return append(args, path)
}

// astLoc is a source location in clang's JSON dump. The dump omits "file" and "line" when they
// repeat the previously printed location, so values only make sense when read in order.
type astLoc struct {
	File         string  `json:"file"`
	Line         int     `json:"line"`
	SpellingLoc  *astLoc `json:"spellingLoc"`
	ExpansionLoc *astLoc `json:"expansionLoc"`
}

type astRange struct {
	Begin astLoc `json:"begin"`
	End   astLoc `json:"end"`
}

type astNode struct {
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	Loc        astLoc    `json:"loc"`
	Range      astRange  `json:"range"`
	IsImplicit bool      `json:"isImplicit"`
	TagUsed    string    `json:"tagUsed"`
	Inner      []astNode `json:"inner"`
}

// locTracker replays clang's location de-duplication.
type locTracker struct {
	file string
	line int
}

// apply folds l into the tracker and returns the resulting position. Macro locations resolve to
// their expansion point.
func (t *locTracker) apply(l astLoc) (string, int) {
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		if l.SpellingLoc != nil {
			t.apply(*l.SpellingLoc)
		}
		if l.ExpansionLoc != nil {
			return t.apply(*l.ExpansionLoc)
		}
		return t.file, t.line
	}
	if l.File != "" {
		t.file = l.File
	}
	if l.Line != 0 {
		t.line = l.Line
	}
	return t.file, t.line
}

// parseClangAST extracts declarations located in mainFile from a JSON AST dump.
func parseClangAST(data []byte, mainFile string) ([]Symbol, error) {
	var root astNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	main := filepath.Clean(mainFile)
	tracker := &locTracker{}
	var symbols []Symbol

	var visit func(n *astNode)
	visit = func(n *astNode) {
		file, line := tracker.apply(n.Loc)
		tracker.apply(n.Range.Begin)
		tracker.apply(n.Range.End)

		if !n.IsImplicit && n.Name != "" && file != "" && filepath.Clean(file) == main {
			if kind, ok := clangKind(n); ok {
				symbols = append(symbols, Symbol{Name: n.Name, Line: line, Kind: kind})
			}
		}

		for i := range n.Inner {
			visit(&n.Inner[i])
		}
	}
	visit(&root)

	return symbols, nil
}

func clangKind(n *astNode) (Kind, bool) {
	switch n.Kind {
	case "FunctionDecl":
		return KindFunction, true
	case "CXXMethodDecl":
		return KindMethod, true
	case "CXXConstructorDecl":
		return KindConstructor, true
	case "CXXRecordDecl", "RecordDecl":
		switch n.TagUsed {
		case "class":
			return KindClass, true
		case "struct":
			return KindStruct, true
		}
	case "EnumDecl":
		return KindEnum, true
	}
	return "", false
}
