package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the tree-sitter front-end:
// - Records classes, structs and enums with the line of their name
// - In-class declarations and definitions are methods, or constructors when named after the class
// - Out-of-line Class::name definitions are methods, Class::Class is a constructor
// - namespace::name definitions stay free functions, including namespaces the file never opens
// - Qualifiers naming a class declared in the file are methods whatever their spelling
// - Elaborated type uses ("struct Foo *p") are not declarations
// - Forward declarations are recorded
// - .c files are parsed with the C grammar
// - Missing files and cancelled contexts fail

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "testdata", "cpp", name))
	require.NoError(t, err)
	return path
}

func TestTreeSitter_CppFile(t *testing.T) {
	t.Parallel()

	fe := NewTreeSitter()
	assert.Equal(t, TreeSitter, fe.Name())

	symbols, err := fe.ParseFile(context.Background(), testdataPath(t, "openmp_runtime.cpp"))
	require.NoError(t, err)

	expected := []Symbol{
		{Name: "OpenMPDirectiveKind", Line: 5, Kind: KindEnum},
		{Name: "TaskwaitInfo", Line: 10, Kind: KindStruct},
		{Name: "CGOpenMPRuntime", Line: 14, Kind: KindClass},
		{Name: "CGOpenMPRuntime", Line: 16, Kind: KindConstructor},
		{Name: "emitTaskwaitCall", Line: 17, Kind: KindMethod},
		{Name: "isTaskwait", Line: 18, Kind: KindMethod},
		{Name: "Forward", Line: 21, Kind: KindClass},
		{Name: "CGOpenMPRuntime", Line: 23, Kind: KindConstructor},
		{Name: "emitTaskwaitCall", Line: 25, Kind: KindMethod},
		{Name: "emitBarrier", Line: 30, Kind: KindFunction},
		{Name: "ActOnOpenMPTaskwaitDirective", Line: 33, Kind: KindMethod},
		{Name: "helperFunction", Line: 39, Kind: KindFunction},
	}
	for _, want := range expected {
		assert.Contains(t, symbols, want)
	}

	for _, s := range symbols {
		if s.Name == "TaskwaitInfo" {
			assert.Equal(t, 10, s.Line, "elaborated use of TaskwaitInfo must not be reported")
		}
	}
}

func TestTreeSitter_CFile(t *testing.T) {
	t.Parallel()

	symbols, err := NewTreeSitter().ParseFile(context.Background(), testdataPath(t, "runtime.c"))
	require.NoError(t, err)

	assert.Contains(t, symbols, Symbol{Name: "kmp_task", Line: 3, Kind: KindStruct})
	assert.Contains(t, symbols, Symbol{Name: "sched_type", Line: 7, Kind: KindEnum})
	assert.Contains(t, symbols, Symbol{Name: "__kmpc_omp_taskwait", Line: 11, Kind: KindFunction})
	assert.Contains(t, symbols, Symbol{Name: "__kmpc_barrier", Line: 15, Kind: KindFunction})

	for _, s := range symbols {
		assert.NotEqual(t, KindMethod, s.Kind, "C has no methods: %+v", s)
	}
}

func TestTreeSitter_InlineSource(t *testing.T) {
	t.Parallel()

	src := `template <typename T>
class Stack {
public:
  Stack();
  ~Stack();
  void push(const T &v);
};

namespace llvm {
namespace omp {
void lowerTaskgroup();
}
}

void llvm::omp::lowerTaskgroup() {}
`
	path := filepath.Join(t.TempDir(), "stack.h")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	symbols, err := NewTreeSitter().ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, symbols, Symbol{Name: "Stack", Line: 2, Kind: KindClass})
	assert.Contains(t, symbols, Symbol{Name: "Stack", Line: 4, Kind: KindConstructor})
	assert.Contains(t, symbols, Symbol{Name: "push", Line: 6, Kind: KindMethod})
	assert.Contains(t, symbols, Symbol{Name: "lowerTaskgroup", Line: 11, Kind: KindFunction})
	assert.Contains(t, symbols, Symbol{Name: "lowerTaskgroup", Line: 15, Kind: KindFunction})

	for _, s := range symbols {
		assert.NotContains(t, s.Name, "~", "destructors are not reported")
	}
}

func TestTreeSitter_OutOfLineScopes(t *testing.T) {
	t.Parallel()

	src := `#include "llvm/Support/Foo.h"

struct kmp_team {
  void fork();
};

void llvm::foo(int) {}

void kmp_team::fork() {}

StmtResult Sema::ActOnOpenMPBarrierDirective() { return StmtResult(); }
`
	path := filepath.Join(t.TempDir(), "scopes.cpp")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	symbols, err := NewTreeSitter().ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, symbols, Symbol{Name: "foo", Line: 7, Kind: KindFunction})
	assert.Contains(t, symbols, Symbol{Name: "fork", Line: 9, Kind: KindMethod})
	assert.Contains(t, symbols, Symbol{Name: "ActOnOpenMPBarrierDirective", Line: 11, Kind: KindMethod})
}

func TestTreeSitter_Errors(t *testing.T) {
	t.Parallel()

	fe := NewTreeSitter()

	_, err := fe.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.cpp"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fe.ParseFile(ctx, testdataPath(t, "openmp_runtime.cpp"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	t.Parallel()

	fe, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, TreeSitter, fe.Name())

	fe, err = New(TreeSitter, "")
	require.NoError(t, err)
	assert.Equal(t, TreeSitter, fe.Name())

	_, err = New("libclang-python", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported front-end")

	_, err = New(Clang, filepath.Join(t.TempDir(), "nowhere", "clang"))
	assert.ErrorIs(t, err, ErrClangNotFound)
}
