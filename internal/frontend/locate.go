package frontend

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrClangNotFound indicates no usable clang executable could be located.
var ErrClangNotFound = errors.New("clang not found")

// LocateClang resolves the clang executable to run.
//
// hint may name a clang executable, a libclang shared library, or an LLVM install directory. For
// a library the clang next to it (or in ../bin) is used; for a directory, bin/clang inside it.
// An empty hint searches the platform's usual install locations and then PATH.
func LocateClang(hint string) (string, error) {
	if hint != "" {
		candidates := clangCandidates(hint)
		for _, c := range candidates {
			if isExecutable(c) {
				return c, nil
			}
		}
		return "", fmt.Errorf("%w at %s (tried %s)", ErrClangNotFound, hint, strings.Join(candidates, ", "))
	}

	for _, c := range defaultClangPaths() {
		if isExecutable(c) {
			return c, nil
		}
	}
	if p, err := exec.LookPath(clangExecutable()); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w: install LLVM or pass --libclang", ErrClangNotFound)
}

// clangCandidates lists the executables a hint could refer to.
func clangCandidates(hint string) []string {
	info, err := os.Stat(hint)
	if err != nil {
		return []string{hint}
	}
	if info.IsDir() {
		return []string{
			filepath.Join(hint, "bin", clangExecutable()),
			filepath.Join(hint, clangExecutable()),
		}
	}
	if isSharedLibrary(hint) {
		dir := filepath.Dir(hint)
		return []string{
			filepath.Join(dir, clangExecutable()),
			filepath.Join(dir, "..", "bin", clangExecutable()),
		}
	}
	return []string{hint}
}

func isSharedLibrary(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".dll") ||
		strings.HasSuffix(base, ".dylib") ||
		strings.HasSuffix(base, ".so") ||
		strings.Contains(base, ".so.")
}

func defaultClangPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\Program Files\LLVM\bin\clang.exe`}
	case "darwin":
		return []string{
			"/opt/homebrew/opt/llvm/bin/clang",
			"/usr/local/opt/llvm/bin/clang",
			"/usr/bin/clang",
		}
	default:
		return []string{"/usr/bin/clang", "/usr/local/bin/clang"}
	}
}

func clangExecutable() string {
	if runtime.GOOS == "windows" {
		return "clang.exe"
	}
	return "clang"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0111 != 0
}
