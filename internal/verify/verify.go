// Package verify checks predicted symbols against the real sources.
//
// For each predicted file the Verifier downloads the file, stages it in a temporary directory,
// parses it with a front-end and keeps the declarations whose names contain one of the
// function names predicted for that file.
package verify

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/mvp-joe/omp-impact/internal/frontend"
	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/source"
)

// DefaultSources are the file patterns worth handing to a C/C++ front-end.
var DefaultSources = []string{
	"**/*.cpp",
	"**/*.cc",
	"**/*.cxx",
	"**/*.c",
	"**/*.h",
	"**/*.hpp",
	"**/*.inc",
	"**/*.def",
}

// Match is a discovered symbol that matched a predicted name.
type Match struct {
	frontend.Symbol

	// Confirmed is set when "file::name" is itself one of the predicted entries.
	Confirmed bool `json:"confirmed"`
}

// FileResult is the outcome for one predicted file.
type FileResult struct {
	Path    string  `json:"path"`
	Matches []Match `json:"matches"`

	// Skipped is set for files that do not match the source patterns.
	Skipped bool `json:"skipped,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func(done, total int, file string)

// Options configures a Verifier.
type Options struct {
	// Sources are glob patterns (matched against the repository path) of files to parse. Empty
	// uses DefaultSources.
	Sources []string

	// TempRoot is the parent of the per-run staging directory. Empty uses the OS default.
	TempRoot string

	Logger   *zap.Logger
	Progress ProgressFunc
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Verifier runs the fetch/parse/match loop.
type Verifier struct {
	fetcher  source.Fetcher
	frontend frontend.Frontend
	sources  []compiledPattern
	tempRoot string
	logger   *zap.Logger
	progress ProgressFunc
}

// New creates a Verifier.
func New(fetcher source.Fetcher, fe frontend.Frontend, opts Options) (*Verifier, error) {
	patterns := opts.Sources
	if len(patterns) == 0 {
		patterns = DefaultSources
	}

	v := &Verifier{
		fetcher:  fetcher,
		frontend: fe,
		tempRoot: opts.TempRoot,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		v.sources = append(v.sources, compiledPattern{pattern: pattern, glob: g})
	}

	return v, nil
}

// Run verifies files against the predicted entries. Failures on a single file are recorded on
// its FileResult and do not stop the loop. The staging directory is removed before returning.
// A non-nil error is only returned when staging is impossible or ctx is cancelled; the results
// gathered so far are returned alongside it.
func (v *Verifier) Run(ctx context.Context, files, entries []string) (map[string]*FileResult, error) {
	expected := ExpectedNames(entries)
	confirmed := make(map[string]bool, len(entries))
	for _, e := range entries {
		confirmed[e] = true
	}

	results := make(map[string]*FileResult, len(files))

	stage, err := os.MkdirTemp(v.tempRoot, "omp-impact-")
	if err != nil {
		return results, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stage); err != nil {
			v.logger.Warn("failed to remove staging directory", zap.String("dir", stage), zap.Error(err))
		}
	}()

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := &FileResult{Path: file, Matches: []Match{}}
		results[file] = result

		if !v.isSource(file) {
			result.Skipped = true
			v.logger.Debug("skipping non-source file", zap.String("file", file))
		} else if err := v.verifyFile(ctx, stage, i, file, expected[file], confirmed, result); err != nil {
			result.Err = err
			result.Error = err.Error()
			v.logger.Warn("verification failed", zap.String("file", file), zap.Error(err))
		}

		if v.progress != nil {
			v.progress(i+1, len(files), file)
		}
	}

	return results, nil
}

func (v *Verifier) verifyFile(ctx context.Context, stage string, index int, file string, names map[string]bool, confirmed map[string]bool, result *FileResult) error {
	content, err := v.fetcher.Fetch(ctx, file)
	if err != nil {
		return err
	}

	dir := filepath.Join(stage, strconv.Itoa(index))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to stage %s: %w", file, err)
	}
	local := filepath.Join(dir, path.Base(file))
	if err := os.WriteFile(local, content, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", file, err)
	}

	symbols, err := v.frontend.ParseFile(ctx, local)
	if err != nil {
		return fmt.Errorf("%s parse failed: %w", v.frontend.Name(), err)
	}

	for _, sym := range symbols {
		if !containsAny(sym.Name, names) {
			continue
		}
		result.Matches = append(result.Matches, Match{
			Symbol:    sym,
			Confirmed: confirmed[predict.JoinEntry(file, sym.Name)],
		})
	}

	v.logger.Debug("verified file",
		zap.String("file", file),
		zap.Int("symbols", len(symbols)),
		zap.Int("matches", len(result.Matches)))
	return nil
}

// isSource checks file against the source patterns. Root-level paths also match patterns with
// a leading "**/" removed.
func (v *Verifier) isSource(file string) bool {
	file = strings.TrimPrefix(filepath.ToSlash(file), "/")
	for _, cp := range v.sources {
		if cp.glob.Match(file) {
			return true
		}
	}

	if !strings.Contains(file, "/") {
		for _, cp := range v.sources {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(file) {
					return true
				}
			}
		}
	}

	return false
}

// ExpectedNames groups predicted entries by file: "a.cpp::f" contributes f to the set for a.cpp.
func ExpectedNames(entries []string) map[string]map[string]bool {
	expected := make(map[string]map[string]bool)
	for _, e := range entries {
		file, name, ok := predict.SplitEntry(e)
		if !ok || name == "" {
			continue
		}
		if expected[file] == nil {
			expected[file] = make(map[string]bool)
		}
		expected[file][name] = true
	}
	return expected
}

func containsAny(name string, expected map[string]bool) bool {
	for want := range expected {
		if strings.Contains(name, want) {
			return true
		}
	}
	return false
}
