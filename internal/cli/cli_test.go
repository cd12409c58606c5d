package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/omp-impact/internal/config"
	"github.com/mvp-joe/omp-impact/internal/frontend"
	"github.com/mvp-joe/omp-impact/internal/impact"
	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/report"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// Test Plan for the CLI:
// - readPrompt prints the prompt message, trims the line and rejects blank input
// - applyFlags only overrides values for flags that were set; --libclang selects clang
// - githubToken requires GITHUB_TOKEN
// - runPrompt renders text and JSON reports
// - runBatch prints every prompt and reports failures inline
// - verifyProgress draws to its writer unless quiet
// - the root command fails fast without a token
// - version prints build information

type fakeRunner struct{}

func (fakeRunner) Run(ctx context.Context, files, entries []string) (map[string]*verify.FileResult, error) {
	results := make(map[string]*verify.FileResult)
	for _, f := range files {
		results[f] = &verify.FileResult{Path: f, Matches: []verify.Match{}}
	}
	results["clang/lib/CodeGen/CGStmtOpenMP.cpp"].Matches = []verify.Match{
		{Symbol: frontend.Symbol{Name: "EmitOMPTaskwaitDirective", Line: 5197, Kind: frontend.KindMethod}, Confirmed: true},
	}
	return results, nil
}

func newTestAnalyzer(t *testing.T) *impact.Analyzer {
	t.Helper()
	mock := predict.NewMockPredictor("clang/lib/CodeGen/CGStmtOpenMP.cpp::EmitOMPTaskwaitDirective, clang/lib/Sema/SemaOpenMP.cpp::ActOnOpenMPTaskwaitDirective")
	mock.Outputs["masked parse ast"] = "no separators here"
	require.NoError(t, mock.Initialize(context.Background()))
	return impact.New(mock, impact.Options{Runner: fakeRunner{}, Repo: "llvm/llvm-project"})
}

func TestReadPrompt(t *testing.T) {
	t.Parallel()

	var prompt bytes.Buffer
	got, err := readPrompt(strings.NewReader("  taskwait codegen \nignored\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "taskwait codegen", got)
	assert.Equal(t, promptMessage, prompt.String())

	got, err = readPrompt(strings.NewReader("atomic sema"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "atomic sema", got)

	_, err = readPrompt(strings.NewReader("\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, predict.ErrEmptyPrompt)
}

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&modelPath, "model", "", "")
	fs.StringVar(&clangPath, "libclang", "", "")
	fs.StringVar(&repo, "repo", "", "")
	fs.StringVar(&ref, "ref", "", "")
	fs.StringVar(&frontendKind, "frontend", "", "")
	fs.StringVar(&format, "format", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(newTestFlags(t), cfg)
	assert.Equal(t, config.Default(), cfg, "no flags set leaves config untouched")

	cfg = config.Default()
	applyFlags(newTestFlags(t,
		"--model", "/models/omp_t5",
		"--repo", "my-org/llvm-fork",
		"--ref", "release/18.x",
		"--format", "JSON",
		"--quiet",
	), cfg)
	assert.Equal(t, "/models/omp_t5", cfg.Model.Path)
	assert.Equal(t, "my-org/llvm-fork", cfg.Source.Repo)
	assert.Equal(t, "release/18.x", cfg.Source.Ref)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Output.Quiet)
	assert.Equal(t, frontend.TreeSitter, cfg.Frontend.Kind)

	cfg = config.Default()
	applyFlags(newTestFlags(t, "--libclang", "/usr/lib/llvm-18/lib/libclang.so"), cfg)
	assert.Equal(t, frontend.Clang, cfg.Frontend.Kind)
	assert.Equal(t, "/usr/lib/llvm-18/lib/libclang.so", cfg.Frontend.ClangPath)

	cfg = config.Default()
	applyFlags(newTestFlags(t, "--libclang", "/opt/llvm", "--frontend", "TreeSitter"), cfg)
	assert.Equal(t, frontend.TreeSitter, cfg.Frontend.Kind)
}

func TestGithubToken(t *testing.T) {
	t.Setenv(TokenEnv, "  ghp_example  ")
	token, err := githubToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_example", token)

	t.Setenv(TokenEnv, "")
	_, err = githubToken()
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRunPrompt_Text(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runPrompt(context.Background(), newTestAnalyzer(t), "taskwait codegen", true, report.FormatText, &out, nil)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "🔮 Predicted Files:\n  • clang/lib/CodeGen/CGStmtOpenMP.cpp\n  • clang/lib/Sema/SemaOpenMP.cpp\n")
	assert.Contains(t, text, "🧩 AST Match Results:")
	assert.Contains(t, text, "  ✅ EmitOMPTaskwaitDirective @ line 5197\n")
	assert.Contains(t, text, "📄 clang/lib/Sema/SemaOpenMP.cpp:\n  no matching symbols\n")
}

func TestRunPrompt_JSONWithoutVerify(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runPrompt(context.Background(), newTestAnalyzer(t), "taskwait codegen", false, report.FormatJSON, &out, newVerifyProgress(true, &bytes.Buffer{}))
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"run_id"`)
	assert.Contains(t, out.String(), `"verified": false`)
	assert.NotContains(t, out.String(), `"results"`)
}

func TestRunPrompt_Error(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runPrompt(context.Background(), newTestAnalyzer(t), " ", true, report.FormatText, &out, nil)
	assert.ErrorIs(t, err, predict.ErrEmptyPrompt)
	assert.Empty(t, out.String())
}

func TestRunBatch(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runBatch(context.Background(), newTestAnalyzer(t), []string{"taskwait codegen", "masked parse ast", ""}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "🧠 Prompt:"))
	assert.Contains(t, text, "\n🧠 Prompt: taskwait codegen\n  📁 Predicted Files:\n    • clang/lib/CodeGen/CGStmtOpenMP.cpp\n")
	assert.Contains(t, text, "\n🧠 Prompt: masked parse ast\n  📁 Predicted Files:\n  🔧 Predicted Functions:\n")
	assert.Contains(t, text, "⚠️  prompt is empty")
	assert.NotContains(t, text, "AST Match Results")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunBatch_WriteError(t *testing.T) {
	t.Parallel()

	err := runBatch(context.Background(), newTestAnalyzer(t), predict.BatchPrompts, failingWriter{})
	assert.Error(t, err)
}

func TestVerifyProgress(t *testing.T) {
	t.Parallel()

	var quietOut bytes.Buffer
	q := newVerifyProgress(true, &quietOut)
	q.Update(1, 2, "a.cpp")
	q.Finish()
	assert.Empty(t, quietOut.String())

	var out bytes.Buffer
	p := newVerifyProgress(false, &out)
	p.Update(1, 2, "clang/lib/CodeGen/CGStmtOpenMP.cpp")
	p.Update(2, 2, "clang/lib/Sema/SemaOpenMP.cpp")
	p.Finish()
	assert.NotEmpty(t, out.String())
	assert.Nil(t, p.bar)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	l, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1), "debug disabled by default")

	l, err = newLogger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestRootCommand_MissingToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"taskwait codegen"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "omp-impact dev")
	assert.Contains(t, out.String(), "Git commit: none")
}
