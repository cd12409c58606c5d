package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool

	modelPath    string
	clangPath    string
	repo         string
	ref          string
	frontendKind string
	quiet        bool

	batch    bool
	format   string
	noVerify bool

	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "omp-impact [prompt]",
	Short: "Predict the code a compiler feature touches and confirm it against the sources",
	Long: `omp-impact asks a fine-tuned seq2seq model which files and functions a feature
prompt such as "taskwait codegen" affects, then downloads the predicted files from
GitHub and parses them to confirm the predicted symbols exist.

Without a prompt argument, one line is read from standard input.

Examples:
  omp-impact "taskwait codegen"
  omp-impact --frontend clang --libclang /usr/lib/llvm-18/lib/libclang.so "atomic sema"
  omp-impact --batch
  echo "ordered flush" | omp-impact --format json`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .omp-impact/config.yml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&modelPath, "model", "", "path to the fine-tuned model directory (default ./omp_t5_model)")
	pf.StringVar(&clangPath, "libclang", "", "clang executable, libclang library or LLVM directory; selects the clang front-end")
	pf.StringVar(&repo, "repo", "", "GitHub repository to verify against (default llvm/llvm-project)")
	pf.StringVar(&ref, "ref", "", "branch, tag or commit to verify against (default: repository default branch)")
	pf.StringVar(&frontendKind, "frontend", "", "C/C++ front-end: treesitter or clang")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	// Root-only flags
	f := rootCmd.Flags()
	f.BoolVar(&batch, "batch", false, "run the built-in sample prompts and print predictions only")
	f.StringVar(&format, "format", "", "output format: text or json")
	f.BoolVar(&noVerify, "no-verify", false, "print predictions without downloading or parsing files")
}

// setupLogging loads .env and builds the logger shared by every command.
func setupLogging(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	l, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

// newLogger writes human-readable logs to stderr so stdout stays reserved for reports and MCP.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Sampling = nil
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
