package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/report"
)

// promptMessage is shown when no prompt argument is given.
const promptMessage = "📝 Enter feature prompt (e.g. 'taskwait codegen'): "

// analyzer is the part of impact.Analyzer the commands use.
type analyzer interface {
	Analyze(ctx context.Context, prompt string, verify bool) (*report.Report, error)
	Batch(ctx context.Context, prompts []string, fn func(prompt string, pred *predict.Prediction, err error) error) error
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	// Batch mode only predicts, but the token check stays first so a misconfigured
	// environment is reported before the model is loaded.
	token, err := githubToken()
	if err != nil && !noVerify {
		return err
	}
	if noVerify || batch {
		token = ""
	}

	progress := newVerifyProgress(cfg.Output.Quiet || cfg.Output.Format == report.FormatJSON, cmd.ErrOrStderr())
	p, err := buildPipeline(ctx, cfg, token, progress.Update)
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	if batch {
		return runBatch(ctx, p.analyzer, predict.BatchPrompts, out)
	}

	var prompt string
	if len(args) > 0 {
		prompt = args[0]
	} else {
		prompt, err = readPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	return runPrompt(ctx, p.analyzer, prompt, !noVerify, cfg.Output.Format, out, progress)
}

// runPrompt analyzes one prompt and renders the report.
func runPrompt(ctx context.Context, a analyzer, prompt string, verify bool, format string, out io.Writer, progress *verifyProgress) error {
	r, err := a.Analyze(ctx, prompt, verify)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}
	return report.Write(out, r, format)
}

// runBatch predicts every prompt and prints the predictions. A failing prompt is reported inline
// and does not stop the batch.
func runBatch(ctx context.Context, a analyzer, prompts []string, out io.Writer) error {
	return a.Batch(ctx, prompts, func(prompt string, pred *predict.Prediction, err error) error {
		if err != nil {
			_, werr := fmt.Fprintf(out, "\n🧠 Prompt: %s\n  ⚠️  %v\n", prompt, err)
			return werr
		}
		return report.WriteBatch(out, pred)
	})
}

// readPrompt asks for a prompt on w and reads one line from r.
func readPrompt(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, promptMessage)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}

	prompt := strings.TrimSpace(line)
	if prompt == "" {
		return "", predict.ErrEmptyPrompt
	}
	return prompt, nil
}
