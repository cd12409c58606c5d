// Package impact ties prediction, verification and reporting into one pipeline.
package impact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/report"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// ErrVerificationUnavailable is returned when verification is requested from an Analyzer that
// was built without a Verifier.
var ErrVerificationUnavailable = errors.New("verification is not configured")

// Runner runs the fetch/parse/match loop; *verify.Verifier implements it.
type Runner interface {
	Run(ctx context.Context, files, entries []string) (map[string]*verify.FileResult, error)
}

// Analyzer predicts impacted code for a prompt and optionally verifies the prediction.
type Analyzer struct {
	predictor predict.Predictor
	runner    Runner
	repo      string
	frontend  string
	logger    *zap.Logger
}

// Options configures an Analyzer.
type Options struct {
	// Runner verifies predictions. Nil disables verification.
	Runner Runner

	// Repo and Frontend are recorded on reports.
	Repo     string
	Frontend string

	Logger *zap.Logger
}

// New creates an Analyzer around an initialized predictor.
func New(p predict.Predictor, opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		predictor: p,
		runner:    opts.Runner,
		repo:      opts.Repo,
		frontend:  opts.Frontend,
		logger:    logger,
	}
}

// CanVerify reports whether Analyze can verify predictions.
func (a *Analyzer) CanVerify() bool {
	return a.runner != nil
}

// Analyze runs inference for prompt and, when verify is set, checks the predicted files.
func (a *Analyzer) Analyze(ctx context.Context, prompt string, verify bool) (*report.Report, error) {
	pred, err := predict.Predict(ctx, a.predictor, prompt)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("prediction",
		zap.String("prompt", pred.Prompt),
		zap.String("raw", pred.Raw),
		zap.Int("files", len(pred.Files)),
		zap.Int("entries", len(pred.Entries)))

	r := report.New(pred)
	r.Repo = a.repo
	r.Frontend = a.frontend

	if !verify {
		return r, nil
	}
	if a.runner == nil {
		return nil, ErrVerificationUnavailable
	}

	results, err := a.runner.Run(ctx, pred.Files, pred.Entries)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	r.Attach(results)
	return r, nil
}

// Batch predicts each prompt in turn and hands the result to fn. A failed prompt is passed to fn
// with its error and the batch continues; an error returned by fn stops it.
func (a *Analyzer) Batch(ctx context.Context, prompts []string, fn func(prompt string, pred *predict.Prediction, err error) error) error {
	for _, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return err
		}
		pred, err := predict.Predict(ctx, a.predictor, prompt)
		if err != nil {
			a.logger.Warn("batch prompt failed", zap.String("prompt", prompt), zap.Error(err))
		}
		if err := fn(prompt, pred, err); err != nil {
			return err
		}
	}
	return nil
}
