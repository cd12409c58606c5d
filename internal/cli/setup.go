package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mvp-joe/omp-impact/internal/config"
	"github.com/mvp-joe/omp-impact/internal/frontend"
	"github.com/mvp-joe/omp-impact/internal/impact"
	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/source"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// TokenEnv names the environment variable holding the GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// ErrMissingToken is returned when verification is needed and no GitHub token is set.
var ErrMissingToken = errors.New("GitHub token is required: set " + TokenEnv + " or add it to .env")

// loadConfig reads the config file and environment, then applies command-line flags.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applyFlags(flags, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides configuration values with flags the user actually set.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("model") {
		cfg.Model.Path = modelPath
	}
	if flags.Changed("repo") {
		cfg.Source.Repo = repo
	}
	if flags.Changed("ref") {
		cfg.Source.Ref = ref
	}
	if flags.Changed("libclang") {
		cfg.Frontend.ClangPath = clangPath
		if !flags.Changed("frontend") {
			cfg.Frontend.Kind = frontend.Clang
		}
	}
	if flags.Changed("frontend") {
		cfg.Frontend.Kind = frontendKind
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("quiet") {
		cfg.Output.Quiet = quiet
	}
	cfg.Frontend.Kind = strings.ToLower(cfg.Frontend.Kind)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

// githubToken returns the token from the environment (after .env has been loaded).
func githubToken() (string, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// pipeline holds everything built for a run; Close releases it.
type pipeline struct {
	analyzer  *impact.Analyzer
	predictor predict.Predictor
	fetcher   *source.GitHubFetcher
}

func (p *pipeline) Close() {
	if p.predictor != nil {
		if err := p.predictor.Close(); err != nil {
			logger.Warn("failed to stop model service", zap.Error(err))
		}
	}
	if p.fetcher != nil {
		p.fetcher.Close()
	}
}

// buildPipeline creates the front-end, fetcher and verifier (when token is set), then loads the
// model. The front-end is resolved before the model so a missing clang fails fast.
func buildPipeline(ctx context.Context, cfg *config.Config, token string, progress verify.ProgressFunc) (*pipeline, error) {
	p := &pipeline{}
	opts := impact.Options{
		Repo:   cfg.Source.Repo,
		Logger: logger,
	}

	if token != "" {
		fe, err := frontend.New(cfg.Frontend.Kind, cfg.Frontend.ClangPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("front-end ready", zap.String("frontend", fe.Name()))

		fetcher, err := source.NewGitHubFetcher(cfg.ToGitHubConfig(token))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		p.fetcher = fetcher

		verifier, err := verify.New(fetcher, fe, cfg.ToVerifyOptions(logger, progress))
		if err != nil {
			p.Close()
			return nil, err
		}
		opts.Runner = verifier
		opts.Frontend = fe.Name()
	}

	predictor, err := predict.NewPredictor(cfg.ToPredictConfig(logger))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create predictor: %w", err)
	}
	p.predictor = predictor

	logger.Debug("loading model",
		zap.String("provider", cfg.Model.Provider),
		zap.String("path", cfg.Model.Path),
		zap.String("endpoint", cfg.Model.Endpoint))
	if err := predictor.Initialize(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	p.analyzer = impact.New(predictor, opts)
	return p, nil
}
