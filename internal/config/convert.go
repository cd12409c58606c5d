package config

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/source"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// ToPredictConfig converts the model section to a predict.Config.
func (c *Config) ToPredictConfig(logger *zap.Logger) predict.Config {
	return predict.Config{
		Provider:   strings.ToLower(c.Model.Provider),
		ModelPath:  c.Model.Path,
		Endpoint:   c.Model.Endpoint,
		RuntimeDir: c.Model.RuntimeDir,
		PythonPath: c.Model.PythonPath,
		Port:       c.Model.Port,
		Params: predict.GenerationParams{
			MaxLength:     c.Model.MaxLength,
			NumBeams:      c.Model.NumBeams,
			EarlyStopping: c.Model.EarlyStopping,
		},
		Logger: logger,
	}
}

// ToGitHubConfig converts the source section to a source.GitHubConfig.
func (c *Config) ToGitHubConfig(token string) source.GitHubConfig {
	return source.GitHubConfig{
		Repo:      c.Source.Repo,
		Ref:       c.Source.Ref,
		Token:     token,
		BaseURL:   c.Source.APIURL,
		CacheSize: c.Source.CacheSize,
		Timeout:   time.Duration(c.Source.Timeout) * time.Second,
	}
}

// ToVerifyOptions converts the paths section to verify.Options.
func (c *Config) ToVerifyOptions(logger *zap.Logger, progress verify.ProgressFunc) verify.Options {
	return verify.Options{
		Sources:  c.Paths.Sources,
		TempRoot: c.Paths.TempDir,
		Logger:   logger,
		Progress: progress,
	}
}
