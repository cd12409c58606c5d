package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. OMP_IMPACT_MODEL_PATH.
const EnvPrefix = "OMP_IMPACT"

// DirName is the per-project configuration directory.
const DirName = ".omp-impact"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that looks for .omp-impact/config.yml under rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader creates a loader for an explicit config file. Unlike NewLoader, a missing file is
// an error.
func NewFileLoader(path string) Loader {
	return &loader{configFile: path}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (OMP_IMPACT_*)
// 2. Config file (.omp-impact/config.yml or .omp-impact/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., OMP_IMPACT_SOURCE_REPO)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"model.provider",
		"model.path",
		"model.endpoint",
		"model.runtime_dir",
		"model.python_path",
		"model.port",
		"model.max_length",
		"model.num_beams",
		"model.early_stopping",
		"source.repo",
		"source.ref",
		"source.api_url",
		"source.cache_size",
		"source.timeout",
		"frontend.kind",
		"frontend.clang_path",
		"paths.temp_dir",
		"output.format",
		"output.quiet",
	} {
		_ = v.BindEnv(key)
	}
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("model.provider", defaults.Model.Provider)
	v.SetDefault("model.path", defaults.Model.Path)
	v.SetDefault("model.endpoint", defaults.Model.Endpoint)
	v.SetDefault("model.runtime_dir", defaults.Model.RuntimeDir)
	v.SetDefault("model.python_path", defaults.Model.PythonPath)
	v.SetDefault("model.port", defaults.Model.Port)
	v.SetDefault("model.max_length", defaults.Model.MaxLength)
	v.SetDefault("model.num_beams", defaults.Model.NumBeams)
	v.SetDefault("model.early_stopping", defaults.Model.EarlyStopping)

	v.SetDefault("source.repo", defaults.Source.Repo)
	v.SetDefault("source.ref", defaults.Source.Ref)
	v.SetDefault("source.api_url", defaults.Source.APIURL)
	v.SetDefault("source.cache_size", defaults.Source.CacheSize)
	v.SetDefault("source.timeout", defaults.Source.Timeout)

	v.SetDefault("frontend.kind", defaults.Frontend.Kind)
	v.SetDefault("frontend.clang_path", defaults.Frontend.ClangPath)

	v.SetDefault("paths.sources", defaults.Paths.Sources)
	v.SetDefault("paths.temp_dir", defaults.Paths.TempDir)

	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.quiet", defaults.Output.Quiet)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
