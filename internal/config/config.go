// Package config loads omp-impact settings.
//
// Settings come from built-in defaults, an optional .omp-impact/config.yml in the working
// directory (or a file named with --config), and OMP_IMPACT_* environment variables, in
// increasing order of priority. Command-line flags are applied on top by the cli package.
package config

import (
	"github.com/mvp-joe/omp-impact/internal/frontend"
	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/report"
	"github.com/mvp-joe/omp-impact/internal/verify"
)

// Config represents the complete omp-impact configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Frontend FrontendConfig `yaml:"frontend" mapstructure:"frontend"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

// ModelConfig configures the prediction model.
type ModelConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`             // "local" or "remote"
	Path          string `yaml:"path" mapstructure:"path"`                     // model directory for the local provider
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`             // generation service URL for the remote provider
	RuntimeDir    string `yaml:"runtime_dir" mapstructure:"runtime_dir"`       // where the embedded Python is unpacked
	PythonPath    string `yaml:"python_path" mapstructure:"python_path"`       // extra PYTHONPATH entry (site-packages with transformers)
	Port          int    `yaml:"port" mapstructure:"port"`                     // loopback port of the local service; 0 picks a free one
	MaxLength     int    `yaml:"max_length" mapstructure:"max_length"`         // generation max_length
	NumBeams      int    `yaml:"num_beams" mapstructure:"num_beams"`           // beam search width
	EarlyStopping bool   `yaml:"early_stopping" mapstructure:"early_stopping"` // stop beams at EOS
}

// SourceConfig configures where predicted files are downloaded from.
type SourceConfig struct {
	Repo      string `yaml:"repo" mapstructure:"repo"`             // owner/name
	Ref       string `yaml:"ref" mapstructure:"ref"`               // branch, tag or commit; empty for the default branch
	APIURL    string `yaml:"api_url" mapstructure:"api_url"`       // GitHub Enterprise API base URL
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"` // files kept in memory per process
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"`       // request timeout in seconds
}

// FrontendConfig selects the C/C++ front-end.
type FrontendConfig struct {
	Kind      string `yaml:"kind" mapstructure:"kind"`             // "treesitter" or "clang"
	ClangPath string `yaml:"clang_path" mapstructure:"clang_path"` // clang executable, libclang library or LLVM directory
}

// PathsConfig controls which predicted files are parsed and where they are staged.
type PathsConfig struct {
	Sources []string `yaml:"sources" mapstructure:"sources"`   // glob patterns of parseable files
	TempDir string   `yaml:"temp_dir" mapstructure:"temp_dir"` // parent of the staging directory
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
	Quiet  bool   `yaml:"quiet" mapstructure:"quiet"`   // suppress progress bars
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	gen := predict.DefaultGenerationParams()
	return &Config{
		Model: ModelConfig{
			Provider:      "local",
			Path:          "./omp_t5_model",
			MaxLength:     gen.MaxLength,
			NumBeams:      gen.NumBeams,
			EarlyStopping: gen.EarlyStopping,
		},
		Source: SourceConfig{
			Repo:      "llvm/llvm-project",
			CacheSize: 256,
			Timeout:   30,
		},
		Frontend: FrontendConfig{
			Kind: frontend.TreeSitter,
		},
		Paths: PathsConfig{
			Sources: append([]string(nil), verify.DefaultSources...),
		},
		Output: OutputConfig{
			Format: report.FormatText,
		},
	}
}
