package predict

import (
	"fmt"

	"go.uber.org/zap"
)

// Config contains configuration for creating a predictor.
type Config struct {
	// Provider selects the implementation: "local" (embedded Python) or "remote".
	Provider string

	// ModelPath is the directory holding the fine-tuned seq2seq model (local provider).
	ModelPath string

	// Endpoint is the base URL of a running generation service (remote provider).
	Endpoint string

	// RuntimeDir is where the embedded Python runtime is extracted. Empty uses the user cache dir.
	RuntimeDir string

	// PythonPath is added to the embedded interpreter's sys.path (torch, transformers).
	PythonPath string

	// Port for the local generation service. Zero picks a free loopback port.
	Port int

	Params GenerationParams
	Logger *zap.Logger
}

// NewPredictor creates a predictor based on the configuration.
func NewPredictor(cfg Config) (Predictor, error) {
	if cfg.Params == (GenerationParams{}) {
		cfg.Params = DefaultGenerationParams()
	}

	switch cfg.Provider {
	case "local", "":
		if cfg.ModelPath == "" {
			return nil, fmt.Errorf("model path is required for the local provider")
		}
		return newLocalProvider(cfg), nil
	case "remote":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint is required for the remote provider")
		}
		return newRemoteProvider(cfg.Endpoint, cfg.Params), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s (supported: local, remote)", cfg.Provider)
	}
}
