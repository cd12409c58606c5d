package predict

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPrompt is returned when a prediction is requested for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Predictor generates impact predictions from a feature prompt using a seq2seq model.
// Implementations may run the model locally or call a remote generation service.
type Predictor interface {
	// Initialize loads the model and blocks until it is ready to generate.
	// Must be called before Suggest().
	Initialize(ctx context.Context) error

	// Suggest returns the decoded model output for prompt, special tokens removed.
	Suggest(ctx context.Context, prompt string) (string, error)

	// Close releases the model and any process backing it.
	Close() error
}

// GenerationParams controls beam search decoding.
type GenerationParams struct {
	MaxLength     int  `json:"max_length"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
}

// DefaultGenerationParams returns the decoding settings the model was tuned with.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxLength:     256,
		NumBeams:      4,
		EarlyStopping: true,
	}
}

// Predict runs one inference and parses its output.
func Predict(ctx context.Context, p Predictor, prompt string) (*Prediction, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	raw, err := p.Suggest(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("inference failed for %q: %w", prompt, err)
	}

	files, entries := ParseOutput(raw)
	return &Prediction{
		Prompt:  prompt,
		Raw:     raw,
		Files:   files,
		Entries: entries,
	}, nil
}

// BatchPrompts are the sample prompts exercised by batch mode.
var BatchPrompts = []string{
	"taskwait codegen",
	"flush ir target",
	"parallel parse runtime",
	"atomic sema",
	"for codegen parse",
	"sections runtime ast",
	"ordered flush",
	"barrier codegen",
	"masked parse ast",
	"taskgroup codegen",
}
