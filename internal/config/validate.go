package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/omp-impact/internal/frontend"
	"github.com/mvp-joe/omp-impact/internal/report"
	"github.com/mvp-joe/omp-impact/internal/source"
)

var (
	// ErrInvalidProvider indicates an unsupported model provider
	ErrInvalidProvider = errors.New("invalid model provider")

	// ErrEmptyModelPath indicates the local provider has no model directory
	ErrEmptyModelPath = errors.New("empty model path")

	// ErrEmptyEndpoint indicates the remote provider has no endpoint
	ErrEmptyEndpoint = errors.New("empty model endpoint")

	// ErrInvalidGeneration indicates invalid generation parameters
	ErrInvalidGeneration = errors.New("invalid generation parameters")

	// ErrInvalidRepo indicates a repository not in owner/name form
	ErrInvalidRepo = errors.New("invalid source repository")

	// ErrInvalidFrontend indicates an unsupported front-end
	ErrInvalidFrontend = errors.New("invalid front-end")

	// ErrInvalidPattern indicates a source pattern that does not compile
	ErrInvalidPattern = errors.New("invalid source pattern")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateModel(&cfg.Model); err != nil {
		errs = append(errs, err)
	}
	if err := validateSource(&cfg.Source); err != nil {
		errs = append(errs, err)
	}
	if err := validateFrontend(&cfg.Frontend); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateModel(cfg *ModelConfig) error {
	var errs []error

	switch strings.ToLower(cfg.Provider) {
	case "local":
		if strings.TrimSpace(cfg.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: path is required for the local provider", ErrEmptyModelPath))
		}
	case "remote":
		if strings.TrimSpace(cfg.Endpoint) == "" {
			errs = append(errs, fmt.Errorf("%w: endpoint is required for the remote provider", ErrEmptyEndpoint))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'local' or 'remote', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	if cfg.MaxLength <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_length must be positive, got %d", ErrInvalidGeneration, cfg.MaxLength))
	}
	if cfg.NumBeams <= 0 {
		errs = append(errs, fmt.Errorf("%w: num_beams must be positive, got %d", ErrInvalidGeneration, cfg.NumBeams))
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port out of range: %d", ErrInvalidGeneration, cfg.Port))
	}

	return joinErrors(errs)
}

func validateSource(cfg *SourceConfig) error {
	var errs []error

	if _, _, err := source.ParseRepo(cfg.Repo); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q must be owner/name", ErrInvalidRepo, cfg.Repo))
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidRepo, cfg.CacheSize))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %d", ErrInvalidRepo, cfg.Timeout))
	}

	return joinErrors(errs)
}

func validateFrontend(cfg *FrontendConfig) error {
	switch strings.ToLower(cfg.Kind) {
	case frontend.TreeSitter, frontend.Clang:
		return nil
	default:
		return fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidFrontend, frontend.TreeSitter, frontend.Clang, cfg.Kind)
	}
}

func validatePaths(cfg *PathsConfig) error {
	// An empty list falls back to the built-in source patterns.
	var errs []error
	for _, pattern := range cfg.Sources {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}
	return joinErrors(errs)
}

func validateOutput(cfg *OutputConfig) error {
	switch strings.ToLower(cfg.Format) {
	case report.FormatText, report.FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidFormat, report.FormatText, report.FormatJSON, cfg.Format)
	}
}

// validationErrors combines multiple errors while keeping each one reachable through errors.Is.
type validationErrors []error

func (e validationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e validationErrors) Unwrap() []error {
	return e
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return validationErrors(errs)
	}
}
