package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// generateRequest is the JSON body of POST /generate.
type generateRequest struct {
	Prompt string `json:"prompt"`
	GenerationParams
}

// generateResponse is the JSON body returned by POST /generate.
type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// healthResponse is the JSON body returned by GET /health.
type healthResponse struct {
	Status   string `json:"status"`
	Device   string `json:"device,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// errForeignService means something other than the expected service answered the health check.
var errForeignService = errors.New("health check answered by a different service instance")

// remoteProvider calls a generation service that is already running.
type remoteProvider struct {
	endpoint string
	params   GenerationParams

	// instance, when set, must match the ID the service reports on /health.
	instance string

	httpClient  *http.Client
	initialized bool
}

// newRemoteProvider creates a provider for the service at endpoint (e.g. "http://gpu-box:8131").
func newRemoteProvider(endpoint string, params GenerationParams) *remoteProvider {
	return &remoteProvider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		params:     params,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Initialize verifies the service answers its health check.
func (p *remoteProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}
	if err := p.healthy(ctx); err != nil {
		return fmt.Errorf("generation service at %s unavailable: %w", p.endpoint, err)
	}
	p.initialized = true
	return nil
}

// Suggest posts the prompt and returns the decoded text.
func (p *remoteProvider) Suggest(ctx context.Context, prompt string) (string, error) {
	if !p.initialized {
		return "", fmt.Errorf("provider not initialized: call Initialize() first")
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt, GenerationParams: p.params})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("generate failed with status %d", resp.StatusCode)
	}

	return out.Text, nil
}

// Close is a no-op; the remote service owns its own lifecycle.
func (p *remoteProvider) Close() error {
	return nil
}

func (p *remoteProvider) healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	if p.instance == "" {
		return nil
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("invalid health response: %w", err)
	}
	if health.Instance != p.instance {
		return fmt.Errorf("%w: got %q", errForeignService, health.Instance)
	}
	return nil
}

// waitForReady polls the health endpoint until it answers, the deadline passes, or exited fires.
func (p *remoteProvider) waitForReady(ctx context.Context, timeout time.Duration, exited <-chan error) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-exited:
			if err == nil {
				return fmt.Errorf("generation service exited before becoming ready")
			}
			return fmt.Errorf("generation service exited before becoming ready: %w", err)
		case <-ticker.C:
			if time.Now().After(deadline) {
				if lastErr != nil {
					return fmt.Errorf("timeout after %v waiting for generation service: %w", timeout, lastErr)
				}
				return fmt.Errorf("timeout after %v waiting for generation service", timeout)
			}
			lastErr = p.healthy(ctx)
			if lastErr == nil {
				p.initialized = true
				return nil
			}
		}
	}
}
