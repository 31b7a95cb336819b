// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Backend abstracts the inference service so tests can supply a mock.
// Per Strategy pattern: the engine owns orchestration, the backend owns one
// call.
type Backend interface {
	// Generate sends one prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Refresh discards any connection-level state before a new session.
	Refresh()
}

// Reconnect settings after a suspected backend crash. Package-level vars so
// tests can avoid real sleeps.
var (
	reconnectAttempts = 5
	reconnectDelay    = 2 * time.Second
)

// OllamaBackend talks to a local Ollama server over its HTTP API.
type OllamaBackend struct {
	Host   string // base URL, e.g. "http://localhost:11434"
	Model  string
	Client *http.Client
}

// ollamaGenerateRequest is the request body for /api/generate.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the non-streaming response body.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *OllamaBackend) client() *http.Client {
	if o.Client == nil {
		return http.DefaultClient
	}
	return o.Client
}

func (o *OllamaBackend) host() string {
	return strings.TrimRight(o.Host, "/")
}

// Generate performs one non-streaming completion call.
func (o *OllamaBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{Model: o.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host()+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var gen ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("decoding backend response: %w", err)
	}
	if strings.TrimSpace(gen.Response) == "" {
		return "", fmt.Errorf("backend returned empty response")
	}
	return gen.Response, nil
}

// Ping checks the model listing endpoint.
func (o *OllamaBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host()+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := o.client().Do(req)
	if err != nil {
		return fmt.Errorf("pinging backend: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend ping returned %d", resp.StatusCode)
	}
	return nil
}

// Refresh drops idle connections so the next call re-dials, which matters
// after the server process has been restarted.
func (o *OllamaBackend) Refresh() {
	o.client().CloseIdleConnections()
}

// waitReady polls the backend until it responds or the attempt budget runs
// out. Used after a suspected crash before retrying the sample.
func waitReady(ctx context.Context, backend Backend) error {
	var lastErr error
	for attempt := 0; attempt < reconnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
		}
		if lastErr = backend.Ping(ctx); lastErr == nil {
			backend.Refresh()
			return nil
		}
	}
	return fmt.Errorf("backend not ready after %d attempts: %w", reconnectAttempts, lastErr)
}
