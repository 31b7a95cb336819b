// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaBackend_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen3:8b", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "SRX100")

		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: `{"species": "Homo sapiens"}`, Done: true})
	}))
	defer ts.Close()

	b := &OllamaBackend{Host: ts.URL, Model: "qwen3:8b", Client: ts.Client()}
	got, err := b.Generate(context.Background(), "metadata for SRX100")
	require.NoError(t, err)
	assert.Contains(t, got, "Homo sapiens")
}

func TestOllamaBackend_GenerateErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	b := &OllamaBackend{Host: ts.URL, Model: "missing", Client: ts.Client()}
	_, err := b.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaBackend_EmptyResponseIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "  ", Done: true})
	}))
	defer ts.Close()

	b := &OllamaBackend{Host: ts.URL, Model: "m", Client: ts.Client()}
	_, err := b.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestOllamaBackend_Ping(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer ts.Close()

	b := &OllamaBackend{Host: ts.URL, Client: ts.Client()}
	assert.NoError(t, b.Ping(context.Background()))

	ts.Close()
	assert.Error(t, b.Ping(context.Background()))
}

func TestWaitReady_RecoversAfterFailures(t *testing.T) {
	backend := &fakeBackend{pingErr: nil}
	assert.NoError(t, waitReady(context.Background(), backend))
	assert.Equal(t, 1, backend.refreshes)
}

func TestWaitReady_ExhaustsAttempts(t *testing.T) {
	backend := &fakeBackend{pingErr: assertErr{}}
	err := waitReady(context.Background(), backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

type assertErr struct{}

func (assertErr) Error() string { return "still down" }
