package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/provider"
)

func completion(content string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"llama-3.3-70b-versatile",` +
		`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` +
		strings.TrimSpace(mustJSON(content)) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	type captured struct {
		auth string
		path string
		body map[string]any
	}
	requests := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{auth: r.Header.Get("Authorization"), path: r.URL.Path}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &c.body)
		requests <- c
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion("Title: Shoes\nBody text"))
	}))
	t.Cleanup(server.Close)

	p := New(Config{BaseURL: server.URL + "/"}, provider.DefaultPrompt())
	text, err := p.Generate(context.Background(), "shoes", "https://shoes.example", "gsk-secret")
	require.NoError(t, err)
	got := <-requests
	gotAuth, gotPath, gotBody := got.auth, got.path, got.body
	assert.Equal(t, "Title: Shoes\nBody text", text)
	assert.Equal(t, "Bearer gsk-secret", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, DefaultModel, gotBody["model"])
	assert.InDelta(t, DefaultTemperature, gotBody["temperature"], 0.0001)
	assert.InDelta(t, float64(DefaultMaxTokens), gotBody["max_tokens"], 0.0001)

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Contains(t, first["content"], `keywords "shoes"`)
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`,
			wantMsg: "401",
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    completion("   "),
			wantMsg: "empty response",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`,
			wantMsg: "no choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p := New(Config{BaseURL: server.URL + "/"}, provider.DefaultPrompt())
			_, err := p.Generate(context.Background(), "k", "https://k.example", "key")
			var provErr *article.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, article.ProviderGroq, provErr.Provider)
			assert.Contains(t, err.Error(), "groq API error")
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	p := New(Config{BaseURL: server.URL + "/", Timeout: 50 * time.Millisecond}, provider.DefaultPrompt())
	_, err := p.Generate(context.Background(), "k", "https://k.example", "key")
	var provErr *article.ProviderError
	require.True(t, errors.As(err, &provErr))
}
