// Package gemini generates articles through the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/JakeFAU/articlegen/internal/article"
	"github.com/JakeFAU/articlegen/internal/provider"
)

// Defaults for the Gemini call.
const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 120 * time.Second
)

// Config tunes the provider. Zero values fall back to the defaults.
type Config struct {
	// BaseURL overrides the Gemini endpoint; empty uses the SDK default.
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Provider implements article.Provider using the genai SDK.
type Provider struct {
	cfg    Config
	prompt provider.Prompt
}

var _ article.Provider = (*Provider)(nil)

// New builds a Gemini provider. A client is created per call because the
// API key arrives with each request.
func New(cfg Config, prompt provider.Prompt) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Provider{cfg: cfg, prompt: prompt}
}

// Generate requests one article for keyword and url.
func (p *Provider) Generate(ctx context.Context, keyword, url, credential string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  p.cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: p.cfg.BaseURL},
	})
	if err != nil {
		return "", &article.ProviderError{Provider: article.ProviderGemini, Err: fmt.Errorf("create client: %w", err)}
	}

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(p.prompt.Build(keyword, url)), nil)
	if err != nil {
		return "", &article.ProviderError{Provider: article.ProviderGemini, Err: err}
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &article.ProviderError{Provider: article.ProviderGemini, Err: errors.New("empty response")}
	}
	return text, nil
}
