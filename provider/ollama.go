package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	ollamaDefaultBaseURL = "http://localhost:11434"
	// Local inference is slow on modest hardware.
	ollamaTimeout = 120 * time.Second
)

// ollama talks to a local Ollama daemon. No credentials involved.
type ollama struct {
	baseURL string
	http    *httpClient
}

func newOllama(cfg Config) *ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	return &ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(Ollama, cfg, ollamaTimeout),
	}
}

func (p *ollama) Name() string         { return Ollama }
func (p *ollama) DefaultModel() string { return "llama3.2" }

func (p *ollama) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.http.do(ctx, "GET", p.baseURL+"/api/tags", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s: %w", p.baseURL, err)
	}

	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid tags response: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *ollama) Translate(ctx context.Context, model, prompt string) (string, error) {
	reqBody, err := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	respBody, err := p.http.do(ctx, "POST", p.baseURL+"/api/generate", nil, reqBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", resp.Error)
	}
	return resp.Response, nil
}
