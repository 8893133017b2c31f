package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

type anthropic struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

func newAnthropic(cfg Config) *anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &anthropic{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(Anthropic, cfg, defaultTimeout),
	}
}

func (p *anthropic) Name() string         { return Anthropic }
func (p *anthropic) DefaultModel() string { return "claude-3-5-haiku-latest" }

func (p *anthropic) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
}

func (p *anthropic) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.http.do(ctx, "GET", p.baseURL+"/v1/models", p.headers(), nil)
	if err != nil {
		return nil, err
	}
	return extractModelIDs(body)
}

func (p *anthropic) Translate(ctx context.Context, model, prompt string) (string, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody, err := json.Marshal(struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 8192,
		Messages:  []msg{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	respBody, err := p.http.do(ctx, "POST", p.baseURL+"/v1/messages", p.headers(), reqBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response: %s", truncate(string(respBody), 500))
}
