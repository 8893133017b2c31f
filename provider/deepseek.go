package provider

import (
	"context"
	"strings"
)

const deepSeekDefaultBaseURL = "https://api.deepseek.com/v1"

// deepSeek speaks the OpenAI-compatible chat API on its own endpoint.
type deepSeek struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

func newDeepSeek(cfg Config) *deepSeek {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepSeekDefaultBaseURL
	}
	return &deepSeek{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(DeepSeek, cfg, defaultTimeout),
	}
}

func (p *deepSeek) Name() string         { return DeepSeek }
func (p *deepSeek) DefaultModel() string { return "deepseek-chat" }

func (p *deepSeek) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

func (p *deepSeek) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.http.do(ctx, "GET", p.baseURL+"/models", p.headers(), nil)
	if err != nil {
		return nil, err
	}
	return extractModelIDs(body)
}

func (p *deepSeek) Translate(ctx context.Context, model, prompt string) (string, error) {
	reqBody, err := buildChatRequest(model, prompt, true)
	if err != nil {
		return "", err
	}
	respBody, err := p.http.do(ctx, "POST", p.baseURL+"/chat/completions", p.headers(), reqBody)
	if err != nil {
		return "", err
	}
	return extractChatText(respBody)
}
