package provider

import (
	"context"
	"strings"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

type openAI struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

func newOpenAI(cfg Config) *openAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &openAI{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(OpenAI, cfg, defaultTimeout),
	}
}

func (p *openAI) Name() string         { return OpenAI }
func (p *openAI) DefaultModel() string { return "gpt-4o-mini" }

func (p *openAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

func (p *openAI) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.http.do(ctx, "GET", p.baseURL+"/models", p.headers(), nil)
	if err != nil {
		return nil, err
	}
	return extractModelIDs(body)
}

func (p *openAI) Translate(ctx context.Context, model, prompt string) (string, error) {
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
