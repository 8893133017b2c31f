package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const azureDefaultAPIVersion = "2024-02-01"

// azureOpenAI routes chat requests through deployment-scoped URLs on an
// Azure resource endpoint. The model name doubles as the deployment name.
type azureOpenAI struct {
	apiKey     string
	endpoint   string
	apiVersion string
	http       *httpClient
}

func newAzureOpenAI(cfg Config) (*azureOpenAI, error) {
	if cfg.AzureEndpoint == "" {
		return nil, fmt.Errorf("azure-openai requires an endpoint (AZURE_OPENAI_ENDPOINT)")
	}
	apiVersion := cfg.AzureAPIVersion
	if apiVersion == "" {
		apiVersion = azureDefaultAPIVersion
	}
	return &azureOpenAI{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.AzureEndpoint, "/"),
		apiVersion: apiVersion,
		http:       newHTTPClient(AzureOpenAI, cfg, defaultTimeout),
	}, nil
}

func (p *azureOpenAI) Name() string         { return AzureOpenAI }
func (p *azureOpenAI) DefaultModel() string { return "gpt-35-turbo" }

func (p *azureOpenAI) headers() map[string]string {
	return map[string]string{"api-key": p.apiKey}
}

func (p *azureOpenAI) ListModels(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/openai/models?api-version=%s", p.endpoint, url.QueryEscape(p.apiVersion))
	body, err := p.http.do(ctx, "GET", endpoint, p.headers(), nil)
	if err != nil {
		return nil, err
	}
	return extractModelIDs(body)
}

func (p *azureOpenAI) Translate(ctx context.Context, model, prompt string) (string, error) {
	reqBody, err := buildChatRequest(model, prompt, false)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, url.PathEscape(model), url.QueryEscape(p.apiVersion))
	respBody, err := p.http.do(ctx, "POST", endpoint, p.headers(), reqBody)
	if err != nil {
		return "", err
	}
	return extractChatText(respBody)
}
