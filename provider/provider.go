// Package provider dispatches translation prompts to AI backends:
// OpenAI, Azure OpenAI, Anthropic, DeepSeek, and Ollama. Every backend
// sits behind the same Translator interface so the pipeline never
// branches on provider identity.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Translator is a single AI backend capable of model discovery and
// prompt completion.
type Translator interface {
	// Name returns the provider identifier ("openai", "ollama", ...).
	Name() string
	// DefaultModel returns the model used when none is requested.
	DefaultModel() string
	// ListModels returns the models the backend currently offers.
	ListModels(ctx context.Context) ([]string, error)
	// Translate sends a prompt to the given model and returns the raw
	// response text.
	Translate(ctx context.Context, model, prompt string) (string, error)
}

// Config carries the connection settings shared by all providers.
// Fields a provider does not use are ignored.
type Config struct {
	// APIKey authenticates hosted providers. Ollama needs none.
	APIKey string
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string
	// AzureEndpoint is the resource endpoint for Azure OpenAI
	// (https://<resource>.openai.azure.com).
	AzureEndpoint string
	// AzureAPIVersion selects the Azure OpenAI API version.
	AzureAPIVersion string
	// Proxy is an explicit proxy URL; when empty the standard
	// HTTP_PROXY/HTTPS_PROXY environment variables apply.
	Proxy string
	// Timeout bounds a single HTTP request. Zero picks a per-provider
	// default (local Ollama gets a longer one).
	Timeout time.Duration
	// Verbose enables request tracing to the standard logger.
	Verbose bool
}

// AuthError reports a credential rejection (HTTP 401/403). It is never
// retried: a bad key stays bad.
type AuthError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// ResponseFormatError reports a provider response that could not be
// used: not a JSON array in bulk mode, or an array of the wrong length.
// Bulk callers degrade to per-entry requests on this error.
type ResponseFormatError struct {
	Reason string
}

func (e *ResponseFormatError) Error() string {
	return "unusable provider response: " + e.Reason
}

// Provider identifiers accepted by New.
const (
	OpenAI      = "openai"
	AzureOpenAI = "azure-openai"
	Anthropic   = "anthropic"
	DeepSeek    = "deepseek"
	Ollama      = "ollama"
)

// Names returns the known provider identifiers, sorted.
func Names() []string {
	return []string{Anthropic, AzureOpenAI, DeepSeek, OpenAI, Ollama}
}

// New constructs the Translator for a provider identifier.
func New(name string, cfg Config) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case OpenAI:
		return newOpenAI(cfg), nil
	case AzureOpenAI:
		return newAzureOpenAI(cfg)
	case Anthropic:
		return newAnthropic(cfg), nil
	case DeepSeek:
		return newDeepSeek(cfg), nil
	case Ollama:
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (known: %s)", name, strings.Join(Names(), ", "))
	}
}

// ResolveModel validates a requested model against the provider's
// model list. An exact match wins; otherwise the first model sharing
// the requested prefix is substituted, and as a last resort the
// provider default is used. warnf receives a message whenever the
// requested model is not used verbatim.
func ResolveModel(ctx context.Context, t Translator, requested string, warnf func(format string, args ...any)) string {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	if requested == "" {
		return t.DefaultModel()
	}

	models, err := t.ListModels(ctx)
	if err != nil {
		warnf("could not list %s models (%v); using %q unverified", t.Name(), err, requested)
		return requested
	}

	for _, m := range models {
		if m == requested {
			return requested
		}
	}

	var prefixed []string
	for _, m := range models {
		if strings.HasPrefix(m, requested) {
			prefixed = append(prefixed, m)
		}
	}
	if len(prefixed) > 0 {
		sort.Strings(prefixed)
		warnf("model %q not found for %s; using closest match %q", requested, t.Name(), prefixed[0])
		return prefixed[0]
	}

	warnf("model %q not available for %s; falling back to default %q", requested, t.Name(), t.DefaultModel())
	return t.DefaultModel()
}
