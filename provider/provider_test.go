package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func chatResponse(text string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": text}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOpenAITranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req struct {
			Model       string `json:"model"`
			Temperature float64
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "translate this" {
			t.Errorf("messages = %v", req.Messages)
		}
		fmt.Fprint(w, chatResponse("bonjour"))
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), "gpt-4o-mini", "translate this")
	if err != nil {
		t.Fatal(err)
	}
	if got != "bonjour" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestAuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "wrong", BaseURL: srv.URL})
	_, err := p.Translate(context.Background(), "gpt-4o-mini", "x")

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if authErr.Provider != OpenAI || authErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("AuthError = %+v", authErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth failure retried %d times", calls.Load())
	}
}

func TestServerErrorRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chatResponse("ok"))
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), "m", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Fatalf("Translate = %q", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestServerErrorExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := p.Translate(context.Background(), "m", "x"); err == nil {
		t.Fatal("expected error after persistent 500s")
	}
	if calls.Load() != transientAttempts {
		t.Fatalf("calls = %d, want %d", calls.Load(), transientAttempts)
	}
}

func TestAnthropicTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "ak-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"hallo"}]}`)
	}))
	defer srv.Close()

	p := newAnthropic(Config{APIKey: "ak-test", BaseURL: srv.URL})
	got, err := p.Translate(context.Background(), "claude-3-5-haiku-latest", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hallo" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestAzureDeploymentURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/openai/deployments/gpt-35-turbo/chat/completions"
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if got := r.URL.Query().Get("api-version"); got != azureDefaultAPIVersion {
			t.Errorf("api-version = %q", got)
		}
		if got := r.Header.Get("api-key"); got != "az-test" {
			t.Errorf("api-key header = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if _, ok := req["model"]; ok {
			t.Error("azure request body must not carry a model field")
		}
		fmt.Fprint(w, chatResponse("hola"))
	}))
	defer srv.Close()

	p, err := newAzureOpenAI(Config{APIKey: "az-test", AzureEndpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Translate(context.Background(), "gpt-35-turbo", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hola" {
		t.Fatalf("Translate = %q", got)
	}
}

func TestAzureRequiresEndpoint(t *testing.T) {
	if _, err := newAzureOpenAI(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestOllamaTranslateAndListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var req struct {
				Model  string `json:"model"`
				Prompt string `json:"prompt"`
				Stream bool   `json:"stream"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if req.Stream {
				t.Error("stream must be disabled")
			}
			fmt.Fprint(w, `{"response":"ciao"}`)
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"llama3.2"},{"name":"mistral"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := newOllama(Config{BaseURL: srv.URL})

	got, err := p.Translate(context.Background(), "llama3.2", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ciao" {
		t.Fatalf("Translate = %q", got)
	}

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0] != "llama3.2" {
		t.Fatalf("ListModels = %v", models)
	}
}

func TestNewKnownAndUnknown(t *testing.T) {
	for _, name := range []string{OpenAI, Anthropic, DeepSeek, Ollama} {
		p, err := New(name, Config{APIKey: "k"})
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("Name() = %q, want %q", p.Name(), name)
		}
	}

	if _, err := New("gemini", Config{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(fmt.Sprint(Names()), OpenAI) {
		t.Fatal("Names() should include openai")
	}
}

func TestResolveModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"},{"id":"gpt-4o-mini-2024"}]}`)
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	ctx := context.Background()

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if got := ResolveModel(ctx, p, "", warnf); got != p.DefaultModel() {
		t.Fatalf("empty request resolved to %q", got)
	}
	if got := ResolveModel(ctx, p, "gpt-4o", warnf); got != "gpt-4o" {
		t.Fatalf("exact match resolved to %q", got)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	// Prefix matching picks the first candidate in sorted order.
	if got := ResolveModel(ctx, p, "gpt-4o-mini-", warnf); got != "gpt-4o-mini-2024" {
		t.Fatalf("prefix match resolved to %q", got)
	}
	if got := ResolveModel(ctx, p, "nonexistent", warnf); got != p.DefaultModel() {
		t.Fatalf("unknown model resolved to %q", got)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestParseBulk(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		expected int
		want     []string
		wantErr  bool
	}{
		{
			name:     "plain array",
			content:  `["a","b"]`,
			expected: 2,
			want:     []string{"a", "b"},
		},
		{
			name:     "markdown fenced",
			content:  "```json\n[\"a\",\"b\"]\n```",
			expected: 2,
			want:     []string{"a", "b"},
		},
		{
			name:     "prose around array",
			content:  "Here are the translations:\n[\"a\"]\nHope that helps!",
			expected: 1,
			want:     []string{"a"},
		},
		{
			name:     "length mismatch",
			content:  `["a"]`,
			expected: 2,
			wantErr:  true,
		},
		{
			name:     "not an array",
			content:  "I'm sorry, I can't do that.",
			expected: 1,
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBulk(tc.content, tc.expected)
			if tc.wantErr {
				var rfe *ResponseFormatError
				if !errors.As(err, &rfe) {
					t.Fatalf("expected *ResponseFormatError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ParseBulk = %v", got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ParseBulk[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
