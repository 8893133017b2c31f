package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 45 * time.Second
	// Transient failures (network error, 5xx) get a fixed wait and a
	// bounded number of attempts.
	transientAttempts = 3
	transientWait     = 2 * time.Second
)

// httpClient is the transport shared by all hosted providers.
type httpClient struct {
	client   *http.Client
	provider string
	verbose  bool
}

func newHTTPClient(provider string, cfg Config, fallbackTimeout time.Duration) *httpClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = fallbackTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		if parsed, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &httpClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		provider: provider,
		verbose:  cfg.Verbose,
	}
}

// do sends one JSON request with retry on transient failures. 429
// responses wait out the reported retry delay; 401/403 become an
// *AuthError and are never retried.
func (c *httpClient) do(ctx context.Context, method, endpoint string, headers map[string]string, body []byte) ([]byte, error) {
	for attempt := 1; attempt <= transientAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		if c.verbose {
			log.Printf("[DEBUG] %s attempt %d: %s %s", c.provider, attempt, method, endpoint)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < transientAttempts {
				if werr := sleepCtx(ctx, transientWait); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return respBody, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{
				Provider:   c.provider,
				StatusCode: resp.StatusCode,
				Body:       truncate(string(respBody), 500),
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			delay := parseRetryDelay(respBody)
			if c.verbose {
				log.Printf("[WARN] %s rate limited, waiting %v (attempt %d/%d)", c.provider, delay, attempt, transientAttempts)
			}
			if attempt < transientAttempts {
				if werr := sleepCtx(ctx, delay); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("%s rate limited after %d attempts: %s", c.provider, transientAttempts, truncate(string(respBody), 500))

		case resp.StatusCode >= 500:
			if attempt < transientAttempts {
				if werr := sleepCtx(ctx, transientWait); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("%s returned status %d: %s", c.provider, resp.StatusCode, truncate(string(respBody), 500))

		default:
			return nil, fmt.Errorf("%s returned status %d: %s", c.provider, resp.StatusCode, truncate(string(respBody), 500))
		}
	}

	return nil, fmt.Errorf("%s: exhausted %d attempts", c.provider, transientAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// parseRetryDelay extracts the retry delay from a 429 response body,
// looking for a RetryInfo detail with a retryDelay field. Defaults to
// 60s plus a 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return defaultDelay
}

// buildChatRequest marshals an OpenAI-style chat/completions body.
// Temperature is pinned to zero: translation wants determinism.
func buildChatRequest(model, prompt string, includeModel bool) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model,omitempty"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Messages: []msg{
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		Stream:      false,
	}
	if includeModel {
		req.Model = model
	}
	return json.Marshal(req)
}

// extractChatText pulls choices[0].message.content from an OpenAI-style
// chat response.
func extractChatText(body []byte) (string, error) {
	var resp struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %s", truncate(string(body), 500))
	}
	return resp.Choices[0].Message.Content, nil
}

// extractModelIDs pulls data[].id from an OpenAI-style model listing.
func extractModelIDs(body []byte) ([]string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid model list response: %w", err)
	}
	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseBulk extracts a JSON string array from a bulk-mode response.
// Markdown code fences are stripped and the outermost [...] slice is
// taken, since models like to wrap their output in prose. An array of
// the wrong length is a *ResponseFormatError: the caller cannot tell
// which entry each element belongs to.
func ParseBulk(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, &ResponseFormatError{
			Reason: fmt.Sprintf("not a JSON string array: %v (response: %s)", err, truncate(content, 300)),
		}
	}

	if len(translations) != expected {
		return nil, &ResponseFormatError{
			Reason: fmt.Sprintf("got %d translations, expected %d", len(translations), expected),
		}
	}
	return translations, nil
}

// truncate shortens a string for error messages.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
