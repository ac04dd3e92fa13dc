package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	cfg        RuntimeConfig
	host       string
}

// NewOllamaClient targets cfg.Host (default http://127.0.0.1:11434).
func NewOllamaClient(cfg RuntimeConfig) *OllamaClient {
	cfg = cfg.withDefaults(DefaultOllamaModel)
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaClient{httpClient: &http.Client{Timeout: cfg.HTTPTimeout}, cfg: cfg, host: host}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Complete sends a non-streaming /api/chat request.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	oreq := ollamaChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	if c.cfg.Temperature > 0 || c.cfg.MaxTokens > 0 {
		oreq.Options = map[string]any{}
		if c.cfg.Temperature > 0 {
			oreq.Options["temperature"] = c.cfg.Temperature
		}
		if c.cfg.MaxTokens > 0 {
			oreq.Options["num_predict"] = c.cfg.MaxTokens
		}
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	backoff := c.cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, retry, err := c.chat(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retry || attempt == c.cfg.RetryMax {
			break
		}
		if err := sleepCtx(ctx, withJitter(backoff)); err != nil {
			return "", err
		}
		backoff = nextBackoff(backoff, c.cfg.MaxDelay)
	}
	return "", lastErr
}

func (c *OllamaClient) chat(ctx context.Context, payload []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", isRetryableNetErr(err), &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return "", false, &ModelNotFoundError{APIError: apiErr}
		case resp.StatusCode >= 500:
			return "", true, &ServerError{APIError: apiErr}
		case resp.StatusCode == http.StatusBadRequest:
			return "", false, &BadRequestError{APIError: apiErr}
		}
		return "", false, apiErr
	}
	var oresp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(oresp.Message.Content) == "" {
		return "", false, &EmptyResponseError{Provider: ProviderOllama}
	}
	return oresp.Message.Content, false, nil
}

var _ Completer = (*OllamaClient)(nil)

// errNoHost is returned by Ping when the runtime does not answer.
var errNoHost = errors.New("ollama did not respond")

// Ping checks that the runtime answers on /api/tags.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &UnreachableError{Host: c.host, Err: fmt.Errorf("%w: status %d", errNoHost, resp.StatusCode)}
	}
	return nil
}
