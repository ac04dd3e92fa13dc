package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAICompleter calls OpenAI's Responses API.
type OpenAICompleter struct {
	client openai.Client
	cfg    RuntimeConfig
}

// NewOpenAICompleter builds a completer. The SDK's own retries are bounded by
// cfg.RetryMax so a single attempt stays a single attempt.
func NewOpenAICompleter(cfg RuntimeConfig) (*OpenAICompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is missing")
	}
	cfg = cfg.withDefaults(DefaultOpenAIModel)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.RetryMax - 1),
		option.WithRequestTimeout(cfg.HTTPTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAICompleter{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model:        c.cfg.Model,
		Instructions: openai.String(SystemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(c.cfg.MaxTokens))
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", c.mapError(ctx, err)
	}
	if resp.Status == "incomplete" {
		return "", fmt.Errorf("response is incomplete (reason = %s)", resp.IncompleteDetails.Reason)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", &EmptyResponseError{Provider: ProviderOpenAI}
	}
	return text, nil
}

// mapError converts SDK errors into this package's typed errors.
func (c *OpenAICompleter) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return &UnreachableError{Host: c.cfg.BaseURL, Err: err}
	}
	apiErr := &APIError{StatusCode: sdkErr.StatusCode, Code: sdkErr.Code, Message: sdkErr.Message}
	var header http.Header
	if sdkErr.Response != nil {
		apiErr.RequestID = extractRequestID(sdkErr.Response)
		header = sdkErr.Response.Header
	}
	return classifyAPIError(apiErr, header)
}
