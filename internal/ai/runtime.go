package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Completer sends one prompt to a completion service and returns its text.
// Implementations surface failures as the typed errors in this package.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Default models per provider.
const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultOllamaModel     = "llama3.1:8b"
)

// SystemPrompt frames every completion request.
const SystemPrompt = "You are an expert data visualisation analyst. You answer with Python code that uses pandas and matplotlib or seaborn."

// RuntimeConfig carries common knobs used by completers.
type RuntimeConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64

	HTTPTimeout time.Duration
	// RetryMax is the total number of attempts for transient failures.
	// Zero means a single attempt.
	RetryMax  int
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// OpenAI / OpenRouter
	APIKey string
	// BaseURL overrides the provider endpoint (tests, proxies).
	BaseURL string
	// Ollama
	Host string
}

func (c RuntimeConfig) withDefaults(model string) RuntimeConfig {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = model
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 60 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 4 * time.Second
	}
	return c
}

// CompleterFactory builds a Completer from the generic config.
type CompleterFactory func(RuntimeConfig) (Completer, error)

var registry = map[string]CompleterFactory{}

// RegisterCompleter registers a provider name with its factory.
func RegisterCompleter(name string, f CompleterFactory) { registry[strings.ToLower(name)] = f }

// Providers lists registered provider names in sorted order.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewCompleter creates the Completer registered for provider.
func NewCompleter(provider string, cfg RuntimeConfig) (Completer, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(Providers(), ", "))
	}
	return f(cfg)
}

func init() {
	RegisterCompleter(ProviderOpenAI, func(c RuntimeConfig) (Completer, error) {
		return NewOpenAICompleter(c.withDefaults(DefaultOpenAIModel))
	})
	RegisterCompleter(ProviderOpenRouter, func(c RuntimeConfig) (Completer, error) {
		return NewClient(c.withDefaults(DefaultOpenRouterModel))
	})
	RegisterCompleter(ProviderOllama, func(c RuntimeConfig) (Completer, error) {
		return NewOllamaClient(c.withDefaults(DefaultOllamaModel)), nil
	})
}
