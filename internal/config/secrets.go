package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Secrets are read from the environment only, never from config.yaml.
type Secrets struct {
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenRouterKey string `env:"OPENROUTER_API_KEY"`
}

// LoadSecrets loads the optional dotenv files (".env" when none are given)
// without overriding variables already set, then parses Secrets.
func LoadSecrets(files ...string) (Secrets, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// KeyFor returns the API key used by provider, if any.
func (s Secrets) KeyFor(provider string) string {
	switch provider {
	case "openai":
		return s.OpenAIKey
	case "openrouter":
		return s.OpenRouterKey
	}
	return ""
}
