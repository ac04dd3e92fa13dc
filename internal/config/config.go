package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	// MaxPromptTokens refuses to send larger prompts; 0 disables the check.
	MaxPromptTokens int `mapstructure:"max_prompt_tokens" yaml:"max_prompt_tokens"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Loading
	Engine            string `mapstructure:"engine" yaml:"engine"`
	MaxRows           int    `mapstructure:"max_rows" yaml:"max_rows"`
	CategoryMaxUnique int    `mapstructure:"category_max_unique" yaml:"category_max_unique"`

	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`
	HistoryPath    string `mapstructure:"history_path" yaml:"history_path"`
	ExportDir      string `mapstructure:"export_dir" yaml:"export_dir"`
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datavizard"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datavizard/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaults(v *viper.Viper) {
	v.SetDefault("default_provider", "openai")
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_prompt_tokens", 8000)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("engine", "native")
	v.SetDefault("max_rows", 100000)
	v.SetDefault("category_max_unique", 20)
	v.SetDefault("history_enabled", false)
	v.SetDefault("history_path", "")
	v.SetDefault("export_dir", "")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAVIZARD")
	v.AutomaticEnv()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing file is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryPath = filepath.Join(dir, "history.db")
	}
	return &c, nil
}

// Keys lists the settable configuration keys.
func Keys() []string {
	v := viper.New()
	defaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set assigns key from its string form, parsing it by the field's type.
func (c *Global) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "default_provider":
		c.DefaultProvider = value
	case "default_model":
		c.DefaultModel = value
	case "max_tokens":
		c.MaxTokens, err = strconv.Atoi(value)
	case "temperature":
		c.Temperature, err = strconv.ParseFloat(value, 64)
	case "max_prompt_tokens":
		c.MaxPromptTokens, err = strconv.Atoi(value)
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = strconv.Atoi(value)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = strconv.Atoi(value)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = strconv.Atoi(value)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = strconv.Atoi(value)
	case "ollama_host":
		c.OllamaHost = value
	case "engine":
		c.Engine = value
	case "max_rows":
		c.MaxRows, err = strconv.Atoi(value)
	case "category_max_unique":
		c.CategoryMaxUnique, err = strconv.Atoi(value)
	case "history_enabled":
		c.HistoryEnabled, err = strconv.ParseBool(value)
	case "history_path":
		c.HistoryPath = value
	case "export_dir":
		c.ExportDir = value
	default:
		return fmt.Errorf("unknown config key %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
