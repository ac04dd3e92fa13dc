package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datavizard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set datavizard configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "default_provider: %s\n", c.DefaultProvider)
		fmt.Fprintf(out, "default_model: %s\n", c.DefaultModel)
		fmt.Fprintf(out, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(out, "max_prompt_tokens: %d\n", c.MaxPromptTokens)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
		fmt.Fprintf(out, "ollama_host: %s\n", c.OllamaHost)
		fmt.Fprintf(out, "engine: %s\n", c.Engine)
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		fmt.Fprintf(out, "category_max_unique: %d\n", c.CategoryMaxUnique)
		fmt.Fprintf(out, "history_enabled: %t\n", c.HistoryEnabled)
		fmt.Fprintf(out, "history_path: %s\n", c.HistoryPath)
		if c.ExportDir != "" {
			fmt.Fprintf(out, "export_dir: %s\n", c.ExportDir)
		}
		if s, err := cfgpkg.LoadSecrets(); err == nil {
			fmt.Fprintf(out, "OPENAI_API_KEY: %s\n", mask(s.OpenAIKey))
			fmt.Fprintf(out, "OPENROUTER_API_KEY: %s\n", mask(s.OpenRouterKey))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if key == "default_provider" {
			switch strings.ToLower(val) {
			case "openai", "openrouter", "ollama":
				val = strings.ToLower(val)
			case "local":
				val = "ollama"
			default:
				return fmt.Errorf("invalid default_provider: %s (use openai, openrouter or ollama)", val)
			}
		}
		if key == "engine" && val != "native" && val != "duckdb" {
			return fmt.Errorf("invalid engine: %s (use native or duckdb)", val)
		}
		if err := c.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
