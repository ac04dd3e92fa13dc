package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.DefaultProvider)
	assert.Equal(t, 60, c.HTTPTimeoutSec)
	assert.Equal(t, 1, c.RetryMaxAttempts)
	assert.Equal(t, "native", c.Engine)
	assert.Equal(t, 20, c.CategoryMaxUnique)
	assert.False(t, c.HistoryEnabled)
	assert.Equal(t, "history.db", filepath.Base(c.HistoryPath))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_provider: ollama\nmax_rows: 50\n"), 0o644))
	t.Setenv("DATAVIZARD_MAX_ROWS", "75")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, 75, c.MaxRows)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rows: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("history_enabled", "true"))
	require.NoError(t, c.Set("default_model", "gpt-4.1-mini"))
	require.NoError(t, Save(c, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.True(t, back.HistoryEnabled)
	assert.Equal(t, "gpt-4.1-mini", back.DefaultModel)
}

func TestSetRejectsBadInput(t *testing.T) {
	var c Global
	assert.ErrorContains(t, c.Set("nope", "1"), "unknown config key")
	assert.ErrorContains(t, c.Set("max_rows", "many"), "invalid value for max_rows")
	require.NoError(t, c.Set("TEMPERATURE", " 0.5 "))
	assert.Equal(t, 0.5, c.Temperature)
}

func TestKeysIncludesEveryDefault(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "history_path")
	assert.Contains(t, keys, "ollama_host")
	var c Global
	for _, k := range keys {
		err := c.Set(k, "1")
		if err != nil {
			assert.NotContains(t, err.Error(), "unknown config key", k)
		}
	}
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENROUTER_API_KEY=from-file\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENROUTER_API_KEY", "")
	os.Unsetenv("OPENROUTER_API_KEY")

	s, err := LoadSecrets(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.KeyFor("openai"))
	assert.Equal(t, "from-file", s.KeyFor("openrouter"))
	assert.Empty(t, s.KeyFor("ollama"))
}

func TestLoadSecretsMissingFileIsFine(t *testing.T) {
	_, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
