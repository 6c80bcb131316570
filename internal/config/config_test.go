package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "openrouter", cfg.AIProvider)
	assert.Equal(t, 10, cfg.ChatContextWindowSize)
	assert.Equal(t, 10000, cfg.ContextMaxChars)
	assert.Equal(t, 10*time.Minute, cfg.AggregateCacheTTL)
	assert.Equal(t, "advice_jobs", cfg.RabbitQueue)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_DSN", "file:advisor.db")
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("AI_TIMEOUT", "15s")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("AI_FREE_TIER_FALLBACKS", "false")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("CONTEXT_MAX_CHARS", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:advisor.db", cfg.DBDSN)
	assert.Equal(t, "ollama", cfg.AIProvider)
	assert.Equal(t, 15*time.Second, cfg.AITimeout)
	assert.InDelta(t, 0.2, cfg.AITemperature, 1e-9)
	assert.False(t, cfg.AIFreeTierFallbacks)
	assert.Equal(t, 50, cfg.WorkerConcurrency, "capped")
	assert.Equal(t, 2500, cfg.ContextMaxChars)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\nollama_model: mistral\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OLLAMA_MODEL", "qwen2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "qwen2", cfg.OllamaModel, "environment wins over the file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestProviderChain(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.AIProvider = "openrouter"
	cfg.AIModel = "google/gemini-2.0-flash-exp:free"
	cfg.AIFallbacks = "ollama:llama3, gemini:gemini-1.5-flash"
	cfg.OpenRouterAPIKey = "k"
	cfg.AIFreeTierFallbacks = true

	primary, chain, err := cfg.ProviderChain()
	require.NoError(t, err)
	assert.Equal(t, "openrouter:google/gemini-2.0-flash-exp:free", primary.String())
	assert.Equal(t, "k", primary.AuthToken)

	var names []string
	for _, s := range chain {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{
		"ollama:llama3",
		"gemini:gemini-1.5-flash",
		"openrouter:deepseek/deepseek-r1:free",
		"openrouter:meta-llama/llama-3-8b-instruct:free",
		"openrouter:deepseek/deepseek-chat",
	}, names)
	assert.Equal(t, cfg.OllamaBaseURL, chain[0].BaseURL)

	cfg.AIFreeTierFallbacks = false
	_, chain, err = cfg.ProviderChain()
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	cfg.AIProvider = "anthropic"
	cfg.AIModel = ""
	cfg.AnthropicAPIKey = "ak"
	primary, _, err = cfg.ProviderChain()
	require.NoError(t, err)
	assert.Equal(t, "anthropic:"+cfg.AnthropicModel, primary.String())
	assert.Equal(t, "ak", primary.AuthToken)
	assert.Equal(t, "https://api.anthropic.com/v1", primary.BaseURL)

	cfg.AIProvider = "nobody"
	_, _, err = cfg.ProviderChain()
	assert.Error(t, err)

	cfg.AIProvider = "ollama"
	cfg.AIFallbacks = "nobody:model"
	_, _, err = cfg.ProviderChain()
	assert.Error(t, err)
}
