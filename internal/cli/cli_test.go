package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/fin-advisor/internal/advisor"
	"github.com/suPer8Hu/fin-advisor/internal/auth"
	"github.com/suPer8Hu/fin-advisor/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func withConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	mutate(&cfg)
	prev := loadConfig
	loadConfig = func() (config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = prev })
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "--at", "2024-06-15", "Сколько я потратил в марте?")
	require.NoError(t, err)

	var a advisor.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, advisor.WindowNamedMonth, a.Window.Kind)
	assert.Equal(t, "2024-03-01", a.Window.Start.Format("2006-01-02"))
	assert.NotEmpty(t, a.Priority)

	_, err = run(t, "classify", "--at", "15/06/2024", "anything")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	withConfig(t, func(c *config.Config) {
		c.AIProvider = "openrouter"
		c.AIModel = "google/gemini-2.0-flash-exp:free"
		c.AIFallbacks = "ollama:llama3:latest"
		c.OpenRouterAPIKey = "sk-test"
	})
	out, err := run(t, "chain")
	require.NoError(t, err)

	var entries []chainEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.GreaterOrEqual(t, len(entries), 3)
	assert.Equal(t, "openrouter", entries[0].Provider)
	assert.True(t, entries[0].HasToken)
	assert.Equal(t, "ollama", entries[1].Provider)
	assert.Equal(t, "llama3:latest", entries[1].Model)
	assert.False(t, entries[1].HasToken)
	assert.NotContains(t, out, "sk-test")
}

func TestToken(t *testing.T) {
	withConfig(t, func(c *config.Config) { c.JWTSecret = "cli-secret" })
	out, err := run(t, "token", "--user", "42", "--ttl", "1h")
	require.NoError(t, err)

	uid, err := auth.ParseJWT(strings.TrimSpace(out), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestMigrate_SQLite(t *testing.T) {
	withConfig(t, func(c *config.Config) {
		c.DBDriver = "sqlite"
		c.DBDSN = "file:TestMigrateCLI?mode=memory&cache=shared"
	})
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated sqlite database")
}
