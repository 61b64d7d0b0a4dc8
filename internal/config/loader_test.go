package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("LOGITOON_TEST_HOST", "db.internal")

	tests := []struct {
		in   string
		want string
	}{
		{"host: ${LOGITOON_TEST_HOST}", "host: db.internal"},
		{"host: ${LOGITOON_TEST_HOST:localhost}", "host: db.internal"},
		{"port: ${LOGITOON_TEST_MISSING:5432}", "port: 5432"},
		{"key: ${LOGITOON_TEST_MISSING:}", "key: "},
		{"raw: ${LOGITOON_TEST_MISSING}", "raw: ${LOGITOON_TEST_MISSING}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnv(tt.in), tt.in)
	}
}

func TestLoadFromMergesEnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
server:
  http:
    port: ${LOGITOON_TEST_PORT:9090}
render:
  batch_size: 4
`)
	writeConfig(t, dir, "config.staging.yaml", `
render:
  inline: true
`)
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTP.Port)
	assert.Equal(t, 4, cfg.Render.BatchSize)
	assert.True(t, cfg.Render.Inline)
	assert.Equal(t, 2500*time.Millisecond, cfg.Render.BatchDelay)
	assert.Equal(t, 100, cfg.Prompts.CacheSize)
	assert.Equal(t, time.Hour, cfg.Prompts.CacheTTL)
	assert.Equal(t, "logitoon-ai-api", cfg.App.Name)
}

func TestLoadFromBindsPromptVersionEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "app:\n  name: logitoon-ai-api\n")
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORY_PROMPT_VERSION", "v2.0")
	t.Setenv("PROMPTS_VISUAL_VERSION", "v6.0")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "v2.0", cfg.Prompts.StoryVersion)
	assert.Equal(t, "v6.0", cfg.Prompts.VisualVersion)
	assert.Empty(t, cfg.Prompts.LogicVersion)
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
