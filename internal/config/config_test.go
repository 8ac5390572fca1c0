package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	dir := filepath.Join(workspace, ".opsdeck")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.API.BaseURL)
	assert.Equal(t, filepath.Join(ws, ".opsdeck", "drafts.db"), cfg.Drafts.DatabasePath)
	assert.False(t, cfg.Logging.DebugMode)
}

func TestLoadParsesFile(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
api:
  base_url: https://console.internal/api/v1
  token: tok-abc
  timeout: 10s
defaults:
  actor: mgr-7
logging:
  debug_mode: true
  level: debug
  categories:
    api: false
`)

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "https://console.internal/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "tok-abc", cfg.API.Token)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, "mgr-7", cfg.Defaults.Actor)
	assert.True(t, cfg.Logging.DebugMode)
	assert.False(t, cfg.Logging.Categories["api"])
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "api: [unclosed")

	_, err := Load(ws)
	require.Error(t, err)
}

func TestEnvOverridesWin(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
api:
  base_url: https://console.internal/api/v1
  token: from-file
`)
	t.Setenv("OPSDECK_API_TOKEN", "from-env")
	t.Setenv("OPSDECK_ACTOR", "mgr-env")

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.Token)
	assert.Equal(t, "mgr-env", cfg.Defaults.Actor)
	assert.Equal(t, "https://console.internal/api/v1", cfg.API.BaseURL)
}

func TestAPITimeoutFallback(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeout: "not-a-duration"}}
	assert.Equal(t, 30*time.Second, cfg.APITimeout())

	cfg.API.Timeout = "2m"
	assert.Equal(t, 2*time.Minute, cfg.APITimeout())
}
