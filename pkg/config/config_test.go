package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 33333, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:33333", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.SSE.HeartbeatInterval.Std())
	assert.Equal(t, []string{"gitlab-0"}, cfg.Gitlab.InternalHostPatterns)
	assert.Empty(t, cfg.Webhook.SecretToken)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 8080
log:
  level: debug
  json: true
webhook:
  secret_token: hush
gitlab:
  internal_host_patterns: ["gitlab-internal", "gitlab-0"]
sse:
  heartbeat_interval: 10s
  send_buffer: 8
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "hush", cfg.Webhook.SecretToken)
	assert.Equal(t, []string{"gitlab-internal", "gitlab-0"}, cfg.Gitlab.InternalHostPatterns)
	assert.Equal(t, 10*time.Second, cfg.SSE.HeartbeatInterval.Std())
	assert.Equal(t, 8, cfg.SSE.SendBuffer)
	assert.False(t, cfg.History.Enabled)
	// untouched keys keep defaults
	assert.Equal(t, 5*time.Second, cfg.SSE.SendTimeout.Std())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "10.0.0.5")
	t.Setenv("PORT", "9000")
	t.Setenv("WEBHOOK_SECRET_TOKEN", "sekrit")
	t.Setenv("CHAT_WEBHOOK_URL", "https://chat.example.com/hook")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9000", cfg.Server.Addr())
	assert.Equal(t, "sekrit", cfg.Webhook.SecretToken)
	assert.Equal(t, "https://chat.example.com/hook", cfg.Chat.WebhookURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml")
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: ["), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dur.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sse:\n  heartbeat_interval: soon\n"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := Load("")
		assert.Error(t, err)
	})
}
