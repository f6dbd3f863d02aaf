package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TOKEN", "WEBHOOK_SECRET", "PUBLIC_URL", "RENDER_EXTERNAL_URL", "LISTEN_ADDR", "PORT", "API_TIMEOUT", "REPLY_CATALOG"} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, "super-secret-path", cfg.WebhookSecret)
	assert.Empty(t, cfg.PublicURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Empty(t, cfg.QuickReplies)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("RENDER_EXTERNAL_URL", "https://bot.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("API_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
	assert.Equal(t, "https://bot.example.com", cfg.PublicURL)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("API_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_TIMEOUT")
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replies:\n  - \"Thanks for your note.\"\n  - \"Received.\"\n"), 0o644))

	replies, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "Thanks for your note.", replies[0])
}

func TestLoadCatalogEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replies: []\n"), 0o644))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no replies")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadWiresCatalog(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replies:\n  - \"Only one.\"\n"), 0o644))
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("REPLY_CATALOG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Only one."}, cfg.QuickReplies)
}
