package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.App.APIKey = "k"
	_, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK(), res.Errors)
	assert.Equal(t, []string{"wuzzuf", "indeed"}, cfg.EnabledSources())
	assert.Contains(t, cfg.Scrape.Keywords, "Flutter")
	assert.Contains(t, cfg.Scrape.Synonyms["tester"], "qa")
	assert.Contains(t, cfg.Scrape.RegionTerms, "Egypt")
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "https://wuzzuf.net", cfg.Sources.Wuzzuf.BaseURL)
	assert.Equal(t, 30, cfg.Scheduler.PollSeconds)
}

func TestEnsureUserConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 1\n"), 0o644))
	again, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	b, _ := os.ReadFile(again)
	assert.Equal(t, "app:\n  port: 1\n", string(b), "existing file must not be overwritten")
}

func TestEnsureUserConfigGeneratesAPIKey(t *testing.T) {
	first, err := EnsureUserConfig(filepath.Join(t.TempDir(), "a"))
	require.NoError(t, err)
	second, err := EnsureUserConfig(filepath.Join(t.TempDir(), "b"))
	require.NoError(t, err)

	a, err := Load(first)
	require.NoError(t, err)
	b, err := Load(second)
	require.NoError(t, err)

	assert.Len(t, a.App.APIKey, 64)
	assert.NotEqual(t, a.App.APIKey, b.App.APIKey)
	_, res := NormalizeAndValidate(a)
	assert.True(t, res.OK())
	assert.NotContains(t, res.Warnings, "app.api_key is empty; every /api request except health is rejected.")
	assert.Empty(t, Default().App.APIKey)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TECHFLOW_PORT", "7000")
	t.Setenv("TECHFLOW_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, "secret", cfg.App.APIKey)
	assert.Equal(t, "bot-token", cfg.Channels.Telegram.Token)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Scrape.Keywords = []string{" Go ", "go", "", "Rust"}
	cfg.Scrape.ProgressEvery = 0
	cfg.Sources.Wuzzuf.BaseURL = "not a url"
	cfg.Sources.Email.Enabled = true

	out, res := NormalizeAndValidate(cfg)
	assert.Equal(t, []string{"Go", "Rust"}, out.Scrape.Keywords)
	assert.False(t, res.OK())
	assert.Contains(t, res.Errors, "scrape.progress_every must be > 0")
	assert.Contains(t, res.Errors, "sources.wuzzuf.base_url must be an absolute URL")
	assert.Contains(t, res.Errors, "sources.email.username is required when email is enabled")
	assert.Contains(t, res.Warnings, "app.api_key is empty; every /api request except health is rejected.")
}

func TestSaveAtomicKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	cfg := Default()
	cfg.App.Port = 8123
	require.NoError(t, SaveAtomic(path, cfg))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "old", string(bak))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.App.Port)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)

	cfg.App.Port = 0
	err = SaveAtomic(path, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.port")
}
