package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigHome redirects XDG_CONFIG_HOME for the duration of a test.
func pointConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestLoadDefaults(t *testing.T) {
	pointConfigHome(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRemoteOwner, cfg.Remote.Owner)
	assert.Equal(t, DefaultRemoteRepo, cfg.Remote.Repo)
	assert.Equal(t, DefaultRemoteRef, cfg.Remote.Ref)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BackoffBase)
	assert.Equal(t, 8*time.Second, cfg.Retry.BackoffMax)
	assert.Equal(t, 30*time.Second, cfg.Retry.RequestTimeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	pointConfigHome(t, home)

	dir := filepath.Join(home, "scribe")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
project: demo
remote:
  owner: someone
  repo: their-resources
  ref: v2
retry:
  max_retries: 5
  backoff_max: 4s
logging:
  level: debug
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Project)
	assert.Equal(t, "someone", cfg.Remote.Owner)
	assert.Equal(t, "their-resources", cfg.Remote.Repo)
	assert.Equal(t, "v2", cfg.Remote.Ref)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 4*time.Second, cfg.Retry.BackoffMax)
	// Keys the file omits keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BackoffBase)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	pointConfigHome(t, t.TempDir())
	t.Setenv("SCRIBE_REMOTE_REF", "next")
	t.Setenv("SCRIBE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "next", cfg.Remote.Ref)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, DefaultRemoteOwner, cfg.Remote.Owner)
}

func TestLoadMalformedFile(t *testing.T) {
	home := t.TempDir()
	pointConfigHome(t, home)

	dir := filepath.Join(home, "scribe")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}
