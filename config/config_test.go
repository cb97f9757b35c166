package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snipee", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, filepath.Dir(path), cfg.General.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Clipboard.PollInterval())
	assert.Equal(t, 100, cfg.Clipboard.MaxHistory)
	assert.Equal(t, 3, cfg.Hotkeys.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Hotkeys.RetryInterval())
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[clipboard]
max_history = 20

[sync]
url = "https://example.com/snippets.xml"
interval_seconds = 60
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Clipboard.MaxHistory)
	assert.Equal(t, 500, cfg.Clipboard.PollIntervalMs, "unset keys keep defaults")
	assert.Equal(t, "https://example.com/snippets.xml", cfg.Sync.URL)
	assert.Equal(t, time.Minute, cfg.Sync.Interval())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[clipboard]\nmax_history = 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Web.Port = 9000
	require.NoError(t, cfg.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, again.Web.Port)
}
