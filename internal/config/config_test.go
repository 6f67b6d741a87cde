// This test file verifies the configuration loading logic using Viper.

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults when no config file", func(t *testing.T) {
		os.Remove("config.yml")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8090, cfg.Port)
		assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.Tracker.RefreshInterval)
		assert.Equal(t, 1500*time.Millisecond, cfg.Poll.Interval)
		assert.Equal(t, 60*time.Second, cfg.Poll.Timeout)
		assert.Equal(t, 500, cfg.Preview.RequestSize)
		assert.Equal(t, 50, cfg.Preview.PageSize)
		assert.Equal(t, "./cne-console.db", cfg.Database.Path)
		assert.Empty(t, cfg.Inbox.Path)
	})

	t.Run("Loads from config file", func(t *testing.T) {
		configContent := `
port: 9999
backend:
  base_url: "http://backend:8000"
  timeout: 5s
database:
  path: "/tmp/test.db"
inbox:
  path: "/tmp/inbox"
  infer_only: true
unknown_setting: "should be ignored"
`
		// Viper looks in the CWD, so t.TempDir() is not used here.
		configPath := "config.yml"
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
		defer os.Remove(configPath)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.Port)
		assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
		assert.Equal(t, "/tmp/inbox", cfg.Inbox.Path)
		assert.True(t, cfg.Inbox.InferOnly)
		assert.Equal(t, 5*time.Second, cfg.Tracker.RefreshInterval, "unset keys keep defaults")
	})

	t.Run("Environment overrides", func(t *testing.T) {
		os.Remove("config.yml")
		t.Setenv("CNE_BACKEND_BASE_URL", "http://env-backend:9000")
		t.Setenv("CNE_PORT", "7000")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://env-backend:9000", cfg.Backend.BaseURL)
		assert.Equal(t, 7000, cfg.Port)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.Tracker.MaxParallel)
	assert.Equal(t, 2*time.Second, cfg.Inbox.Debounce)
}
