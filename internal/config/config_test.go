package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults Without File", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "scraper_data.db", cfg.Database.Path)
		assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
		assert.Equal(t, 3, cfg.Pool.Workers)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.Equal(t, time.Minute, cfg.Retry.BaseDelay)
		assert.Equal(t, "exports", cfg.Export.Dir)
		assert.True(t, cfg.Monitor.Enabled)
	})

	t.Run("File Overrides Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /var/lib/scraper/data.db
pool:
  workers: 2
retry:
  max_attempts: 5
  base_delay: 10s
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/scraper/data.db", cfg.Database.Path)
		assert.Equal(t, 2, cfg.Pool.Workers)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
		assert.Equal(t, 10*time.Second, cfg.Retry.BaseDelay)
		// Untouched keys keep their defaults.
		assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	})

	t.Run("Explicit Missing File Is An Error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
