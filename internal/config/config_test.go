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
	t.Setenv("JWT_SECRET", "test-secret-for-config")

	t.Run("defaults when no file given", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 24*time.Hour, cfg.UndoWindow())
		assert.Equal(t, 5*time.Minute, cfg.RatesCacheTTL())
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  db_path: /tmp/test.db
planner:
  undo_window: 48h
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/tmp/test.db", cfg.Server.DBPath)
		assert.Equal(t, 48*time.Hour, cfg.UndoWindow())
		// Untouched sections keep their defaults.
		assert.Equal(t, 3, cfg.Rates.MaxRetries)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
	})

	t.Run("missing secret fails validation", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad duration fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("planner:\n  undo_window: soon\n"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
