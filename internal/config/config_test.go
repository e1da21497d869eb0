package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORAGE_DRIVER", "TYPING_DELAY", "FOCUS_DELAY", "CATALOG_WATCH"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 900*time.Millisecond, cfg.TypingDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.FocusDelay)
	assert.False(t, cfg.CatalogWatch)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Run("durations accept Go syntax and bare milliseconds", func(t *testing.T) {
		t.Setenv("TYPING_DELAY", "1.5s")
		t.Setenv("FOCUS_DELAY", "120")

		cfg := Load()

		assert.Equal(t, 1500*time.Millisecond, cfg.TypingDelay)
		assert.Equal(t, 120*time.Millisecond, cfg.FocusDelay)
	})

	t.Run("garbage duration keeps the default", func(t *testing.T) {
		t.Setenv("TYPING_DELAY", "soon")

		assert.Equal(t, 900*time.Millisecond, Load().TypingDelay)
	})

	t.Run("driver is case-insensitive", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "SQLite")

		assert.Equal(t, DriverSQLite, Load().StorageDriver)
	})

	t.Run("bool parsing", func(t *testing.T) {
		t.Setenv("CATALOG_WATCH", "yes")

		assert.True(t, Load().CatalogWatch)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.StorageDriver = "redis" }, "unknown STORAGE_DRIVER"},
		{"postgres needs url", func(c *Config) { c.StorageDriver = DriverPostgres }, "DB_URL"},
		{"postgres with url", func(c *Config) {
			c.StorageDriver = DriverPostgres
			c.DatabaseURL = "postgres://localhost/council"
		}, ""},
		{"file needs dir", func(c *Config) {
			c.StorageDriver = DriverFile
			c.SessionDir = " "
		}, "SESSION_DIR"},
		{"negative delay", func(c *Config) { c.TypingDelay = -time.Second }, "negative"},
		{"watch without file", func(c *Config) { c.CatalogWatch = true }, "CATALOG_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				StorageDriver: DriverMemory,
				SessionDir:    "data/sessions",
				SQLitePath:    "data/sessions.db",
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
