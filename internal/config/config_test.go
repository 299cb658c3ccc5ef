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
	t.Run("uses defaults without file or env", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, ":5000", cfg.Server.Address)
		assert.Equal(t, "deviceId", cfg.Device.CookieName)
		assert.Equal(t, 500*time.Millisecond, cfg.Import.Delay)
		assert.Equal(t, 50, cfg.Import.MaxAddresses)
		assert.Equal(t, 10000, cfg.Import.MaxInputChars)
		assert.Equal(t, 200, cfg.Import.MaxAddressLength)
		assert.False(t, cfg.UsePostgres())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "server:\n  address: \":8080\"\nimport:\n  max_addresses: 10\n  delay: 1s\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		t.Setenv(ConfigPathEnvVar, path)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Address)
		assert.Equal(t, 10, cfg.Import.MaxAddresses)
		assert.Equal(t, time.Second, cfg.Import.Delay)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":8080\"\n"), 0644))
		t.Setenv(ConfigPathEnvVar, path)
		t.Setenv("MAPGROUPS_SERVER__ADDRESS", ":9090")
		t.Setenv("MAPGROUPS_SECURITY__CORS_ORIGINS", "http://a.test, http://b.test")
		t.Setenv("DATABASE_URL", "postgres://localhost/mapgroups")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Address)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.CORSOrigins)
		assert.True(t, cfg.UsePostgres())
	})

	t.Run("rejects invalid limits", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
		t.Setenv("MAPGROUPS_IMPORT__MAX_ADDRESSES", "0")

		_, err := Load()

		assert.Error(t, err)
	})
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "geocoder.user_agent", envTransformFunc("MAPGROUPS_GEOCODER__USER_AGENT"))
	assert.Equal(t, "database.path", envTransformFunc("DATABASE_PATH"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}
