package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a file that does not exist so a developer's
// .env never leaks into the test.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "larder.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, time.Minute, cfg.Sweep.InitialDelay)
	assert.Equal(t, 4, cfg.Sweep.Concurrency)
	assert.Equal(t, 3, cfg.Backup.Hour)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.NotNil(t, cfg.Location)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LARDER_PORT", "9090")
	t.Setenv("LARDER_TZ", "Europe/Moscow")
	t.Setenv("LARDER_SWEEP_INTERVAL", "12h")
	t.Setenv("LARDER_SWEEP_ENABLED", "false")
	t.Setenv("LARDER_SWEEP_CONCURRENCY", "8")
	t.Setenv("LARDER_POSTMARK_TOKEN", "tok")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, 12*time.Hour, cfg.Sweep.Interval)
	assert.False(t, cfg.Sweep.Enabled)
	assert.Equal(t, 8, cfg.Sweep.Concurrency)
	assert.Equal(t, "tok", cfg.Email.PostmarkToken)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LARDER_DB_PATH=/data/larder.db\nLARDER_BACKUP_HOUR=5\n"), 0600))
	t.Cleanup(func() {
		os.Unsetenv("LARDER_DB_PATH")
		os.Unsetenv("LARDER_BACKUP_HOUR")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/larder.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.Backup.Hour)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LARDER_PORT=7000\n"), 0600))
	t.Setenv("LARDER_PORT", "7100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("LARDER_SWEEP_INTERVAL", "daily")
	t.Setenv("LARDER_SWEEP_CONCURRENCY", "many")
	t.Setenv("LARDER_BACKUP_HOUR", "25")
	t.Setenv("LARDER_TZ", "Mars/Olympus")

	_, err := Load(noEnvFile(t))
	require.Error(t, err)
	for _, want := range []string{"LARDER_SWEEP_INTERVAL", "LARDER_SWEEP_CONCURRENCY", "LARDER_BACKUP_HOUR", "LARDER_TZ"} {
		assert.Contains(t, err.Error(), want)
	}
}
