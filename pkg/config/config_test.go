package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, DriverPQ, cfg.Database.Driver)
	assert.Equal(t, 75.0, cfg.Reports.AttendanceThreshold)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("REPORT_ATTENDANCE_THRESHOLD", "80.5")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://school.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, DriverPGX, cfg.Database.Driver)
	assert.Equal(t, 80.5, cfg.Reports.AttendanceThreshold)
	assert.Equal(t, []string{"http://localhost:5173", "https://school.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadOutOfRangeThresholdFallsBack(t *testing.T) {
	t.Setenv("REPORT_ATTENDANCE_THRESHOLD", "150")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Reports.AttendanceThreshold)
}

func TestLoadAcceptsZeroThreshold(t *testing.T) {
	t.Setenv("REPORT_ATTENDANCE_THRESHOLD", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Reports.AttendanceThreshold)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}
