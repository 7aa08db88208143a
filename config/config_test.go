package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("VOUCHER_EXPIRY_CRON", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, "@daily", cfg.VoucherExpiryCron)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/salon.db")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/salon.db", cfg.DB.Path)
	assert.Equal(t, 12, cfg.LowStockThreshold)
	assert.True(t, cfg.OTelEnabled)
	assert.InDelta(t, 0.25, cfg.OTelSampleRatio, 1e-9)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LOW_STOCK_THRESHOLD", "many")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.InDelta(t, 1.0, cfg.OTelSampleRatio, 1e-9)
}
