package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9090},
		"checkout": {"fee_schedule": "percentage", "base_fee_bps": 250, "delivery_fee_bps": 100},
		"gateway": {"base_url": "http://payments.internal"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, FeeSchedulePercentage, cfg.Checkout.FeeSchedule)
	assert.Equal(t, int64(250), cfg.Checkout.BaseFeeBps)
	assert.Equal(t, "COP", cfg.Checkout.Currency)
	assert.Equal(t, "http://payments.internal", cfg.Gateway.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Checkout.SessionTTLDuration())
	assert.Equal(t, 15*time.Second, cfg.Gateway.TimeoutDuration())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("GATEWAY_BASE_URL", "http://gw:3001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "8181")

	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "http://gw:3001", cfg.Gateway.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"checkout": {"max_items": 10}}`))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty currency", func(c *Config) { c.Checkout.Currency = " " }, "checkout.currency"},
		{"negative fee", func(c *Config) { c.Checkout.DeliveryFee = -1 }, "fees must not be negative"},
		{"unknown schedule", func(c *Config) { c.Checkout.FeeSchedule = "tiered" }, "fee_schedule"},
		{"zero ttl", func(c *Config) { c.Checkout.SessionTTL = 0 }, "session_ttl"},
		{"no gateway", func(c *Config) { c.Gateway.BaseURL = "" }, "gateway.base_url"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := Default().Database
	cfg.Password = "pw"
	assert.Equal(t, "host=localhost port=5432 user=postgres password=pw dbname=checkout sslmode=disable", cfg.GetDSN())
}
