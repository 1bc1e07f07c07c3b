package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "alerts", cfg.RedisStream)
	assert.Equal(t, "localhost:11211", cfg.MemcacheAddr)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 45*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 5*time.Second, cfg.DomainRateLimit)
	assert.Equal(t, 10.0, cfg.PriceDropThreshold)
	assert.Equal(t, 24*time.Hour, cfg.AlertDedupWindow)
	assert.Equal(t, 5, cfg.MaxConsecutiveErrors)
	assert.Equal(t, "development", cfg.Environment)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "10")
	t.Setenv("RENDER_TIMEOUT_SECONDS", "60")
	t.Setenv("PRICE_DROP_THRESHOLD", "15.5")
	t.Setenv("ALERT_DEDUP_HOURS", "48")

	cfg := LoadConfig()

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 60*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 15.5, cfg.PriceDropThreshold)
	assert.Equal(t, 48*time.Hour, cfg.AlertDedupWindow)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database url", func(c *Config) { c.DatabaseURL = "" }},
		{"empty redis addr", func(c *Config) { c.RedisAddr = "" }},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"render shorter than fetch", func(c *Config) { c.RenderTimeout = c.FetchTimeout - time.Second }},
		{"negative drop threshold", func(c *Config) { c.PriceDropThreshold = -1 }},
		{"threshold above 100", func(c *Config) { c.PriceDropThreshold = 150 }},
		{"zero dedup window", func(c *Config) { c.AlertDedupWindow = 0 }},
		{"zero concurrency", func(c *Config) { c.WorkerConcurrency = 0 }},
		{"zero error threshold", func(c *Config) { c.MaxConsecutiveErrors = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadConfig()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
