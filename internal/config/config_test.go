package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DAILY_FREE_CREDITS", "")
	t.Setenv("CONFIG_CACHE_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Credits.DailyFreeCredits)
	assert.Equal(t, 5*time.Minute, cfg.Credits.ConfigCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.Ai.RequestTimeout)
	assert.Equal(t, "@every 1m", cfg.Credits.StaleSweepSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DAILY_FREE_CREDITS", "25")
	t.Setenv("CONFIG_CACHE_TTL_SECONDS", "30")
	t.Setenv("AI_RATE_LIMIT_PER_MINUTE", "3")
	t.Setenv("GO_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Credits.DailyFreeCredits)
	assert.Equal(t, 30*time.Second, cfg.Credits.ConfigCacheTTL)
	assert.Equal(t, 3, cfg.Credits.AiRateLimitPerMin)
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	assert.Equal(t, 587, getEnvAsInt("SMTP_PORT", 587))
}

func TestLoadRejectsStaleWindowWithinTimeout(t *testing.T) {
	t.Setenv("AI_REQUEST_TIMEOUT_SECONDS", "120")
	t.Setenv("STALE_REQUEST_MINUTES", "1")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "STALE_REQUEST_MINUTES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		stale   time.Duration
		wantErr bool
	}{
		{"defaults", 60 * time.Second, 10 * time.Minute, false},
		{"equal", time.Minute, time.Minute, true},
		{"shorter", 2 * time.Minute, time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Ai: AIConfig{RequestTimeout: tt.timeout}, Credits: CreditConfig{StaleRequestAfter: tt.stale}}
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
