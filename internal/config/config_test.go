package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REFERRAL_BONUS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "usd", cfg.StripeCurrency)
	assert.Equal(t, 5, cfg.Market.ReferralBonus)
	assert.Equal(t, 250, cfg.Market.LeadBasePrice)
	assert.Equal(t, 3, cfg.Market.LeadMaxSlots)
	assert.Equal(t, 48*time.Hour, cfg.Market.UnlockWindow)
	assert.Equal(t, 3, cfg.Market.UnlockMaxAttempts)
	assert.Equal(t, "notifications:outbound", cfg.NotifyQueueKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL_PROD", "postgres://prod")
	t.Setenv("REFERRAL_BONUS", "10")
	t.Setenv("UNLOCK_WINDOW_HOURS", "24")
	t.Setenv("STARTING_BALANCE", "500")
	t.Setenv("STRIPE_CURRENCY", "SGD")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "postgres://prod", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.Market.ReferralBonus)
	assert.Equal(t, 24*time.Hour, cfg.Market.UnlockWindow)
	assert.Equal(t, 500, cfg.Market.StartingBalance)
	assert.Equal(t, "sgd", cfg.StripeCurrency)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LEAD_MAX_SLOTS", "0")
	t.Setenv("STARTING_BALANCE", "-20")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Market.LeadMaxSlots)
	assert.Equal(t, 0, cfg.Market.StartingBalance)
}
