package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	CreditPriceCents    int64
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string

	Market Market
	// NotifyQueueKey is the Redis list that receives outbound notification events.
	NotifyQueueKey string
}

// Market holds the allocation and ledger knobs.
type Market struct {
	StartingBalance   int
	ReferralBonus     int
	LeadBasePrice     int
	LeadMaxSlots      int
	UnlockWindow      time.Duration
	UnlockMaxAttempts int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("CREDIT_PRICE_CENTS", 100)
	v.SetDefault("STARTING_BALANCE", 0)
	v.SetDefault("REFERRAL_BONUS", 5)
	v.SetDefault("LEAD_BASE_PRICE", 250)
	v.SetDefault("LEAD_MAX_SLOTS", 3)
	v.SetDefault("UNLOCK_WINDOW_HOURS", 48)
	v.SetDefault("UNLOCK_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_QUEUE_KEY", "notifications:outbound")

	env := v.GetString("APP_ENV")

	dbURL := v.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = v.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = v.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		CreditPriceCents:    v.GetInt64("CREDIT_PRICE_CENTS"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		Market: Market{
			StartingBalance:   nonNegative(v.GetInt("STARTING_BALANCE"), 0),
			ReferralBonus:     positive(v.GetInt("REFERRAL_BONUS"), 5),
			LeadBasePrice:     positive(v.GetInt("LEAD_BASE_PRICE"), 250),
			LeadMaxSlots:      positive(v.GetInt("LEAD_MAX_SLOTS"), 3),
			UnlockWindow:      time.Duration(positive(v.GetInt("UNLOCK_WINDOW_HOURS"), 48)) * time.Hour,
			UnlockMaxAttempts: positive(v.GetInt("UNLOCK_MAX_ATTEMPTS"), 3),
		},
		NotifyQueueKey: v.GetString("NOTIFY_QUEUE_KEY"),
	}, nil
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

func nonNegative(n, fallback int) int {
	if n < 0 {
		return fallback
	}
	return n
}
