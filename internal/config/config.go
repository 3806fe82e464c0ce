package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// SiteOrigin is the public origin the checkout redirect URLs are built
	// from, e.g. https://example.com.
	SiteOrigin string

	StripeAPIKey        string
	StripeWebhookSecret string

	// Price of the premium membership, fixed at record creation.
	MembershipPriceID  string
	MembershipAmount   int64
	MembershipCurrency string

	AccessTokenSecret string
	AccessTokenTTL    time.Duration

	// WebhookStrictMatch makes the webhook processor report an error when an
	// event references a session or intent with no local record. The default
	// acknowledges such events so the provider does not retry them.
	WebhookStrictMatch bool

	HTTPAddr string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
}

// RateLimitConfig configures the redis-backed limiter on access verification.
type RateLimitConfig struct {
	Enabled     bool
	RedisAddr   string
	RedisDB     int
	VerifyRate  float64
	VerifyBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "membergate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		SiteOrigin: strings.TrimRight(getenv("SITE_ORIGIN", "http://localhost:8080"), "/"),

		StripeAPIKey:        strings.TrimSpace(getenv("STRIPE_API_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),

		MembershipPriceID:  getenv("MEMBERSHIP_PRICE_ID", "price_premium_membership"),
		MembershipAmount:   getenvInt64("MEMBERSHIP_AMOUNT", 200),
		MembershipCurrency: strings.ToLower(getenv("MEMBERSHIP_CURRENCY", "usd")),

		AccessTokenSecret: strings.TrimSpace(getenv("ACCESS_TOKEN_SECRET", "")),
		AccessTokenTTL:    getenvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		WebhookStrictMatch: getenvBool("WEBHOOK_STRICT_MATCH", false),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "membergate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:   strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisDB:     getenvInt("RATE_LIMIT_REDIS_DB", 0),
			VerifyRate:  getenvFloat("RATE_LIMIT_VERIFY_RATE", 1),
			VerifyBurst: getenvInt("RATE_LIMIT_VERIFY_BURST", 5),
		},
	}

	return cfg
}

// Validate enforces the secrets the process cannot run without. Missing
// values fail startup, not individual requests.
func (c Config) Validate() error {
	var missing []string
	if c.StripeAPIKey == "" {
		missing = append(missing, "STRIPE_API_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}
	if strings.TrimSpace(c.DBName) == "" {
		missing = append(missing, "DATABASE_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.MembershipAmount <= 0 {
		return errors.New("MEMBERSHIP_AMOUNT must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
