// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Ledger         LedgerConfig
	Payment        PaymentConfig
	Reconciliation ReconciliationConfig
	AWS            AWSConfig
	I18n           I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// LedgerConfig points the chain client at an indexer for the public ledger
// the marketplace contract lives on.
type LedgerConfig struct {
	Network        string
	IndexerURL     string
	APIKey         string
	PaymentAsset   string // smallest-unit asset listings are priced in
	RequestTimeout int    // in seconds
}

type PaymentConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
}

// ReconciliationConfig carries every parameter the settlement engine needs.
// It is injected explicitly so engine behavior stays deterministic under test.
type ReconciliationConfig struct {
	MinConfirmations      int
	ListingFeeBps         int // basis points of the settled amount
	MarketplaceCutBps     int
	MaxSettlementAttempts int
	PollIntervalSeconds   int
	BackoffBaseSeconds    int
	BackoffCapSeconds     int
	CreditUnitMinor       int64 // minor units per listing credit point
	DriftCheckSeconds     int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	ArtifactURLTTL  int // in seconds
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "legionx"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Ledger: LedgerConfig{
			Network:        getEnv("LEDGER_NETWORK", "preprod"),
			IndexerURL:     getEnv("LEDGER_INDEXER_URL", ""),
			APIKey:         getEnv("LEDGER_API_KEY", ""),
			PaymentAsset:   getEnv("LEDGER_PAYMENT_ASSET", "lovelace"),
			RequestTimeout: getEnvAsInt("LEDGER_REQUEST_TIMEOUT", 10),
		},
		Payment: PaymentConfig{
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:            getEnv("PAYMENT_CURRENCY", "usd"),
			CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/purchase/success"),
			CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/purchase/cancel"),
		},
		Reconciliation: ReconciliationConfig{
			MinConfirmations:      getEnvAsInt("MIN_CONFIRMATIONS", 2),
			ListingFeeBps:         getEnvAsInt("LISTING_FEE_BPS", 100),      // 1%
			MarketplaceCutBps:     getEnvAsInt("MARKETPLACE_CUT_BPS", 250), // 2.5%
			MaxSettlementAttempts: getEnvAsInt("MAX_SETTLEMENT_ATTEMPTS", 10),
			PollIntervalSeconds:   getEnvAsInt("SETTLEMENT_POLL_INTERVAL", 30),
			BackoffBaseSeconds:    getEnvAsInt("SETTLEMENT_BACKOFF_BASE", 15),
			BackoffCapSeconds:     getEnvAsInt("SETTLEMENT_BACKOFF_CAP", 900),
			CreditUnitMinor:       getEnvAsInt64("CREDIT_UNIT_MINOR", 1000000),
			DriftCheckSeconds:     getEnvAsInt("FEE_DRIFT_CHECK_INTERVAL", 3600),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "legionx-agent-artifacts"),
			ArtifactURLTTL:  getEnvAsInt("ARTIFACT_URL_TTL", 900),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Reconciliation.MinConfirmations < 1 {
		return fmt.Errorf("MIN_CONFIRMATIONS must be at least 1")
	}

	if c.Reconciliation.ListingFeeBps+c.Reconciliation.MarketplaceCutBps >= 10000 {
		return fmt.Errorf("combined fee basis points must stay below 10000")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
