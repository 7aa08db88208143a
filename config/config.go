package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"salon-manager/models"
)

type Config struct {
	Port       string
	AppEnv     string
	AppVersion string

	DB models.DBConfig

	RedisHost        string
	RedisPassword    string
	KafkaBroker      string
	ElasticsearchURL string
	SentryDSN        string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	LowStockThreshold int
	VoucherExpiryCron string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       env("PORT", "8080"),
		AppEnv:     env("APP_ENV", "development"),
		AppVersion: env("APP_VERSION", "dev"),
		DB: models.DBConfig{
			Driver:   env("DB_DRIVER", "postgres"),
			Host:     env("DB_HOST", "localhost"),
			User:     env("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     env("DB_NAME", "salon"),
			Port:     env("DB_PORT", "5432"),
			Path:     env("DB_PATH", "salon.db"),
			LogSQL:   envBool("DB_LOG_SQL", false),
		},
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KafkaBroker:       os.Getenv("KAFKA_BROKER"),
		ElasticsearchURL:  os.Getenv("ELASTICSEARCH_URL"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		LowStockThreshold: envInt("LOW_STOCK_THRESHOLD", 5),
		VoucherExpiryCron: env("VOUCHER_EXPIRY_CRON", "@daily"),
		OTelEnabled:       envBool("OTEL_ENABLED", false),
		OTelEndpoint:      env("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio:   envRatio("OTEL_SAMPLING_RATIO", 1),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(env(key, "")); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(env(key, "")); err == nil {
		return b
	}
	return fallback
}

func envRatio(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(env(key, ""), 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return fallback
}
