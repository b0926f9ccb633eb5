package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DBUrl                 string
	JWTSecret             string
	WebhookSecret         string
	AppEnv                string
	ProcessingFeeRate     float64
	EscrowHold            time.Duration
	SweepInterval         time.Duration
	PaymentPendingTimeout time.Duration
	RateLimitRPS          float64
	RateLimitBurst        int
	EnableDocs            bool
}

// DocsEnabled gates the API docs endpoints to development environments.
func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	webhookSecret, exists := os.LookupEnv("WEBHOOK_SECRET")
	if !exists || webhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}

	feeRate := getEnvFloat("PROCESSING_FEE_RATE", 0.05)
	if feeRate < 0 || feeRate >= 1 {
		return nil, fmt.Errorf("PROCESSING_FEE_RATE must be in [0, 1)")
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DBUrl:                 getEnv("DB_URL", ""),
		JWTSecret:             jwtSecret,
		WebhookSecret:         webhookSecret,
		AppEnv:                normalizeEnv(getEnv("APP_ENV", "production")),
		ProcessingFeeRate:     feeRate,
		EscrowHold:            time.Duration(getEnvInt("ESCROW_HOLD_HOURS", 24)) * time.Hour,
		SweepInterval:         getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		PaymentPendingTimeout: getEnvDuration("PAYMENT_PENDING_TIMEOUT", 30*time.Minute),
		RateLimitRPS:          getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:        getEnvInt("RATE_LIMIT_BURST", 10),
		EnableDocs:            getEnvBool("ENABLE_DOCS", false),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
