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
	Server   ServerConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Webpay   WebpayConfig
	Outbox   OutboxConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
	// RelayTimeout bounds every call the relay endpoints make toward
	// external collaborators (Webpay, FCM).
	RelayTimeout time.Duration
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type WebpayConfig struct {
	Host         string
	CommerceCode string
	APIKey       string
	ReturnURL    string
}

type OutboxConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			CORSOrigins:  splitEnv("CORS_ORIGINS", "*"),
			RelayTimeout: time.Duration(getEnvAsInt("RELAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Webpay: WebpayConfig{
			Host:         getEnv("WEBPAY_HOST", "https://webpay3gint.transbank.cl"),
			CommerceCode: getEnv("WEBPAY_COMMERCE_CODE", ""),
			APIKey:       getEnv("WEBPAY_API_KEY", ""),
			ReturnURL:    getEnv("WEBPAY_RETURN_URL", ""),
		},
		Outbox: OutboxConfig{
			Interval:    time.Duration(getEnvAsInt("OUTBOX_INTERVAL_SECONDS", 5)) * time.Second,
			BatchSize:   getEnvAsInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Firebase.CredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	if c.Webpay.CommerceCode == "" {
		return fmt.Errorf("WEBPAY_COMMERCE_CODE is required")
	}

	if c.Webpay.APIKey == "" {
		return fmt.Errorf("WEBPAY_API_KEY is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
