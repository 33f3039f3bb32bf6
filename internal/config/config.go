package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded once at startup.
type Config struct {
	// Server configuration
	Port string
	Env  string // "development" or "production"

	// Database configuration
	DBPath string

	// Email configuration
	ResendAPIKey string
	EmailFrom    string

	// Outbox worker
	OutboxIntervalSeconds int

	// Seeded admin account (used only when no accounts exist)
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if present) and environment variables into a Config.
func Load() Config {
	// A missing .env file is fine; env vars still apply.
	_ = godotenv.Load()

	return Config{
		Port:                  getEnv("GYMDESK_PORT", "8080"),
		Env:                   getEnv("GYMDESK_ENV", "development"),
		DBPath:                getEnv("GYMDESK_DB_PATH", "gymdesk.db"),
		ResendAPIKey:          getEnv("GYMDESK_RESEND_API_KEY", ""),
		EmailFrom:             getEnv("GYMDESK_EMAIL_FROM", "GymDesk <noreply@gymdesk.example>"),
		OutboxIntervalSeconds: getEnvInt("GYMDESK_OUTBOX_INTERVAL_SECONDS", 60),
		AdminEmail:            getEnv("GYMDESK_ADMIN_EMAIL", "admin@gymdesk.example"),
		AdminPassword:         getEnv("GYMDESK_ADMIN_PASSWORD", ""),
	}
}

// IsProduction reports whether the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
