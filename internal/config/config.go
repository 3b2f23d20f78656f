package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Google   GoogleConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL string
}

// GoogleConfig holds the Google OAuth and calendar settings
type GoogleConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	ErrorRedirectURL  string
	PrimaryBusinessID string
	PrimaryCalendarID string
	DefaultTimezone   string
	NotifyTimeout     time.Duration
}

// AuthConfig holds request-authentication settings
type AuthConfig struct {
	JWTSecret    string
	StaticTokens []string
	AdminSecret  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Google: GoogleConfig{
			ClientID:          getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:      getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:       getEnv("GOOGLE_REDIRECT_URL", ""),
			ErrorRedirectURL:  getEnv("OAUTH_ERROR_REDIRECT_URL", "/settings/integrations"),
			PrimaryBusinessID: getEnv("PRIMARY_BUSINESS_ID", ""),
			PrimaryCalendarID: getEnv("PRIMARY_CALENDAR_ID", ""),
			DefaultTimezone:   getEnv("DEFAULT_TIMEZONE", "America/New_York"),
			NotifyTimeout:     getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_HMAC_SECRET", ""),
			StaticTokens: splitEnvList(getEnv("STATIC_TOKENS", "")),
			AdminSecret:  getEnv("ADMIN_SECRET", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitEnvList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
