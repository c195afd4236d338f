package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Extraction ExtractionConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

// ServerConfig holds gateway server configuration
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// ExtractionConfig holds the upstream extraction endpoint configuration.
// Endpoint has no default on purpose: it must be supplied explicitly.
type ExtractionConfig struct {
	Endpoint         string
	Timeout          time.Duration
	ValidateResponse bool
}

// DatabaseConfig holds the Supabase Postgres connection configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// AuthConfig holds JWT verification configuration
type AuthConfig struct {
	JWTSecret string
}

// StorageConfig holds upload store and feedback store configuration
type StorageConfig struct {
	UploadDir  string
	FileExpiry time.Duration
	FeedbackDB string
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	File  string
	Level slog.Level
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "")),
		},
		Extraction: ExtractionConfig{
			Endpoint:         getEnv("EXTRACTION_ENDPOINT", ""),
			Timeout:          getEnvAsDuration("EXTRACTION_TIMEOUT", 60*time.Second),
			ValidateResponse: getEnvAsBool("EXTRACTION_VALIDATE_RESPONSE", true),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			UploadDir:  getEnv("UPLOAD_DIR", "data/uploads"),
			FileExpiry: getEnvAsDuration("FILE_EXPIRY", time.Hour),
			FeedbackDB: getEnv("FEEDBACK_DB", "data/feedback.db"),
		},
		Logging: LoggingConfig{
			File:  getEnv("LOG_FILE", ""),
			Level: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration. The extraction endpoint is
// required: there is no developer-machine fallback.
func (c *Config) Validate() error {
	if c.Extraction.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
