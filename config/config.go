package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracker client.
type Config struct {
	// Database configuration (document store + identity tables)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (cross-process change notification)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration (persisted sign-in credential)
	JWTSecret string

	// DataDir holds device-local state (onboarding flag, credential)
	DataDir string
}

// LoadConfig builds a Config from a .env file (when present), process
// environment variables, and secret files named by *_FILE variables.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnvOrSecret("DB_USER", "postgres"),
		DBPassword:    getEnvOrSecret("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "grocerytracker"),
		DBSSLMode:     getEnv("DB_SSL_MODE", "disable"),
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrSecret("REDIS_PASSWORD", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnvOrSecret("JWT_SECRET", ""),
		DataDir:       getEnv("DATA_DIR", defaultDataDir()),
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value %q: %w", raw, err)
		}
		cfg.RedisDB = n
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN assembles the postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// RedisEnabled reports whether change notification over Redis is
// configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvOrSecret reads key from the environment, falling back to the
// contents of the file named by key_FILE (docker-secrets style).
func getEnvOrSecret(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".grocery-tracker"
	}
	return filepath.Join(base, "grocery-tracker")
}
