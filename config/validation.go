package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that required values are present for the
// current environment. Development and test get permissive defaults;
// production must provide its own secrets.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.JWTSecret == "" {
		if IsProduction() {
			errors = append(errors, "JWT_SECRET (or JWT_SECRET_FILE) is required in production")
		} else {
			cfg.JWTSecret = "dev-only-secret"
		}
	}

	if IsProduction() && cfg.DBPassword == "" {
		errors = append(errors, "DB_PASSWORD (or DB_PASSWORD_FILE) is required in production")
	}

	if cfg.DBHost == "" {
		errors = append(errors, "DB_HOST must not be empty")
	}
	if cfg.DBName == "" {
		errors = append(errors, "DB_NAME must not be empty")
	}
	if cfg.DataDir == "" {
		errors = append(errors, "DATA_DIR must not be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
