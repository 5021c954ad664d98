package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_SSL_MODE",
		"REDIS_HOST", "REDIS_URL", "REDIS_DB",
		"JWT_SECRET", "JWT_SECRET_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "grocerytracker", cfg.DBName)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, "dev-only-secret", cfg.JWTSecret)
	assert.NotEmpty(t, cfg.DataDir)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("JWT_SECRET", "topsecret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "5433", cfg.DBPort)
	assert.Equal(t, "s3cret", cfg.DBPassword)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "topsecret", cfg.JWTSecret)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoadConfigRejectsBadRedisDB(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestSecretFileFallback(t *testing.T) {
	t.Setenv("ENV", "test")

	path := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWTSecret, "secret file contents are trimmed")
}

func TestEnvironmentTakesPrecedenceOverSecretFile(t *testing.T) {
	t.Setenv("ENV", "test")

	path := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(path, []byte("file-secret"), 0o600))
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestValidateConfigProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := &Config{
		DBHost:  "localhost",
		DBName:  "grocerytracker",
		DataDir: t.TempDir(),
	}
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidateConfigDevelopmentFallsBack(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg := &Config{
		DBHost:  "localhost",
		DBName:  "grocerytracker",
		DataDir: t.TempDir(),
	}
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, "dev-only-secret", cfg.JWTSecret)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "postgres",
		DBPassword: "pw",
		DBName:     "grocerytracker",
		DBSSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=grocerytracker sslmode=disable",
		cfg.DatabaseDSN())
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())

	t.Setenv("ENV", "test")
	assert.Equal(t, Test, GetEnvironment())

	t.Setenv("ENV", "")
	assert.Equal(t, Development, GetEnvironment())
}
