// Package backend wires the external collaborators (document store,
// identity provider, local key-value storage) into one explicitly
// constructed client that is passed into the state containers.
package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/config"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/docstore"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/identity"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend/kv"
)

// Client aggregates the backend collaborators the stores depend on.
type Client struct {
	Docs     docstore.Store
	Identity identity.Provider
	Local    kv.Store

	docs  *docstore.GormStore
	redis *redis.Client
}

// NewClient connects to the configured database and (optionally) Redis
// and constructs the backend collaborators.
func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = newRedisClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	local := kv.NewFileStore(filepath.Join(cfg.DataDir, "local_store.json"))

	docs, err := docstore.NewGormStore(db, redisClient, log)
	if err != nil {
		return nil, err
	}

	provider, err := identity.NewService(db, cfg.JWTSecret, local, log)
	if err != nil {
		return nil, err
	}

	return &Client{
		Docs:     docs,
		Identity: provider,
		Local:    local,
		docs:     docs,
		redis:    redisClient,
	}, nil
}

// Close releases the change-notification subscription and the Redis
// connection.
func (c *Client) Close() error {
	c.docs.Close()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// newRedisClient creates a Redis client from either a URL or host/port.
func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Use a Redis URL when provided (for hosted deployments)
	if cfg.RedisURL != "" {
		parsedOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts = parsedOpts
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
