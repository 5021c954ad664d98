package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/config"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/backend"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/service"
	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := backend.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to backend", zap.Error(err))
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s3Config, err := config.NewS3Config(ctx)
	if err != nil {
		logger.Warn("photo storage unavailable", zap.Error(err))
	}

	// Stores are constructed leaves-first: session, then the stores
	// keyed by its user, then the policy that reads both.
	session := store.NewSessionStore(client.Identity, logger)
	defer session.Close()
	onboarding := store.NewOnboardingStore(client.Local, logger)
	settings := store.NewSettingsStore(client.Docs, session, logger)
	defer settings.Close()
	groceries := store.NewGroceryStore(client.Docs, session, logger)
	defer groceries.Close()
	policy := store.NewAutoDeletePolicy(groceries, settings, logger)
	defer policy.Close()

	app := &app{
		identity:   client.Identity,
		session:    session,
		onboarding: onboarding,
		settings:   settings,
		groceries:  groceries,
		photos:     service.NewPhotoService(s3Config, logger),
		in:         os.Stdin,
		out:        os.Stdout,
	}

	errChan := make(chan error, 1)
	go func() { errChan <- app.run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("tracker exited with error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}
}

func newLogger() (*zap.Logger, error) {
	if config.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
