// Package internal assembles the content front: configuration, the account
// store backend, the WebChannel hub, the bootstrap orchestrator, and the
// HTTP server, with one Run loop owning the lifecycle.
package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fxawebapp/fxa-front/internal/app"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/config"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/server"
	"github.com/fxawebapp/fxa-front/internal/session"
	"github.com/fxawebapp/fxa-front/internal/storage"
	"github.com/fxawebapp/fxa-front/internal/verification"
)

// verificationTTL bounds how long a same-browser verification context is
// honored after the signup tab stored it.
const verificationTTL = time.Hour

// FxaFront is the assembled application.
type FxaFront struct {
	cfg        *config.Config
	httpServer *server.HTTPServer
	store      storage.Store
	hub        *channel.WebChannelHub
}

// NewFxaFront wires every component from the loaded configuration.
func NewFxaFront(ctx context.Context, cfg config.Config) (*FxaFront, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage setup failed: %w", err)
	}

	hub := channel.NewWebChannelHub(cfg.ChannelRequestTimeout)
	start := app.NewStart(&cfg, store, &session.Session{}, verification.NewStore(verificationTTL))

	handler := server.NewRouter(&cfg, start, hub)
	httpServer := server.NewHTTPServer(handler, cfg.Addr)

	return &FxaFront{
		cfg:        &cfg,
		httpServer: httpServer,
		store:      store,
		hub:        hub,
	}, nil
}

// Run starts the HTTP server and blocks until a shutdown signal or a fatal
// server error, then shuts down gracefully.
func (f *FxaFront) Run() error {
	log.LogInfoWithFields("front", "Starting content front", map[string]any{
		"addr": f.cfg.Addr,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := f.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("front", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("front", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("front", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": "30s",
	})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("front", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if closer, ok := f.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.LogErrorWithFields("front", "Store close error", map[string]any{
				"error": err.Error(),
			})
		}
	}

	log.LogInfoWithFields("front", "Shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// setupStorage creates the account store backend the configuration names.
func setupStorage(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Kind {
	case config.StorageFirestore:
		return storage.NewFirestoreStore(ctx, cfg.Storage.ProjectID, cfg.Storage.Collection)
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: string(cfg.Storage.RedisPassword),
			DB:       cfg.Storage.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return storage.NewRedisStore(client, "fxa"), nil
	case config.StorageMemory, "":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind: %q", cfg.Storage.Kind)
	}
}
