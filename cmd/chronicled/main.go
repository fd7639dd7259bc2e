// chronicled is the background daemon: it loads configuration, opens
// storage, and runs the Coordinator until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chronicle/internal/config"
	"chronicle/internal/coordinator"
	"chronicle/internal/imagestore"
	"chronicle/internal/observability"
	"chronicle/internal/persistence"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("chronicled")
	}
}

func run() error {
	cfgPath, err := config.DefaultPath("chronicle")
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if v := os.Getenv("CHRONICLE_CONFIG"); v != "" {
		cfgPath = v
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel := "info"
	if cfg.Server.Debug {
		logLevel = "debug"
	}
	observability.InitLogger(os.Getenv("CHRONICLE_LOG_PATH"), logLevel)

	baseCtx := context.Background()
	shutdownOTel, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
		shutdownOTel = nil
	}
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	store, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	images, err := imagestore.New(1024, cfg.Screenshot.SavePath)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}

	coord := coordinator.New(cfg, store, images)

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	log.Info().Str("state", string(coord.State())).Msg("chronicled started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	stopped := make(chan struct{})
	go func() {
		coord.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("coordinator stop timed out")
	}

	log.Info().Msg("chronicled stopped")
	return nil
}
