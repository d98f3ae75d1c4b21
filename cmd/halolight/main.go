// HaloLight server: session, UI preference, and tab state for the dashboard
// frontend, plus the REST surface it consumes. State flows to clients over
// the /ws gateway; REST handles auth, identity, and the canned feature data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halolight/halolight/internal/api"
	"github.com/halolight/halolight/internal/common/config"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/common/tracing"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/fixtures"
	"github.com/halolight/halolight/internal/gateway"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/identity/auth"
	"github.com/halolight/halolight/internal/persistence"
	"github.com/halolight/halolight/internal/state"
	"github.com/halolight/halolight/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "halolight: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithPath(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "halolight")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	eventBus, closeBus, err := events.Provide(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeBus()
	}()

	pool, closeDB, err := persistence.Provide(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeDB()
	}()

	kv, err := storage.NewStore(ctx, pool, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	idStore, err := identity.NewStore(ctx, pool, log)
	if err != nil {
		return fmt.Errorf("failed to initialize identity store: %w", err)
	}
	if err := idStore.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed identity data: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.Auth)
	ids := identity.NewService(idStore, tokens, eventBus.Bus, log)

	auditor, err := identity.NewAuditor(eventBus.Bus, log)
	if err != nil {
		return fmt.Errorf("failed to initialize audit trail: %w", err)
	}
	defer auditor.Close()

	data, err := fixtures.NewStore(cfg.Fixtures, log)
	if err != nil {
		return fmt.Errorf("failed to initialize fixtures: %w", err)
	}

	registry := state.NewRegistry(kv, ids, eventBus.Bus, cfg.UI, log)
	defer registry.Close()

	hub, err := gateway.NewHub(registry, eventBus.Bus, log)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	defer hub.Close()

	router := api.NewRouter(api.Deps{
		Identity: ids,
		Fixtures: data,
		Audit:    auditor,
		Log:      log,
	})
	router.GET("/ws", hub.HandleWS)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
