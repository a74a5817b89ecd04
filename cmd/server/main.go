package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"savvybot-backend/internal/api"
	"savvybot-backend/internal/config"
	"savvybot-backend/internal/handlers"
	"savvybot-backend/internal/kv"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/metrics"
	"savvybot-backend/internal/services"
	"savvybot-backend/internal/store"
	"savvybot-backend/internal/store/local"
	"savvybot-backend/internal/store/postgres"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "savvybot-server"})
	zlog.Logger = log
	log.Info().Str("store_driver", cfg.StoreDriver).Msg("starting Savvy Bot backend")

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 3. Initialize the store
	st, err := openStore(cfg, log, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// 4. Services, handlers, router
	conversationService := services.NewConversationService(st, services.DefaultIDGenerator, log)
	conversationHandler := handlers.NewConversationHandler(conversationService, log)

	router := api.NewRouter(api.RouterDependencies{
		ConversationHandler: conversationHandler,
		Store:               st,
		Metrics:             m,
		Logger:              log,
		Config:              cfg,
	})
	if cfg.JWTSecret != "" {
		log.Info().Msg("bearer authentication enabled")
	}

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.HTTPPort).Msg("could not listen")
		}
		log.Info().Msg("server listener routine stopped")
	}()

	<-stopChan
	log.Info().Msg("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server graceful shutdown failed")
		return
	}
	log.Info().Msg("server shutdown complete")
}

// openStore connects the configured driver and prepares it for use.
func openStore(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to create database connection pool: %w", err)
		}
		if err := dbpool.Ping(ctx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("unable to ping database: %w", err)
		}
		pg := postgres.NewPostgresStore(dbpool, log, m)
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return pg, nil

	default:
		db, err := kv.OpenSQLite(cfg.LocalDBPath)
		if err != nil {
			return nil, fmt.Errorf("unable to open local store: %w", err)
		}
		st, err := local.Open(ctx, db, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.LocalDBPath).Msg("local store ready")
		return st, nil
	}
}
