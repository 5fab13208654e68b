// Command catalogd serves the book catalog API and its real-time change
// notification stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	cathttp "github.com/openshelf/catalog/internal/adapter/http"
	catnats "github.com/openshelf/catalog/internal/adapter/nats"
	"github.com/openshelf/catalog/internal/adapter/otel"
	"github.com/openshelf/catalog/internal/adapter/postgres"
	"github.com/openshelf/catalog/internal/adapter/ristretto"
	"github.com/openshelf/catalog/internal/adapter/ws"
	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/config"
	"github.com/openshelf/catalog/internal/logger"
	"github.com/openshelf/catalog/internal/port/broker"
	"github.com/openshelf/catalog/internal/relay"
	"github.com/openshelf/catalog/internal/resilience"
	"github.com/openshelf/catalog/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"queue_depth", cfg.Stream.QueueDepth,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// The broker is optional: a single instance keeps working on local
	// delivery when NATS is down or not configured.
	var brk broker.Broker
	if cfg.NATS.URL != "" {
		nb, err := catnats.Connect(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, running with local delivery only", "error", err)
		} else {
			brk = nb
			defer func() { _ = nb.Close() }()
		}
	}

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Notification pipeline ---

	hub := broadcast.New(cfg.Stream.QueueDepth)
	hub.OnDrop = func(id string) {
		slog.Warn("subscriber dropped", "subscriber_id", id)
		metrics.SubscribersDropped.Add(ctx, 1)
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	rly := relay.New(brk, hub, breaker, metrics)
	cancelRelay, err := rly.Start(ctx)
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	defer cancelRelay()

	cancelInvalidator := service.StartCacheInvalidator(ctx, hub, cache)
	defer cancelInvalidator()

	// --- Services ---

	store := postgres.NewStore(pool)
	svc := service.NewCatalogService(store, rly)

	// --- HTTP ---

	handlers := cathttp.NewHandlers(svc, cache, cfg.Cache.ListTTL)
	stream := ws.NewHandler(hub, cfg.Stream.PingInterval)

	r := chi.NewRouter()
	r.Use(cathttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cathttp.Logger)
	r.Use(otel.HTTPMiddleware("catalogd"))

	cathttp.MountRoutes(r, handlers, stream)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
