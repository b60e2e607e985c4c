package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/cartsync/pkg/health"
	pkgkafka "github.com/utafrali/cartsync/pkg/kafka"

	"github.com/utafrali/cartsync/internal/cache"
	rediscache "github.com/utafrali/cartsync/internal/cache/redis"
	"github.com/utafrali/cartsync/internal/config"
	"github.com/utafrali/cartsync/internal/event"
	handler "github.com/utafrali/cartsync/internal/handler/http"
	"github.com/utafrali/cartsync/internal/identity"
	fbidentity "github.com/utafrali/cartsync/internal/identity/firebase"
	"github.com/utafrali/cartsync/internal/remote"
	fsremote "github.com/utafrali/cartsync/internal/remote/firestore"
	"github.com/utafrali/cartsync/internal/store"
)

// App wires together all dependencies and runs the cart sync service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	remote     *fsremote.RemoteStore
	manager    *store.Manager
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize Redis client.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Firestore remote tier and Firebase identity are optional. Without
	// them carts stay anonymous and session-local.
	var (
		remoteStore *fsremote.RemoteStore
		verifier    identity.Verifier
	)
	if cfg.RemoteEnabled() {
		rs, err := fsremote.New(ctx, fsremote.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
			Collection:      cfg.CartsCollection,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init firestore remote store: %w", err)
		}
		remoteStore = rs

		v, err := fbidentity.New(ctx, fbidentity.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("init firebase identity verifier: %w", err)
		}
		verifier = v

		logger.Info("remote cart store enabled",
			slog.String("project_id", cfg.FirestoreProjectID),
			slog.String("collection", cfg.CartsCollection),
		)
	} else {
		logger.Info("remote cart store disabled, carts are session-local")
	}

	// Build the dependency graph.
	cartCache := rediscache.New(rdb, cfg.CacheTTL(), logger)
	eventProducer := event.NewProducer(producer, logger)

	var source store.RemoteSource
	if remoteStore != nil {
		source = remoteStore
	}

	// Sink order is the reconciliation order: local cache first, then the
	// remote write-through, then change notices.
	sinkFactory := func(sessionID string) ([]store.Sink, func()) {
		sinks := []store.Sink{cache.NewWriter(cartCache, logger)}
		var closer func()
		if remoteStore != nil {
			rw := remote.NewWriter(remoteStore, logger)
			sinks = append(sinks, rw)
			closer = rw.Close
		}
		sinks = append(sinks, eventProducer)
		return sinks, closer
	}

	manager := store.NewManager(store.ManagerConfig{
		Cache:   cartCache,
		Source:  source,
		Sinks:   sinkFactory,
		Logger:  logger,
		IdleTTL: cfg.SessionIdleTTL(),
	})

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	// HTTP router.
	router := handler.NewRouter(manager, verifier, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		producer:   producer,
		remote:     remoteStore,
		manager:    manager,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Evict every session store: tears down subscriptions and drains the
	// remote write queues.
	a.manager.Close()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Error("firestore close error", slog.String("error", err.Error()))
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
