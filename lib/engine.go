package userdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"userdesk/internal/users"
	"userdesk/lib/cache"
	"userdesk/lib/database"
	"userdesk/shared/logger"
)

// Engine owns the application's resources and serves HTTP.
type Engine interface {
	Handler() http.Handler
	Start(ctx context.Context) error
	Close() error
}

// zEngine wires config, store, view cache, user operations and transport.
type zEngine struct {
	config    Config
	store     *database.PostgreSQL
	cache     cache.Cache
	handler   http.Handler
	telemetry func(context.Context) error
}

// NewEngine connects every collaborator described by c. On failure, whatever
// was already started is released.
func NewEngine(ctx context.Context, c Config) (_ Engine, err error) {
	var cleanup []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			if cerr := cleanup[i](); cerr != nil {
				logger.Warn("Failed to release resource after startup error", logger.Err(cerr))
			}
		}
	}()

	shutdownTelemetry, err := InitTelemetry(ctx, c)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTelemetry(sctx)
	})

	store, err := database.Connect(ctx, c.DSN(), c.Pool())
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, store.Close)

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	viewCache, err := cache.New(c.CacheDriver(), c.RedisURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}
	cleanup = append(cleanup, viewCache.Close)

	views := NewViewCache(viewCache, c.ViewTTL())
	if err := views.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset view cache: %w", err)
	}

	auth, err := NewAuth(ctx, c)
	if err != nil {
		return nil, err
	}

	service := users.NewService(store, views)
	router := NewRouter(c, auth, NewUserHandler(service, views), NewHealth(store),
		WithMetrics("userdesk"),
		WithTracing(c.Title()),
	)

	logger.Info("Engine ready",
		logger.String("title", c.Title()),
		logger.String("version", c.Version()),
		logger.String("cache", c.CacheDriver()),
	)

	return &zEngine{
		config:    c,
		store:     store,
		cache:     viewCache,
		handler:   router,
		telemetry: shutdownTelemetry,
	}, nil
}

func (e *zEngine) Handler() http.Handler {
	return e.handler
}

// Start serves until ctx is cancelled.
func (e *zEngine) Start(ctx context.Context) error {
	return Serve(ctx, e.config.Address(), e.handler)
}

// Close releases the store, the cache and the telemetry pipeline.
func (e *zEngine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(
		e.cache.Close(),
		e.store.Close(),
		e.telemetry(ctx),
	)
}
