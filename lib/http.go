package userdesk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"userdesk/shared/logger"
)

// RouterOption customizes the router before routes are registered.
type RouterOption func(e *gin.Engine)

// WithMetrics exposes Prometheus request metrics at /metrics.
func WithMetrics(subsystem string) RouterOption {
	return func(e *gin.Engine) {
		ginprometheus.NewPrometheus(subsystem).Use(e)
	}
}

// WithTracing records an OpenTelemetry span per request.
func WithTracing(service string) RouterOption {
	return func(e *gin.Engine) {
		e.Use(otelgin.Middleware(service))
	}
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(c Config, auth Auth, handler *UserHandler, health Health, opts ...RouterOption) *gin.Engine {
	if !c.Dev() {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.New()

	e.Use(gin.Recovery())
	e.Use(LogMiddleware)
	for _, opt := range opts {
		opt(e)
	}
	e.Use(SessionMiddleware(c))

	e.GET("/", indexHandler(c))
	e.GET("/health", health.HealthCheckHandler)
	e.GET("/signin", auth.SignInHandler)

	a := e.Group("/auth")
	{
		a.GET("/login", auth.LoginHandler)
		a.GET("/callback", auth.CallbackHandler)
		a.GET("/logout", auth.LogoutHandler)
		a.GET("/session", auth.SessionHandler)
	}

	u := e.Group("/users", BrowserGate)
	{
		u.GET("", handler.List)
		u.POST("", handler.Create)
		u.GET("/:id", handler.Get)
		u.PATCH("/:id", handler.Update)
		u.PUT("/:id", handler.Update)
		u.DELETE("/:id", handler.Delete)
	}

	return e
}

func indexHandler(c Config) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p := CurrentPrincipal(ctx)
		ctx.JSON(http.StatusOK, gin.H{
			"title":         c.Title(),
			"version":       c.Version(),
			"authenticated": p != nil,
			"user":          p,
		})
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
