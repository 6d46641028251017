package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oggyb/devconnect/internal/config"
)

const shutdownTimeout = 10 * time.Second

// HealthCheck reports on one dependency.
type HealthCheck func(ctx context.Context) error

// Options wires the HTTP engine.
type Options struct {
	Config     *config.Config
	Logger     *slog.Logger
	Guard      *Guard
	Socket     http.Handler // mounted at /socket.io/ when set
	Health     map[string]HealthCheck
	Registrars []Registrar
}

// NewEngine builds the gin engine with middleware, /health, the realtime
// endpoint and every registrar under /api.
func NewEngine(opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.Config.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(opts.Config.Telemetry.ServiceName))
	}
	engine.Use(
		RequestID(opts.Logger),
		RequestLogger(),
		CORS(opts.Config.HTTP.AllowedOrigins),
	)

	engine.GET("/health", healthHandler(opts.Health))

	if opts.Socket != nil {
		socket := gin.WrapH(opts.Socket)
		engine.GET("/socket.io/*any", opts.Guard.SocketHandshake(), socket)
		engine.POST("/socket.io/*any", opts.Guard.SocketHandshake(), socket)
	}

	api := engine.Group("/api")
	for _, r := range opts.Registrars {
		r.Register(api, opts.Guard)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found", "code": "not_found"})
	})
	return engine
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}
		c.JSON(status, gin.H{
			"success":      status == http.StatusOK,
			"status":       http.StatusText(status),
			"dependencies": deps,
			"timestamp":    time.Now().UTC(),
		})
	}
}

// StartHTTPServer serves handler until ctx is canceled, then shuts down
// gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler, log *slog.Logger) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
