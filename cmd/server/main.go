package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/cache"
	"github.com/oggyb/devconnect/internal/config"
	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/logger"
	"github.com/oggyb/devconnect/internal/realtime"
	"github.com/oggyb/devconnect/internal/server"
	"github.com/oggyb/devconnect/internal/service/account"
	"github.com/oggyb/devconnect/internal/service/match"
	"github.com/oggyb/devconnect/internal/service/messages"
	"github.com/oggyb/devconnect/internal/service/posts"
	"github.com/oggyb/devconnect/internal/service/users"
	"github.com/oggyb/devconnect/internal/storage"
	"github.com/oggyb/devconnect/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		return err
	}
	defer redisCache.Close()

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.IsDevelopment() {
		seedIfEmpty(appCtx)
	}

	socket := realtime.NewSocketServer(appCtx.Auth, cfg.HTTP.AllowedOrigins, log)
	registry, out, err := realtimeBackend(ctx, cfg, redisCache, socket, log)
	if err != nil {
		return err
	}
	hub := realtime.NewHub(appCtx, registry, out)
	socket.Bind(hub)
	go func() {
		if err := socket.Serve(); err != nil {
			log.Error("socket.io server stopped", "err", err)
		}
	}()
	defer socket.Close()

	avatars, err := storage.NewAvatarStore(ctx, cfg)
	if err != nil {
		return err
	}

	engine := server.NewEngine(server.Options{
		Config: cfg,
		Logger: log,
		Guard:  server.NewGuard(appCtx.Auth),
		Socket: socket,
		Health: map[string]server.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := database.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": redisCache.Ping,
		},
		Registrars: []server.Registrar{
			account.NewRegistrar(appCtx),
			posts.NewRegistrar(appCtx),
			match.NewRegistrar(appCtx, hub),
			users.NewRegistrar(appCtx, avatars),
			messages.NewRegistrar(appCtx, hub),
		},
	})

	return server.StartHTTPServer(ctx, cfg, engine, log)
}

// realtimeBackend picks where presence lives and how events reach sockets.
// With REALTIME_BUS=redis several API instances share presence and every
// broadcast is relayed through Redis pub/sub to each instance's sockets.
func realtimeBackend(
	ctx context.Context,
	cfg *config.Config,
	redisCache *cache.RedisCache,
	socket *realtime.SocketServer,
	log *slog.Logger,
) (realtime.SessionRegistry, realtime.Broadcaster, error) {
	if cfg.Realtime.Bus != "redis" {
		return realtime.NewMemoryRegistry(), socket, nil
	}

	bus := realtime.NewRedisBus(redisCache.Client, cfg.Realtime.Channel, log)
	if err := bus.Run(ctx, socket); err != nil {
		return nil, nil, err
	}
	log.Info("realtime bus enabled", "channel", cfg.Realtime.Channel)
	return realtime.NewRedisRegistry(redisCache.Client), bus, nil
}

func seedIfEmpty(appCtx *app.AppContext) {
	var count int64
	if err := appCtx.DB.Model(&db.User{}).Count(&count).Error; err != nil {
		appCtx.Logger.Error("failed to count users", "err", err)
		return
	}
	if count > 0 {
		return
	}
	if err := db.SeedTestData(appCtx.DB); err != nil {
		appCtx.Logger.Error("failed to seed", "err", err)
	}
}
