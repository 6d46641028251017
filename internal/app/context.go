package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/auth"
	"github.com/oggyb/devconnect/internal/cache"
	"github.com/oggyb/devconnect/internal/config"
	"github.com/oggyb/devconnect/internal/repository"
)

// AppContext holds shared dependencies (Config, DB, Redis, Logger, auth)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Tokens     *auth.TokenService
	Auth       *auth.Authenticator
}

// New creates a new AppContext. Token signing and request authentication are
// derived from cfg and the users table.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	tokens := auth.NewTokenServiceFromConfig(cfg)
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Tokens:     tokens,
		Auth:       auth.NewAuthenticator(tokens, repository.NewUserRepository(db)),
	}
}
