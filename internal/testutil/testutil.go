// Package testutil holds fixtures shared by package tests: an in-memory
// SQLite database with the full schema and a miniredis-backed cache.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/cache"
	"github.com/oggyb/devconnect/internal/config"
	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/logger"
	"github.com/oggyb/devconnect/internal/server"
)

// NewDB opens a private in-memory SQLite database named after the test and
// migrates every model.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         db.NewGormLogger(logger.Discard(), gormlogger.Silent),
		TranslateError: true,
		NowFunc:        db.Now,
	})
	require.NoError(t, err, "failed to open sqlite")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb), "failed to migrate")
	return gdb
}

// NewSeededDB is NewDB plus db.SeedMinimalTestData.
func NewSeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb := NewDB(t)
	require.NoError(t, db.SeedMinimalTestData(gdb))
	return gdb
}

// NewRedis starts a miniredis server torn down with the test.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// CreateUser inserts an active user; mutate adjusts fields before insert.
func CreateUser(t *testing.T, gdb *gorm.DB, username string, mutate ...func(*db.User)) *db.User {
	t.Helper()
	u := &db.User{
		Username:     username,
		Email:        username + "@test.com",
		PasswordHash: "x",
		AvatarURL:    db.DefaultAvatarURL(username),
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Deactivate flips the active flag off. gorm applies the column default to a
// false zero value on create, so inactive users are made in two steps.
func Deactivate(t *testing.T, gdb *gorm.DB, userID uint64) {
	t.Helper()
	require.NoError(t, gdb.Model(&db.User{}).Where("id = ?", userID).Update("active", false).Error)
}

// Config returns a configuration usable by services under test.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Match.PoolSize = 20
	cfg.Match.ResultSize = 10
	return cfg
}

// NewAppContext wires a seeded database and a miniredis cache.
func NewAppContext(t *testing.T) *app.AppContext {
	t.Helper()
	rc, _ := NewRedis(t)
	return app.New(Config(), NewSeededDB(t), rc, logger.Discard())
}

// Token signs an access token for a seeded user.
func Token(t *testing.T, appCtx *app.AppContext, userID uint64) string {
	t.Helper()
	var u db.User
	require.NoError(t, appCtx.DB.First(&u, userID).Error)
	token, err := appCtx.Tokens.Generate(u.ID, u.Email, u.Username)
	require.NoError(t, err)
	return token
}

// NewAPI builds the HTTP engine with the given registrars mounted under /api.
func NewAPI(t *testing.T, appCtx *app.AppContext, registrars ...server.Registrar) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return server.NewEngine(server.Options{
		Config:     appCtx.Config,
		Logger:     appCtx.Logger,
		Guard:      server.NewGuard(appCtx.Auth),
		Registrars: registrars,
	})
}

// Do performs a request against h. body, when not nil, is sent as JSON. The
// decoded response envelope is returned alongside the recorder.
func Do(t *testing.T, h http.Handler, method, target, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}
