package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogConfig controls the global slog logger.
type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	App struct {
		ENV  string
		Name string
	}

	Log LogConfig

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis RedisConfig

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
	}

	Auth struct {
		JWTSecret  string
		TokenTTL   time.Duration
		BcryptCost int
	}

	Realtime struct {
		Bus     string // "" (in-process) or "redis"
		Channel string
	}

	Match struct {
		PoolSize   int
		ResultSize int
	}

	S3 struct {
		Bucket     string
		Region     string
		PresignTTL time.Duration
	}

	Telemetry struct {
		Enabled     bool
		ServiceName string
	}
}

// New builds the configuration from environment variables. When CONFIG_FILE
// points at a readable file (yaml, json, toml, env) its values act as a base
// layer under the environment.
func New() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		// a missing file is not fatal: env + defaults still apply
		_ = v.ReadInConfig()
	}

	cfg := &Config{}

	// App
	cfg.App.ENV = v.GetString("APP_ENV")
	cfg.App.Name = v.GetString("APP_NAME")

	// Logger
	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	cfg.Log.Component = v.GetString("LOG_COMPONENT")
	cfg.Log.Source = isTruthy(v.GetString("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.DSN = firstNonEmpty(v.GetString("DB_DSN"), v.GetString("MYSQL_DSN"))
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(cfg)
	}

	// Redis
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// HTTP
	cfg.HTTP.Host = v.GetString("HTTP_HOST")
	cfg.HTTP.Port = v.GetString("HTTP_PORT")
	cfg.HTTP.AllowedOrigins = splitList(v.GetString("CORS_ORIGINS"))

	// Auth
	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.TokenTTL = v.GetDuration("JWT_TTL")
	cfg.Auth.BcryptCost = v.GetInt("BCRYPT_COST")
	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = "devconnect-development-secret"
	}

	// Realtime
	cfg.Realtime.Bus = strings.ToLower(v.GetString("REALTIME_BUS"))
	cfg.Realtime.Channel = v.GetString("REALTIME_CHANNEL")

	// Match
	cfg.Match.PoolSize = v.GetInt("MATCH_POOL_SIZE")
	cfg.Match.ResultSize = v.GetInt("MATCH_RESULT_SIZE")

	// S3
	cfg.S3.Bucket = v.GetString("S3_BUCKET")
	cfg.S3.Region = v.GetString("S3_REGION")
	cfg.S3.PresignTTL = v.GetDuration("S3_PRESIGN_TTL")

	// Telemetry
	cfg.Telemetry.Enabled = isTruthy(v.GetString("OTEL_ENABLED"))
	cfg.Telemetry.ServiceName = v.GetString("OTEL_SERVICE_NAME")

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "devconnect")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_COMPONENT", "http_server")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "root")
	v.SetDefault("DB_NAME", "devconnect")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", "5000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("REALTIME_CHANNEL", "devconnect:realtime")

	v.SetDefault("MATCH_POOL_SIZE", 20)
	v.SetDefault("MATCH_RESULT_SIZE", 10)

	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PRESIGN_TTL", "5m")

	v.SetDefault("OTEL_SERVICE_NAME", "devconnect")
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}

// Validate rejects configurations the server cannot safely start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	switch c.Realtime.Bus {
	case "", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported REALTIME_BUS %q", c.Realtime.Bus))
	}
	if c.Match.PoolSize <= 0 || c.Match.ResultSize <= 0 {
		errs = append(errs, errors.New("MATCH_POOL_SIZE and MATCH_RESULT_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func buildDSN(cfg *Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port,
		)
	case "sqlite":
		return cfg.DB.Name + ".db"
	default:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
