package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret" validate:"required"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"required"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// DispatchConfig bounds the three remote steps of the pipeline.
// Each step carries its own timeout so a hung backend can never
// leave a transaction in a non-terminal state.
type DispatchConfig struct {
	ProcedureTimeout time.Duration `koanf:"procedure_timeout" validate:"required"`
	UpstreamTimeout  time.Duration `koanf:"upstream_timeout" validate:"required"`
	NormalizeTimeout time.Duration `koanf:"normalize_timeout" validate:"required"`
}

type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	RequestsPerSec  float64       `koanf:"requests_per_sec"`
	Burst           int           `koanf:"burst"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	StaleAge  time.Duration `koanf:"stale_age" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

// DevJWTSecret is the signing secret a bare environment falls back to.
// Anything but local development must override it.
const DevJWTSecret = "dev-secret-change-me"

// defaults hold the values a bare environment starts with; any MOSPAY_*
// variable overrides them. The database block defaults to the local
// docker-compose instance so development needs no environment at all.
var defaults = map[string]interface{}{
	"primary.env": "development",

	"server.port":             "8080",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    30 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "mospay",
	"database.password":           "mospay",
	"database.name":               "mospay",
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     10,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"auth.jwt_secret":  DevJWTSecret,
	"auth.token_ttl":   24 * time.Hour,
	"auth.bcrypt_cost": 10,

	"dispatch.procedure_timeout": 5 * time.Second,
	"dispatch.upstream_timeout":  30 * time.Second,
	"dispatch.normalize_timeout": 5 * time.Second,

	"rate_limit.enabled":          true,
	"rate_limit.requests_per_sec": 20.0,
	"rate_limit.burst":            40,
	"rate_limit.cleanup_interval": 5 * time.Minute,

	"logger.level":  "info",
	"logger.format": "text",

	"worker.interval":   time.Minute,
	"worker.stale_age":  5 * time.Minute,
	"worker.batch_size": 100,
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load default configuration", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider("MOSPAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "MOSPAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
