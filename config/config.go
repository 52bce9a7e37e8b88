/*
Package config loads runtime settings.

SOURCES (later wins):
  1. Defaults below
  2. config.yaml in ".", "./config" or the path given with --config
  3. .env in the working directory (loaded into the process environment)
  4. Environment variables MATTILDA_<SECTION>_<KEY>, e.g. MATTILDA_HTTP_PORT

SECTIONS:
  app, http, database, log, cache, redis, jwt, auth, statement, scheduler
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "MATTILDA"

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Log       LogConfig
	Cache     CacheConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Statement StatementConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

func (c HTTPConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

type DatabaseConfig struct {
	Path string // SQLite file path or ":memory:"
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

type CacheConfig struct {
	Backend        string // memory or redis
	APITTL         time.Duration
	APICapacity    int
	StaticTTL      time.Duration
	StaticCapacity int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type JWTConfig struct {
	Secret                 string
	Issuer                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
}

type AuthConfig struct {
	// Required makes every /api/v1 route outside /auth demand a bearer token.
	Required   bool
	BcryptCost int
}

type StatementConfig struct {
	PageSize    int
	Concurrency int
}

type SchedulerConfig struct {
	Enabled       bool
	SweepInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mattilda")
	v.SetDefault("app.env", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("database.path", "mattilda.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.api_ttl", 5*time.Minute)
	v.SetDefault("cache.api_capacity", 1000)
	v.SetDefault("cache.static_ttl", 30*time.Minute)
	v.SetDefault("cache.static_capacity", 500)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mattilda")

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "mattilda")
	v.SetDefault("jwt.access_token_expiration", 30*time.Minute)
	v.SetDefault("jwt.refresh_token_expiration", 7*24*time.Hour)

	v.SetDefault("auth.required", false)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("statement.page_size", 500)
	v.SetDefault("statement.concurrency", 8)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_interval", time.Minute)
}

// Load reads configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetInt("http.port"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			AllowedOrigins:  v.GetStringSlice("http.allowed_origins"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Cache: CacheConfig{
			Backend:        strings.ToLower(v.GetString("cache.backend")),
			APITTL:         v.GetDuration("cache.api_ttl"),
			APICapacity:    v.GetInt("cache.api_capacity"),
			StaticTTL:      v.GetDuration("cache.static_ttl"),
			StaticCapacity: v.GetInt("cache.static_capacity"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			Issuer:                 v.GetString("jwt.issuer"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
		},
		Auth: AuthConfig{
			Required:   v.GetBool("auth.required"),
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Statement: StatementConfig{
			PageSize:    v.GetInt("statement.page_size"),
			Concurrency: v.GetInt("statement.concurrency"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			SweepInterval: v.GetDuration("scheduler.sweep_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	case c.Database.Path == "":
		return errors.New("database.path is required")
	case c.Cache.Backend != "memory" && c.Cache.Backend != "redis":
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	case c.JWT.Secret == "":
		return errors.New("jwt.secret is required")
	case c.Statement.PageSize <= 0:
		return errors.New("statement.page_size must be positive")
	case c.Statement.Concurrency <= 0:
		return errors.New("statement.concurrency must be positive")
	}
	if c.IsProduction() && c.JWT.Secret == "change-me-in-production" {
		return errors.New("jwt.secret must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.App.Env == "production" }
