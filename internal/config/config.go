package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	DBDriver  string `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite|postgres
	DBDSN     string `envconfig:"DB_DSN" default:"./data/events.db"`
	TZName    string `envconfig:"TZ_NAME" default:"Europe/Moscow"` // zone of the naive local clock
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`        // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`       // json|console
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`       // healthz
	TickSpec  string `envconfig:"TICK_SPEC" default:"* * * * *"`
	AdminID   int64  `envconfig:"ADMIN_ID"`
	SeedFile  string `envconfig:"CATEGORIES_FILE"` // empty: built-in seed

	// Conversation sessions
	StateBackend string        `envconfig:"STATE_BACKEND" default:"memory"` // memory|redis
	RedisURL     string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	StateTTL     time.Duration `envconfig:"STATE_TTL" default:"24h"`
}

// Load reads an optional .env file, then environment variables into Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the app cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER: unknown driver %q", c.DBDriver)
	}
	switch c.StateBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("STATE_BACKEND: unknown backend %q", c.StateBackend)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StateTTL < 0 {
		return fmt.Errorf("STATE_TTL: must not be negative")
	}
	return nil
}

// Location resolves TZName.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TZName)
	if err != nil {
		return nil, fmt.Errorf("TZ_NAME: %w", err)
	}
	return loc, nil
}
