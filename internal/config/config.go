// Package config loads the boardauth server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTP
	Database Database
	Log      Log
	Kakao    Kakao
	State    State
	Metrics  Metrics
}

type HTTP struct {
	Addr          string `env:"BOARDAUTH_HTTP_ADDR"           envDefault:":8080"`
	BasePath      string `env:"BOARDAUTH_HTTP_BASE_PATH"      envDefault:"/api/auth"`
	SecureCookies bool   `env:"BOARDAUTH_HTTP_SECURE_COOKIES" envDefault:"false"`
}

type Database struct {
	// Driver is "postgres", "sqlite" or "memory".
	Driver string `env:"BOARDAUTH_DB_DRIVER" envDefault:"sqlite"`

	// DSN is a postgres:// URL or a SQLite file path.
	DSN string `env:"BOARDAUTH_DB_DSN" envDefault:"boardauth.db"`
}

type Log struct {
	Env   string `env:"BOARDAUTH_LOG_ENV"   envDefault:"dev"`
	Level string `env:"BOARDAUTH_LOG_LEVEL" envDefault:"info"`
}

// Kakao enables the browser login flow when ClientID is set.
type Kakao struct {
	ClientID     string   `env:"BOARDAUTH_KAKAO_CLIENT_ID"`
	ClientSecret string   `env:"BOARDAUTH_KAKAO_CLIENT_SECRET"`
	RedirectURL  string   `env:"BOARDAUTH_KAKAO_REDIRECT_URL"`
	Scopes       []string `env:"BOARDAUTH_KAKAO_SCOPES" envSeparator:","`
}

func (k Kakao) Enabled() bool { return k.ClientID != "" }

type State struct {
	// Driver is "memory" or "redis".
	Driver    string        `env:"BOARDAUTH_STATE_DRIVER"     envDefault:"memory"`
	TTL       time.Duration `env:"BOARDAUTH_STATE_TTL"        envDefault:"10m"`
	RedisAddr string        `env:"BOARDAUTH_REDIS_ADDR"`
	RedisDB   int           `env:"BOARDAUTH_REDIS_DB"         envDefault:"0"`
	RedisPass string        `env:"BOARDAUTH_REDIS_PASSWORD"`
	KeyPrefix string        `env:"BOARDAUTH_STATE_KEY_PREFIX"`
}

type Metrics struct {
	Enabled bool   `env:"BOARDAUTH_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"BOARDAUTH_METRICS_PATH"    envDefault:"/metrics"`
}

// Load reads the optional dotenv files, then the environment. Variables that
// are already set win over the files.
func Load(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("config: BOARDAUTH_DB_DSN is required for %s", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}

	switch c.State.Driver {
	case "memory":
	case "redis":
		if c.State.RedisAddr == "" {
			return errors.New("config: BOARDAUTH_REDIS_ADDR is required for the redis state store")
		}
	default:
		return fmt.Errorf("config: unknown state driver %q", c.State.Driver)
	}

	if c.Kakao.Enabled() && c.Kakao.RedirectURL == "" {
		return errors.New("config: BOARDAUTH_KAKAO_REDIRECT_URL is required when BOARDAUTH_KAKAO_CLIENT_ID is set")
	}
	return nil
}
