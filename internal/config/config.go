package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration read from TIMETRACK_* environment variables and
// an optional YAML file.
type Config struct {
	DB struct {
		Driver string // mysql, postgres or sqlite
		DSN    string // e.g., user:pass@tcp(host:3306)/timetrack, postgres://..., timetrack.db
	}
	HTTP struct {
		Addr string
	}
	Token struct {
		Secret string
		TTL    time.Duration
	}
	AMQP struct {
		URL      string // empty disables event publishing
		Exchange string
	}
	Session struct {
		File string
	}
	Timezone string         // IANA name or Local
	Location *time.Location // resolved Timezone
}

const envPrefix = "TIMETRACK"

var drivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

// Load reads configuration from the environment and, when path is non-empty
// or TIMETRACK_CONFIG is set, from that YAML file. A missing file is not an
// error.
func Load(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "timetrack.db")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("timezone", "Local")
	v.SetDefault("token.ttl", "12h")
	v.SetDefault("amqp.exchange", "timetrack.events")
	v.SetDefault("session.file", defaultSessionFile())

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg.DB.Driver = strings.ToLower(v.GetString("db.driver"))
	if !drivers[cfg.DB.Driver] {
		return cfg, fmt.Errorf("TIMETRACK_DB_DRIVER must be mysql, postgres or sqlite, got %q", cfg.DB.Driver)
	}
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.HTTP.Addr = v.GetString("http.addr")

	cfg.Token.Secret = v.GetString("token.secret")
	if cfg.Token.Secret == "" {
		return cfg, errors.New("TIMETRACK_TOKEN_SECRET is required")
	}
	ttl, err := time.ParseDuration(v.GetString("token.ttl"))
	if err != nil || ttl <= 0 {
		return cfg, errors.New("TIMETRACK_TOKEN_TTL must be a positive duration")
	}
	cfg.Token.TTL = ttl

	cfg.AMQP.URL = v.GetString("amqp.url")
	cfg.AMQP.Exchange = v.GetString("amqp.exchange")
	cfg.Session.File = v.GetString("session.file")

	cfg.Timezone = v.GetString("timezone")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("TIMETRACK_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".timetrack", "session.json")
	}
	return filepath.Join(dir, "timetrack", "session.json")
}
