// Package config loads the dashboard settings and the static workshop table.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RESIN"

// Config is built once at startup and passed to constructors.
type Config struct {
	Port      string          `mapstructure:"port"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Source    SourceConfig    `mapstructure:"source"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Workshops Workshops       `mapstructure:"workshops"`
}

// HTTPConfig tunes the API server.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// CacheConfig controls how long a loaded event snapshot is reused.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SourceConfig points at a remote CSV export, fetched on import.
type SourceConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SimulatorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Tick     time.Duration `mapstructure:"tick"`
	Workshop string        `mapstructure:"workshop"`
}

// Load reads config.yml from dir (if present), .env and RESIN_* variables.
func Load(dir string) (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config in %q: %w", dir, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Workshops) == 0 {
		cfg.Workshops = DefaultWorkshops()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "resin.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Minute)
	v.SetDefault("source.url", "")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.tick", 5*time.Second)
	v.SetDefault("simulator.workshop", "FX1")
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Simulator.Enabled {
		if c.Simulator.Tick <= 0 {
			return fmt.Errorf("simulator.tick must be positive, got %s", c.Simulator.Tick)
		}
		if _, ok := c.Workshops.Lookup(c.Simulator.Workshop); !ok {
			return fmt.Errorf("simulator.workshop %q: %w", c.Simulator.Workshop, ErrUnknownWorkshop)
		}
	}
	return c.Workshops.Validate()
}
