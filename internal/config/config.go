// Package config loads catalogtree settings from file, environment and defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/nainya/catalogtree/internal/logger"
)

// EnvPrefix is prepended to every environment key: CATALOGTREE_TREE_MAX_DEPTH.
const EnvPrefix = "CATALOGTREE"

// Config is the full process configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      logger.Config  `mapstructure:"log"`
	Tree     TreeConfig     `mapstructure:"tree"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	Reflection bool   `mapstructure:"reflection"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TreeConfig tunes hierarchy traversal.
type TreeConfig struct {
	// MaxDepth caps traversal rounds; 0 means unlimited.
	MaxDepth int `mapstructure:"max_depth"`
	// BatchSize splits IN-lists into chunks of at most this many ids.
	BatchSize int `mapstructure:"batch_size"`
	// BatchConcurrency bounds parallel chunk fetches within one round.
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "catalogtree.db"},
		Server:   ServerConfig{Addr: ":50051", Reflection: true},
		Metrics:  MetricsConfig{Enabled: true, Port: 9090},
		Log:      logger.Config{Level: "info"},
		Tree:     TreeConfig{MaxDepth: 0, BatchSize: 500, BatchConcurrency: 4},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.reflection", d.Server.Reflection)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.with_caller", d.Log.WithCaller)
	v.SetDefault("tree.max_depth", d.Tree.MaxDepth)
	v.SetDefault("tree.batch_size", d.Tree.BatchSize)
	v.SetDefault("tree.batch_concurrency", d.Tree.BatchConcurrency)
}

// New returns a viper instance with defaults and environment binding, ready
// for flag binding by the caller.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (optional; any format viper understands) over the defaults
// and environment, then validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}
	if c.Tree.MaxDepth < 0 {
		return errors.New("config: tree.max_depth must not be negative")
	}
	if c.Tree.BatchSize < 1 {
		return errors.New("config: tree.batch_size must be positive")
	}
	if c.Tree.BatchConcurrency < 1 {
		return errors.New("config: tree.batch_concurrency must be positive")
	}
	return nil
}
