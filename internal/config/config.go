// Package config loads the eqgraph TOML configuration file.
//
// The file is optional. Every field has a default, and command-line flags
// override whatever the file sets:
//
//	[cache]
//	backend = "redis"      # file | redis | none
//	ttl = "72h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//	prefix = "eqgraph:"
//
//	[server]
//	addr = ":8080"
//
//	[render]
//	cell_size = 12
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

const appName = "eqgraph"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

var backends = []string{BackendFile, BackendRedis, BackendNone}

// Config is the full configuration.
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
	Render RenderConfig `toml:"render"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	TTL     Duration    `toml:"ttl"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `toml:"metrics"`
}

// RenderConfig configures solution rendering.
type RenderConfig struct {
	CellSize int `toml:"cell_size"`
}

// Duration is a time.Duration written as a Go duration string ("36h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: BackendFile,
			Dir:     DefaultCacheDir(),
			TTL:     Duration{7 * 24 * time.Hour},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "eqgraph:",
			},
		},
		Server: ServerConfig{Addr: ":8080", Metrics: true},
		Render: RenderConfig{CellSize: 10},
	}
}

// Load reads the file at path over the defaults. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "config file %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if !slices.Contains(backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend %q: want one of %s", c.Cache.Backend, strings.Join(backends, ", "))
	}
	if c.Cache.Backend == BackendFile && c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.dir must be set for the file backend")
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis.addr must be set for the redis backend")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}
	if c.Render.CellSize < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "render.cell_size must be at least 1, got %d", c.Render.CellSize)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/eqgraph/config.toml, falling back to
// ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// DefaultCacheDir returns $XDG_CACHE_HOME/eqgraph, falling back to ~/.cache.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}

// Write encodes c as TOML to path, creating parent directories.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
