// Package config loads diagramsync settings from a TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, environment
// variables. A missing file at the default location is not an error.
//
// Example config.toml:
//
//	theme = "dark"
//	addr  = ":8790"
//
//	[history]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[render]
//	font_size = 16
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

const appName = "diagramsync"

// History backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config holds every setting the CLI and server read.
type Config struct {
	Theme    string         `toml:"theme"`
	Addr     string         `toml:"addr"`
	History  HistoryConfig  `toml:"history"`
	Cache    CacheConfig    `toml:"cache"`
	Render   RenderConfig   `toml:"render"`
	Generate GenerateConfig `toml:"generate"`
}

// HistoryConfig selects and configures the history store.
type HistoryConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisURL      string `toml:"redis_url"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	Limit         int    `toml:"limit"`
}

// CacheConfig selects the render cache.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`

	// Prefix scopes keys when several deployments share one Redis cache.
	Prefix string `toml:"prefix"`
}

// RenderConfig tunes Graphviz layout.
type RenderConfig struct {
	FontSize float64 `toml:"font_size"`
	NodeSep  float64 `toml:"node_sep"`
	RankSep  float64 `toml:"rank_sep"`
}

// GenerateConfig points at the generation service.
type GenerateConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Theme: "light",
		Addr:  ":8790",
		History: HistoryConfig{
			Backend: BackendFile,
			Limit:   50,
		},
		Cache: CacheConfig{
			Backend: BackendFile,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/diagramsync/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path (or the default location when empty), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Theme = getenv("DIAGRAMSYNC_THEME", c.Theme)
	c.Addr = getenv("DIAGRAMSYNC_ADDR", c.Addr)

	c.History.Backend = getenv("DIAGRAMSYNC_HISTORY", c.History.Backend)
	c.History.Dir = getenv("DIAGRAMSYNC_HISTORY_DIR", c.History.Dir)
	c.History.RedisURL = getenv("REDIS_URL", c.History.RedisURL)
	c.History.MongoURI = getenv("MONGO_URI", c.History.MongoURI)
	c.History.MongoDatabase = getenv("MONGO_DATABASE", c.History.MongoDatabase)
	c.History.Limit = getenvInt("DIAGRAMSYNC_HISTORY_LIMIT", c.History.Limit)

	c.Cache.Backend = getenv("DIAGRAMSYNC_CACHE", c.Cache.Backend)
	c.Cache.Dir = getenv("DIAGRAMSYNC_CACHE_DIR", c.Cache.Dir)
	c.Cache.RedisURL = getenv("REDIS_URL", c.Cache.RedisURL)
	c.Cache.Prefix = getenv("DIAGRAMSYNC_CACHE_PREFIX", c.Cache.Prefix)

	c.Render.FontSize = getenvFloat("DIAGRAMSYNC_FONT_SIZE", c.Render.FontSize)

	c.Generate.Endpoint = getenv("DIAGRAMSYNC_GENERATE_URL", c.Generate.Endpoint)
	c.Generate.APIKey = getenv("DIAGRAMSYNC_API_KEY", c.Generate.APIKey)
}

// Validate checks enumerated settings and backend prerequisites.
func (c Config) Validate() error {
	if err := errors.ValidateTheme(c.Theme); err != nil {
		return err
	}
	switch c.History.Backend {
	case BackendMemory, BackendFile, BackendNone:
	case BackendRedis:
		if c.History.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "history backend redis requires redis_url or REDIS_URL")
		}
	case BackendMongo:
		if c.History.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "history backend mongo requires mongo_uri or MONGO_URI")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid history backend: %q (must be one of: memory, file, redis, mongo, none)", c.History.Backend)
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache backend redis requires redis_url or REDIS_URL")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid cache backend: %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.History.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "history limit cannot be negative")
	}
	if c.Render.FontSize < 0 || c.Render.NodeSep < 0 || c.Render.RankSep < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "render sizes cannot be negative")
	}
	return nil
}

// CacheDir returns the configured cache directory, or the XDG default
// (~/.cache/diagramsync/).
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
