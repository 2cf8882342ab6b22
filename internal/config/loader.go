package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for querylite.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	UpstreamURL string `json:"upstream_url" yaml:"upstream_url" toml:"upstream_url"`
	// PostsLimit truncates the posts list; 0 keeps every post.
	PostsLimit int `json:"posts_limit" yaml:"posts_limit" toml:"posts_limit"`
	// LoaderDelay is added before every upstream request.
	LoaderDelay Duration `json:"loader_delay" yaml:"loader_delay" toml:"loader_delay"`
	StaleTime   Duration `json:"stale_time" yaml:"stale_time" toml:"stale_time"`
	CacheTime   Duration `json:"cache_time" yaml:"cache_time" toml:"cache_time"`
	// ReadTimeout bounds how long an HTTP read waits for the first result.
	ReadTimeout Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORS        CORS     `json:"cors" yaml:"cors" toml:"cors"`
}

// CORS configures the optional CORS middleware.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
}

const (
	defaultAddr        = ":8080"
	defaultUpstreamURL = "https://jsonplaceholder.typicode.com"
	defaultPostsLimit  = 5
	defaultCacheTime   = 5 * time.Minute
	defaultReadTimeout = 15 * time.Second
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"
)

// Default returns the configuration used when no file or override is given.
func Default() Config {
	return Config{
		Addr:        defaultAddr,
		UpstreamURL: defaultUpstreamURL,
		PostsLimit:  defaultPostsLimit,
		CacheTime:   Duration{defaultCacheTime},
		ReadTimeout: Duration{defaultReadTimeout},
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
	}
}

// Load reads a configuration file based on its extension on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	resolved, err := expandPath(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(resolved)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the cache cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.UpstreamURL) == "" {
		return fmt.Errorf("upstream_url is required")
	}
	if c.PostsLimit < 0 {
		return fmt.Errorf("posts_limit must be >= 0, got %d", c.PostsLimit)
	}
	if c.StaleTime.Duration < 0 || c.CacheTime.Duration < 0 || c.LoaderDelay.Duration < 0 || c.ReadTimeout.Duration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return trimmed, nil
}
