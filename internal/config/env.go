package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAddr        = "QUERYLITE_ADDR"
	EnvUpstreamURL = "QUERYLITE_UPSTREAM"
	EnvStaleTime   = "QUERYLITE_STALE_TIME"
	EnvCacheTime   = "QUERYLITE_CACHE_TIME"
	EnvLoaderDelay = "QUERYLITE_LOADER_DELAY"
	EnvLogLevel    = "QUERYLITE_LOG_LEVEL"
	EnvCORSOrigins = "QUERYLITE_CORS_ORIGINS"
)

// ApplyEnv overlays environment variables onto c. Invalid durations are
// ignored and the existing value kept.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvUpstreamURL); v != "" {
		c.UpstreamURL = v
	}
	envDuration(EnvStaleTime, &c.StaleTime)
	envDuration(EnvCacheTime, &c.CacheTime)
	envDuration(EnvLoaderDelay, &c.LoaderDelay)
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		c.CORS.Enabled = true
		c.CORS.Origins = splitList(v)
	}
}

func envDuration(key string, dst *Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		dst.Duration = d
		return
	}
	// bare integers are milliseconds
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		dst.Duration = time.Duration(ms) * time.Millisecond
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
