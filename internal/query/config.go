package query

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ClientConfig fields are unset.
const (
	DefaultCacheTime = 5 * time.Minute
	DefaultStaleTime = 0
)

// AlwaysStale as Options.StaleTime makes an attachment refetch regardless of
// the client's StaleTime.
const AlwaysStale time.Duration = -1

// ClientConfig encapsulates all tunables for Client construction.
type ClientConfig struct {
	// CacheTime is the GC delay for queries created without an explicit one.
	CacheTime time.Duration
	// StaleTime is applied to attachments that leave Options.StaleTime unset.
	StaleTime time.Duration
	// Loaders maps a key scope to its default loader.
	Loaders map[string]Loader

	Clock     Clock
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewClient constructs a Client from ClientConfig.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		queries:   make(map[string]*Query),
		loaders:   make(map[string]Loader, len(cfg.Loaders)),
		cacheTime: cfg.CacheTime,
		staleTime: cfg.StaleTime,
		clock:     cfg.Clock,
		publisher: cfg.Publisher,
	}
	// Apply defaults if unset
	if c.cacheTime <= 0 {
		c.cacheTime = DefaultCacheTime
	}
	if c.staleTime < 0 {
		c.staleTime = DefaultStaleTime
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.publisher == nil {
		c.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "query").Logger()
	} else {
		c.log = zerolog.Nop()
	}
	for scope, l := range cfg.Loaders {
		c.loaders[scope] = l
	}
	return c
}
