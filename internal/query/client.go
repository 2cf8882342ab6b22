package query

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Client is the registry of queries. It is the only place a Query is
// created or destroyed.
type Client struct {
	mu        sync.RWMutex
	queries   map[string]*Query
	loaders   map[string]Loader
	cacheTime time.Duration
	staleTime time.Duration
	closed    atomic.Bool

	clock     Clock
	log       zerolog.Logger
	publisher EventPublisher
}

// RegisterLoader sets the loader used for keys whose scope matches when the
// caller does not supply one.
func (c *Client) RegisterLoader(scope string, loader Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loader == nil {
		delete(c.loaders, scope)
		return
	}
	c.loaders[scope] = loader
}

// GetQuery returns the query for key, creating it on first use.
//
// On a hit, loader and cacheTime are ignored: the first registration wins.
// A nil loader falls back to the loader registered for the key's scope.
func (c *Client) GetQuery(key Key, loader Loader, cacheTime time.Duration) (*Query, error) {
	hash, err := key.Hash()
	if err != nil {
		return nil, err
	}

	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.RLock()
	q, ok := c.queries[hash]
	c.mu.RUnlock()
	if ok {
		return q, nil
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	// Re-check: another caller may have created it between locks.
	if q, ok := c.queries[hash]; ok {
		c.mu.Unlock()
		return q, nil
	}
	if loader == nil {
		loader = c.loaders[key.Scope()]
	}
	if loader == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w for %s", ErrNoLoader, hash)
	}
	if cacheTime <= 0 {
		cacheTime = c.cacheTime
	}
	q = newQuery(c, key, hash, loader, cacheTime)
	c.queries[hash] = q
	registrySize.Inc()
	c.mu.Unlock()

	c.log.Debug().Str("key", hash).Dur("cache_time", cacheTime).Msg("query created")
	c.publish(Event{Name: EventQueryCreated, Key: hash, Fields: map[string]any{}})
	return q, nil
}

// Lookup returns the registered query for key without creating it.
func (c *Client) Lookup(key Key) (*Query, bool) {
	hash, err := key.Hash()
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.queries[hash]
	return q, ok
}

// Len returns the number of registered queries.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries)
}

// Attach finds or creates the query for key, attaches a new observer that
// forwards every state change to onChange, and applies the staleness policy.
// It returns the state right after attaching and the detach func.
func (c *Client) Attach(key Key, loader Loader, opts Options, onChange func(State)) (State, func(), error) {
	staleTime := opts.StaleTime
	if staleTime == 0 {
		staleTime = c.staleTime
	}
	for {
		q, err := c.GetQuery(key, loader, opts.CacheTime)
		if err != nil {
			return State{}, nil, err
		}
		o := NewObserver(q, staleTime)
		unsubscribe, err := o.Attach(onChange)
		if errors.Is(err, ErrQueryRemoved) {
			// Collected between lookup and subscribe; resolve again.
			continue
		}
		if err != nil {
			return State{}, nil, err
		}
		return o.CurrentResult(), unsubscribe, nil
	}
}

// Fetch triggers a fetch of an existing query regardless of staleness.
func (c *Client) Fetch(key Key) (*Fetch, error) {
	hash, err := key.Hash()
	if err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.RLock()
	q, ok := c.queries[hash]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, hash)
	}
	return q.Fetch(), nil
}

// RemoveQuery unconditionally drops q from the registry.
func (c *Client) RemoveQuery(q *Query) {
	c.mu.Lock()
	q.mu.Lock()
	q.removed = true
	q.gcDue = false
	q.unscheduleGCLocked()
	q.mu.Unlock()
	c.removeLocked(q)
	c.mu.Unlock()
}

func (c *Client) removeLocked(q *Query) {
	if cur, ok := c.queries[q.hash]; ok && cur == q {
		delete(c.queries, q.hash)
		registrySize.Dec()
	}
}

// Close stops all GC timers and rejects further lookups. Registered queries
// stay readable. Close is safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, q := range c.queries {
		q.mu.Lock()
		q.gcDue = false
		q.unscheduleGCLocked()
		q.mu.Unlock()
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool { return c.closed.Load() }

func (c *Client) publish(e Event) { c.publisher.Publish(e) }
