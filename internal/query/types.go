package query

import (
	"context"
	"time"
)

// Status is the display status of a query.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is an immutable snapshot of a query.
type State struct {
	Status     Status
	IsFetching bool
	Data       any
	Err        error
	// LastUpdated is the time of the last successful load; zero when absent.
	LastUpdated time.Time
}

// HasData reports whether a successful load has ever completed.
func (s State) HasData() bool { return !s.LastUpdated.IsZero() }

func initialState() State {
	return State{Status: StatusLoading, IsFetching: true}
}

// Loader produces the value for a key. It may block; it is never canceled
// once started.
type Loader func(ctx context.Context, key Key) (any, error)

// Options configure an attachment. Zero values select the client defaults.
type Options struct {
	// StaleTime is the age a cached result must exceed before an attachment
	// triggers a refetch. Zero uses the client's StaleTime; a negative value
	// (AlwaysStale) treats every cached result as stale.
	StaleTime time.Duration
	// CacheTime is how long an unobserved query is kept. Only honored when
	// the attachment creates the query.
	CacheTime time.Duration
}
