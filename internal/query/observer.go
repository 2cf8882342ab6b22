package query

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Observer is a per-consumer attachment to a Query. It applies the staleness
// policy and forwards notifications to exactly one listener.
type Observer struct {
	id        ulid.ULID
	query     *Query
	staleTime time.Duration

	mu       sync.Mutex
	onChange func(State)
}

// NewObserver binds an observer to q. A staleTime <= 0 treats every cached
// result as stale.
func NewObserver(q *Query, staleTime time.Duration) *Observer {
	return &Observer{id: ulid.Make(), query: q, staleTime: staleTime}
}

func (o *Observer) ID() string    { return o.id.String() }
func (o *Observer) Query() *Query { return o.query }

// Attach registers onChange, subscribes to the query and triggers a fetch if
// the cached result is stale. The returned func detaches the observer.
func (o *Observer) Attach(onChange func(State)) (func(), error) {
	o.mu.Lock()
	o.onChange = onChange
	o.mu.Unlock()

	unsubscribe, err := o.query.Subscribe(o)
	if err != nil {
		return nil, err
	}
	o.maybeFetch()
	return unsubscribe, nil
}

// CurrentResult reads through to the query.
func (o *Observer) CurrentResult() State { return o.query.CurrentResult() }

func (o *Observer) maybeFetch() *Fetch {
	if !o.isStale(o.query.CurrentResult()) {
		return nil
	}
	return o.query.Fetch()
}

func (o *Observer) isStale(s State) bool {
	if s.LastUpdated.IsZero() || o.staleTime <= 0 {
		return true
	}
	return o.query.clock.Now().Sub(s.LastUpdated) > o.staleTime
}

func (o *Observer) notify(s State) {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
