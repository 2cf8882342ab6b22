package query

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Query owns the cached state for one key.
type Query struct {
	key       Key
	hash      string
	scope     string
	loader    Loader
	cacheTime time.Duration
	client    *Client
	clock     Clock

	// group runs at most one loader call per query. The key is forgotten in
	// the same critical section that clears inflight.
	group singleflight.Group

	mu          sync.Mutex
	state       State
	subscribers map[*Observer]struct{}
	inflight    *Fetch
	pending     []delivery // transitions not yet delivered, oldest first
	delivering  bool
	gcTimer     Timer
	gcSeq       uint64
	gcDue       bool // GC fired during a fetch; collect once it completes
	removed     bool
}

func newQuery(c *Client, key Key, hash string, loader Loader, cacheTime time.Duration) *Query {
	return &Query{
		key:         key,
		hash:        hash,
		scope:       key.Scope(),
		loader:      loader,
		cacheTime:   cacheTime,
		client:      c,
		clock:       c.clock,
		state:       initialState(),
		subscribers: make(map[*Observer]struct{}),
	}
}

func (q *Query) Key() Key                 { return q.key }
func (q *Query) Hash() string             { return q.hash }
func (q *Query) CacheTime() time.Duration { return q.cacheTime }

// CurrentResult returns the latest state snapshot.
func (q *Query) CurrentResult() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// SubscriberCount returns the number of attached observers.
func (q *Query) SubscriberCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subscribers)
}

// Subscribe adds o to the subscriber set and cancels any pending GC. The
// returned func removes it again; when the set becomes empty GC is scheduled
// after CacheTime. The unsubscribe func is safe to call more than once.
func (q *Query) Subscribe(o *Observer) (func(), error) {
	q.mu.Lock()
	if q.removed {
		q.mu.Unlock()
		return nil, ErrQueryRemoved
	}
	q.subscribers[o] = struct{}{}
	q.gcDue = false
	q.unscheduleGCLocked()
	q.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { q.unsubscribe(o) }) }, nil
}

func (q *Query) unsubscribe(o *Observer) {
	q.mu.Lock()
	if _, ok := q.subscribers[o]; !ok {
		q.mu.Unlock()
		return
	}
	delete(q.subscribers, o)
	scheduled := false
	if len(q.subscribers) == 0 && !q.removed {
		q.scheduleGCLocked()
		scheduled = q.gcTimer != nil
	}
	q.mu.Unlock()

	if scheduled {
		q.client.publish(Event{Name: EventGCScheduled, Key: q.hash, Fields: map[string]any{"cache_time_ms": q.cacheTime.Milliseconds()}})
	}
}

// delivery is one committed state and the subscribers it is addressed to.
type delivery struct {
	state State
	subs  []*Observer
}

// SetState applies transform to the current state and notifies every current
// subscriber. Outside of a listener the notification has been delivered when
// SetState returns. A call made from a listener, or while another goroutine
// is delivering, queues its state behind the one being delivered and returns;
// the delivering caller drains the queue in order.
//
// Listeners may read CurrentResult, unsubscribe, attach or start a fetch from
// within the callback.
func (q *Query) SetState(transform func(State) State) {
	q.mu.Lock()
	q.commitLocked(transform(q.state))
	q.mu.Unlock()
	q.deliver()
}

// commitLocked replaces the state and queues it for the current subscribers.
func (q *Query) commitLocked(s State) State {
	q.state = s
	subs := make([]*Observer, 0, len(q.subscribers))
	for o := range q.subscribers {
		subs = append(subs, o)
	}
	q.pending = append(q.pending, delivery{state: s, subs: subs})
	return s
}

// deliver drains the pending queue unless another caller already is.
func (q *Query) deliver() {
	q.mu.Lock()
	if q.delivering {
		q.mu.Unlock()
		return
	}
	q.delivering = true
	for len(q.pending) > 0 {
		d := q.pending[0]
		q.pending[0] = delivery{}
		q.pending = q.pending[1:]
		// Skip observers that detached while the state was queued.
		subs := d.subs[:0]
		for _, o := range d.subs {
			if _, ok := q.subscribers[o]; ok {
				subs = append(subs, o)
			}
		}
		q.mu.Unlock()
		q.notifyAll(d.state, subs)
		q.mu.Lock()
	}
	q.pending = nil
	q.delivering = false
	q.mu.Unlock()
}

func (q *Query) notifyAll(s State, subs []*Observer) {
	ok := false
	defer func() {
		// A panicking listener gives up the delivery slot.
		if !ok {
			q.mu.Lock()
			q.delivering = false
			q.mu.Unlock()
		}
	}()
	for _, o := range subs {
		o.notify(s)
	}
	ok = true
}
