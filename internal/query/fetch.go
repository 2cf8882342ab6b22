package query

import (
	"context"
	"time"
)

// Fetch is the handle of one loader invocation. Every Fetch call made while
// the invocation is outstanding receives the same handle. The invocation
// itself runs through the query's singleflight group.
type Fetch struct {
	done  chan struct{}
	state State
}

func newFetch() *Fetch { return &Fetch{done: make(chan struct{})} }

// Done is closed once the loader result has been applied.
func (f *Fetch) Done() <-chan struct{} { return f.done }

// Wait blocks until the fetch completes or ctx ends. A loader failure is not
// an error here: it is reported through the returned State.
func (f *Fetch) Wait(ctx context.Context) (State, error) {
	select {
	case <-f.done:
		return f.state, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Result returns the applied state and true once the fetch has completed.
func (f *Fetch) Result() (State, bool) {
	select {
	case <-f.done:
		return f.state, true
	default:
		return State{}, false
	}
}

func (f *Fetch) complete(s State) {
	f.state = s
	close(f.done)
}

// Fetch starts a loader invocation unless one is already in flight, in which
// case the existing handle is returned.
func (q *Query) Fetch() *Fetch {
	f, _ := q.TryFetch()
	return f
}

// TryFetch is Fetch that also reports whether the call joined a fetch that
// was already running. The join check, the in-flight handle and the
// "fetching" transition are committed in one critical section.
func (q *Query) TryFetch() (*Fetch, bool) {
	q.mu.Lock()
	f, joined := q.inflight, q.inflight != nil
	if !joined {
		f = newFetch()
		q.inflight = f
		s := q.state
		s.IsFetching = true
		s.Err = nil
		q.commitLocked(s)
	}
	// Joiners land on the running call; the result channel is buffered and
	// the shared handle reports completion instead.
	q.group.DoChan(q.hash, func() (any, error) { return q.run(f), nil })
	q.mu.Unlock()

	if joined {
		fetchDedupTotal.WithLabelValues(scopeLabel(q.scope)).Inc()
		q.client.publish(Event{Name: EventFetchDeduped, Key: q.hash, Fields: map[string]any{}})
		return f, true
	}
	q.client.log.Debug().Str("key", q.hash).Msg("fetch start")
	q.client.publish(Event{Name: EventFetchStart, Key: q.hash, Fields: map[string]any{}})
	q.deliver()
	return f, false
}

func (q *Query) run(f *Fetch) State {
	start := time.Now()
	data, err := q.load()
	dur := time.Since(start)
	loaderDuration.WithLabelValues(scopeLabel(q.scope)).Observe(dur.Seconds())

	now := q.clock.Now()
	collectSeq, collect := uint64(0), false
	q.mu.Lock()
	s := q.state
	if err != nil {
		// Data from an earlier success is kept so callers can show it
		// alongside the error.
		s.Status = StatusError
		s.Err = err
	} else {
		s.Status = StatusSuccess
		s.Data = data
		s.LastUpdated = now
	}
	s.IsFetching = false
	st := q.commitLocked(s)
	q.inflight = nil
	q.group.Forget(q.hash)
	if q.gcDue && len(q.subscribers) == 0 && !q.removed {
		q.gcDue = false
		q.gcSeq++
		collectSeq, collect = q.gcSeq, true
	}
	q.mu.Unlock()
	q.deliver()

	if err != nil {
		fetchesTotal.WithLabelValues(scopeLabel(q.scope), "error").Inc()
		q.client.log.Warn().Str("key", q.hash).Dur("dur", dur).Err(err).Msg("fetch failed")
		q.client.publish(Event{Name: EventFetchError, Key: q.hash, Fields: map[string]any{"error": err.Error(), "dur_ms": dur.Milliseconds()}})
	} else {
		fetchesTotal.WithLabelValues(scopeLabel(q.scope), "success").Inc()
		q.client.log.Debug().Str("key", q.hash).Dur("dur", dur).Msg("fetch done")
		q.client.publish(Event{Name: EventFetchSuccess, Key: q.hash, Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	}
	f.complete(st)

	if collect {
		q.client.collect(q, collectSeq)
	}
	return st
}

// load invokes the loader, converting a panic into a failure.
func (q *Query) load() (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &LoaderPanicError{Key: q.hash, Value: r}
		}
	}()
	return q.loader(context.Background(), q.key)
}
