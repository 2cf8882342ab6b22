package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock fires due timers synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// pending returns the number of armed timers.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// gatedLoader blocks each call until release is signalled and returns the
// configured result.
type gatedLoader struct {
	calls   atomic.Int32
	release chan struct{}

	mu    sync.Mutex
	value any
	err   error
}

func newGatedLoader(value any) *gatedLoader {
	return &gatedLoader{release: make(chan struct{}, 16), value: value}
}

func (g *gatedLoader) set(value any, err error) {
	g.mu.Lock()
	g.value, g.err = value, err
	g.mu.Unlock()
}

func (g *gatedLoader) load(ctx context.Context, key Key) (any, error) {
	g.calls.Add(1)
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value, g.err
}

func (g *gatedLoader) open() { g.release <- struct{}{} }

func immediate(value any) Loader {
	return func(ctx context.Context, key Key) (any, error) { return value, nil }
}

// recorder collects notifications.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) onChange(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func inflight(q *Query) *Fetch {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

// waitFetch waits for the in-flight fetch of q, if any, to complete.
func waitFetch(t *testing.T, q *Query) State {
	t.Helper()
	f := inflight(q)
	if f == nil {
		return q.CurrentResult()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("wait fetch: %v", err)
	}
	return st
}

func newTestClient(clock Clock) *Client {
	return NewClient(ClientConfig{Clock: clock, CacheTime: time.Minute})
}
