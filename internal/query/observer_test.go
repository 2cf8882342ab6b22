package query

import (
	"testing"
	"time"
)

// loadOnce attaches with staleTime, waits for the initial fetch and detaches.
func loadOnce(t *testing.T, c *Client, g *gatedLoader, key Key) *Query {
	t.Helper()
	_, unsub, err := c.Attach(key, g.load, Options{}, nil)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	q, _ := c.Lookup(key)
	g.open()
	waitFetch(t, q)
	unsub()
	return q
}

func TestStalenessWindow(t *testing.T) {
	clock := newFakeClock()
	c := NewClient(ClientConfig{Clock: clock, CacheTime: time.Hour})
	g := newGatedLoader("v")
	key := Key{"posts"}
	q := loadOnce(t, c, g, key)

	cases := []struct {
		name      string
		advance   time.Duration
		wantFetch bool
	}{
		{"within window", 5 * time.Second, false},
		{"exactly at window", 5 * time.Second, false},
		{"past window", time.Millisecond, true},
	}
	for _, tc := range cases {
		clock.Advance(tc.advance)
		before := g.calls.Load()
		o := NewObserver(q, 10*time.Second)
		unsub, err := o.Attach(nil)
		if err != nil {
			t.Fatalf("%s: attach: %v", tc.name, err)
		}
		fetched := g.calls.Load() > before || inflight(q) != nil
		if fetched != tc.wantFetch {
			t.Fatalf("%s: fetched=%v want %v", tc.name, fetched, tc.wantFetch)
		}
		if fetched {
			g.open()
			waitFetch(t, q)
		}
		unsub()
	}
}

func TestStaleTimeZeroAlwaysFetches(t *testing.T) {
	clock := newFakeClock()
	c := NewClient(ClientConfig{Clock: clock, CacheTime: time.Hour})
	g := newGatedLoader("v")
	key := Key{"posts"}
	loadOnce(t, c, g, key)
	loadOnce(t, c, g, key)
	if n := g.calls.Load(); n != 2 {
		t.Fatalf("expected a fetch per attachment, got %d", n)
	}
}

func TestClientStaleTimeDefault(t *testing.T) {
	clock := newFakeClock()
	c := NewClient(ClientConfig{Clock: clock, CacheTime: time.Hour, StaleTime: time.Minute})
	g := newGatedLoader("v")
	key := Key{"posts"}
	loadOnce(t, c, g, key)

	_, unsub, err := c.Attach(key, g.load, Options{}, nil)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer unsub()
	if n := g.calls.Load(); n != 1 {
		t.Fatalf("expected cached result reused within client stale time, got %d calls", n)
	}
}

func TestAlwaysStaleOverridesClientStaleTime(t *testing.T) {
	clock := newFakeClock()
	c := NewClient(ClientConfig{Clock: clock, CacheTime: time.Hour, StaleTime: time.Minute})
	g := newGatedLoader("v")
	key := Key{"posts"}
	q := loadOnce(t, c, g, key)

	_, unsub, err := c.Attach(key, g.load, Options{StaleTime: AlwaysStale}, nil)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer unsub()
	if inflight(q) == nil {
		t.Fatalf("expected a refetch despite the client stale time")
	}
	g.open()
	waitFetch(t, q)
	if n := g.calls.Load(); n != 2 {
		t.Fatalf("expected two loader calls, got %d", n)
	}
}

func TestErrorWithoutDataIsAlwaysStale(t *testing.T) {
	clock := newFakeClock()
	c := NewClient(ClientConfig{Clock: clock, CacheTime: time.Hour})
	g := newGatedLoader(nil)
	g.set(nil, &networkError{msg: "down"})
	key := Key{"k"}
	_, unsub, _ := c.Attach(key, g.load, Options{StaleTime: time.Hour}, nil)
	q, _ := c.Lookup(key)
	g.open()
	waitFetch(t, q)
	unsub()

	o := NewObserver(q, time.Hour)
	unsub, _ = o.Attach(nil)
	defer unsub()
	if inflight(q) == nil {
		t.Fatalf("expected a refetch for a query that never loaded")
	}
	g.open()
	waitFetch(t, q)
}

func TestObserverCurrentResultReadsThrough(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)
	o := NewObserver(q, time.Hour)
	if o.ID() == "" {
		t.Fatalf("expected observer id")
	}
	q.SetState(func(s State) State {
		s.Data = "direct"
		return s
	})
	if o.CurrentResult().Data != "direct" {
		t.Fatalf("expected read-through, got %+v", o.CurrentResult())
	}
	if o.Query() != q {
		t.Fatalf("observer bound to wrong query")
	}
}
