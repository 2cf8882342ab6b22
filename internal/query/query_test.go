package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type networkError struct{ msg string }

func (e *networkError) Error() string { return "network: " + e.msg }

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader("value")
	q, err := c.GetQuery(Key{"k"}, g.load, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	const callers = 16
	handles := make([]*Fetch, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = q.Fetch()
		}(i)
	}
	wg.Wait()
	g.open()

	for i, f := range handles {
		if f != handles[0] {
			t.Fatalf("caller %d got a different handle", i)
		}
		st, err := f.Wait(context.Background())
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
		if st.Status != StatusSuccess || st.Data != "value" {
			t.Fatalf("caller %d saw %+v", i, st)
		}
	}
	if n := g.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one loader call, got %d", n)
	}
}

func TestTryFetchReportsJoin(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader("v")
	q, _ := c.GetQuery(Key{"k"}, g.load, 0)

	f1, joined := q.TryFetch()
	if joined {
		t.Fatalf("first call must start a fetch")
	}
	f2, joined := q.TryFetch()
	if !joined || f2 != f1 {
		t.Fatalf("second call should join the running fetch")
	}
	g.open()
	_, _ = f1.Wait(context.Background())
	if _, joined := q.TryFetch(); joined {
		t.Fatalf("call after completion must not join")
	}
	g.open()
	waitFetch(t, q)
}

func TestFetchAfterCompletionStartsNewCall(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader(1)
	q, _ := c.GetQuery(Key{"k"}, g.load, 0)

	f1 := q.Fetch()
	g.open()
	_, _ = f1.Wait(context.Background())

	f2 := q.Fetch()
	if f1 == f2 {
		t.Fatalf("expected a new handle after completion")
	}
	g.open()
	_, _ = f2.Wait(context.Background())
	if n := g.calls.Load(); n != 2 {
		t.Fatalf("expected two loader calls, got %d", n)
	}
}

func TestSetStateNotifiesEverySubscriberOnceBeforeReturning(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)

	recs := make([]*recorder, 3)
	for i := range recs {
		recs[i] = &recorder{}
		o := NewObserver(q, time.Hour)
		o.onChange = recs[i].onChange
		if _, err := q.Subscribe(o); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	q.SetState(func(s State) State {
		s.Status = StatusSuccess
		s.Data = "x"
		return s
	})
	for i, r := range recs {
		got := r.snapshot()
		if len(got) != 1 {
			t.Fatalf("subscriber %d notified %d times", i, len(got))
		}
		if got[0].Status != StatusSuccess || got[0].Data != "x" {
			t.Fatalf("subscriber %d saw %+v", i, got[0])
		}
	}
}

func TestUnsubscribedObserverIsNotNotified(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)
	r := &recorder{}
	o := NewObserver(q, time.Hour)
	o.onChange = r.onChange
	unsub, _ := q.Subscribe(o)
	unsub()
	unsub()
	q.SetState(func(s State) State { return s })
	if len(r.snapshot()) != 0 {
		t.Fatalf("expected no notification after unsubscribe")
	}
	if q.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", q.SubscriberCount())
	}
}

func TestCallbackCanReadCurrentResultAndUnsubscribe(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)
	o := NewObserver(q, time.Hour)
	var unsub func()
	var seen State
	o.onChange = func(s State) {
		seen = q.CurrentResult()
		unsub()
	}
	unsub, _ = q.Subscribe(o)
	q.SetState(func(s State) State {
		s.Data = 42
		return s
	})
	if seen.Data != 42 {
		t.Fatalf("CurrentResult inside callback must reflect the update, got %+v", seen)
	}
	if q.SubscriberCount() != 0 {
		t.Fatalf("expected unsubscribe from callback to take effect")
	}
}

func TestAttachSuccessSequence(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader(map[string]any{"id": 1, "title": "A"})
	r := &recorder{}

	st, unsub, err := c.Attach(Key{"post", 1}, g.load, Options{}, r.onChange)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer unsub()
	if st.Status != StatusLoading || !st.IsFetching {
		t.Fatalf("expected loading/fetching after attach, got %+v", st)
	}

	q, _ := c.Lookup(Key{"post", 1})
	f := inflight(q)
	g.open()
	if _, err := f.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	got := r.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d: %+v", len(got), got)
	}
	if got[0].Status != StatusLoading || !got[0].IsFetching {
		t.Fatalf("first state=%+v", got[0])
	}
	if got[1].Status != StatusSuccess || got[1].IsFetching {
		t.Fatalf("second state=%+v", got[1])
	}
	data, _ := got[1].Data.(map[string]any)
	if data["id"] != 1 || data["title"] != "A" {
		t.Fatalf("unexpected data %+v", got[1].Data)
	}
	if got[1].LastUpdated.IsZero() {
		t.Fatalf("expected LastUpdated to be set")
	}
}

func TestTwoAttachmentsShareOneLoaderCall(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader("v")

	_, unsub1, err := c.Attach(Key{"posts"}, g.load, Options{}, nil)
	if err != nil {
		t.Fatalf("attach 1: %v", err)
	}
	defer unsub1()
	_, unsub2, err := c.Attach(Key{"posts"}, g.load, Options{}, nil)
	if err != nil {
		t.Fatalf("attach 2: %v", err)
	}
	defer unsub2()

	q, _ := c.Lookup(Key{"posts"})
	g.open()
	waitFetch(t, q)
	if n := g.calls.Load(); n != 1 {
		t.Fatalf("expected one loader call, got %d", n)
	}
	if q.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", q.SubscriberCount())
	}
}

func TestLoaderErrorKeepsPreviousData(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader("old")
	q, _ := c.GetQuery(Key{"k"}, g.load, 0)

	f := q.Fetch()
	g.open()
	_, _ = f.Wait(context.Background())

	g.set(nil, &networkError{msg: "unreachable"})
	r := &recorder{}
	o := NewObserver(q, 0)
	unsub, err := o.Attach(r.onChange)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer unsub()

	mid := q.CurrentResult()
	if !mid.IsFetching || mid.Err != nil || mid.Status != StatusSuccess {
		t.Fatalf("refetch must keep status and clear error, got %+v", mid)
	}
	g.open()
	st := waitFetch(t, q)

	var ne *networkError
	if st.Status != StatusError || st.IsFetching || !errors.As(st.Err, &ne) {
		t.Fatalf("expected error/idle with network error, got %+v", st)
	}
	if st.Data != "old" {
		t.Fatalf("expected data preserved, got %v", st.Data)
	}
}

func TestFetchClearsPreviousError(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader(nil)
	g.set(nil, errors.New("first"))
	q, _ := c.GetQuery(Key{"k"}, g.load, 0)

	f := q.Fetch()
	g.open()
	st, _ := f.Wait(context.Background())
	if st.Status != StatusError || st.Data != nil {
		t.Fatalf("expected error without data, got %+v", st)
	}

	g.set("ok", nil)
	f = q.Fetch()
	if cur := q.CurrentResult(); cur.Err != nil || !cur.IsFetching {
		t.Fatalf("expected error cleared while fetching, got %+v", cur)
	}
	g.open()
	st, _ = f.Wait(context.Background())
	if st.Status != StatusSuccess || st.Data != "ok" || st.Err != nil {
		t.Fatalf("expected recovery, got %+v", st)
	}
}

func TestLoaderPanicBecomesErrorState(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, func(ctx context.Context, key Key) (any, error) {
		panic("kaboom")
	}, 0)
	st, err := q.Fetch().Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	var pe *LoaderPanicError
	if st.Status != StatusError || !errors.As(st.Err, &pe) || pe.Value != "kaboom" {
		t.Fatalf("expected panic captured as error, got %+v", st)
	}
	if inflight(q) != nil {
		t.Fatalf("expected in-flight handle cleared")
	}
}

func TestFetchWaitHonoursContext(t *testing.T) {
	c := newTestClient(newFakeClock())
	g := newGatedLoader(1)
	q, _ := c.GetQuery(Key{"k"}, g.load, 0)
	f := q.Fetch()
	if _, ok := f.Result(); ok {
		t.Fatalf("expected fetch to be pending")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	g.open()
	<-f.Done()
	if st, ok := f.Result(); !ok || st.Data != 1 {
		t.Fatalf("expected completed result, got %+v ok=%v", st, ok)
	}
}

func TestListenerCanRefetchOnError(t *testing.T) {
	clock := newFakeClock()
	c := newTestClient(clock)
	key := Key{"post", 9}
	var calls atomic.Int32
	loader := func(ctx context.Context, k Key) (any, error) {
		if calls.Add(1) == 1 {
			return nil, &networkError{msg: "flaky"}
		}
		return "ok", nil
	}

	settled := make(chan State, 1)
	var retried atomic.Bool
	_, unsub, err := c.Attach(key, loader, Options{}, func(s State) {
		switch {
		case s.Status == StatusError && !s.IsFetching && retried.CompareAndSwap(false, true):
			if _, err := c.Fetch(key); err != nil {
				t.Errorf("refetch from listener: %v", err)
			}
		case s.Status == StatusSuccess && !s.IsFetching:
			select {
			case settled <- s:
			default:
			}
		}
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	q, _ := c.Lookup(key)

	select {
	case st := <-settled:
		if st.Data != "ok" || st.Err != nil {
			t.Fatalf("unexpected settled state %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("query stuck: calls=%d state=%+v", calls.Load(), q.CurrentResult())
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected two loader calls, got %d", n)
	}

	unsub()
	if inflight(q) != nil {
		t.Fatalf("expected no fetch in flight after settling")
	}
	clock.Advance(time.Minute)
	if _, ok := c.Lookup(key); ok {
		t.Fatalf("expected query to be collected after detaching")
	}
}

func TestSetStateFromListenerIsDeliveredInOrder(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)

	var got []any
	o := NewObserver(q, time.Hour)
	o.onChange = func(s State) {
		got = append(got, s.Data)
		if s.Data == 1 {
			q.SetState(func(s State) State {
				s.Data = 2
				return s
			})
			if len(got) != 1 {
				t.Errorf("nested state delivered before the outer callback returned")
			}
		}
	}
	if _, err := q.Subscribe(o); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	q.SetState(func(s State) State {
		s.Data = 1
		return s
	})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2] delivered before SetState returned, got %v", got)
	}
	if q.CurrentResult().Data != 2 {
		t.Fatalf("expected latest state 2, got %v", q.CurrentResult().Data)
	}
}

func TestQueuedStateSkipsDetachedObserver(t *testing.T) {
	c := newTestClient(newFakeClock())
	q, _ := c.GetQuery(Key{"k"}, immediate(1), 0)

	late := &recorder{}
	lo := NewObserver(q, time.Hour)
	lo.onChange = late.onChange

	var unsubLate func()
	first := NewObserver(q, time.Hour)
	first.onChange = func(s State) {
		if s.Data == 1 {
			q.SetState(func(s State) State {
				s.Data = 2
				return s
			})
			unsubLate()
		}
	}
	if _, err := q.Subscribe(first); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	unsubLate, _ = q.Subscribe(lo)

	q.SetState(func(s State) State {
		s.Data = 1
		return s
	})
	for _, s := range late.snapshot() {
		if s.Data == 2 {
			t.Fatalf("observer detached while state was queued must not see it")
		}
	}
}
