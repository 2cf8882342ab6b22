// Package query provides a client-side data-fetching cache. It is structured
// into small files by concern:
//
//   - client.go: Client registry, constructor, GetQuery/Attach/Fetch/RemoveQuery.
//   - config.go: ClientConfig and package defaults; NewClient applies defaults.
//   - types.go: State, Status, Options and the Loader contract.
//   - key.go: Key hashing and scope extraction.
//   - errors.go: sentinel errors and helpers (IsNoLoader, IsClosed, ...).
//   - query.go: per-key state machine, ordered subscriber delivery queue.
//   - fetch.go: in-flight handle and loader execution through singleflight.
//   - gc.go: garbage-collection timer for unobserved queries.
//   - observer.go: per-consumer attachment applying the staleness policy.
//   - clock.go: Clock/Timer abstraction over package time.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//   - status_report.go: registry snapshot for /status.
//
// A Query runs at most one loader call at a time. Concurrent Fetch calls join
// the in-flight handle. Loader failures are stored as state (Status=error)
// and never returned from Fetch. A Query whose last subscriber leaves is
// removed from its Client once CacheTime elapses without a new subscriber.
//
// External packages should attach through Client.Attach and treat State as a
// read-only snapshot.
package query
