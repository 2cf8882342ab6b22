package query

// Event represents a query lifecycle event.
// Minimal and stable: name + key hash and optional fields via key/values.
type Event struct {
	Name   string
	Key    string
	Fields map[string]any
}

// Event names published by the Client.
const (
	EventQueryCreated = "query_created"
	EventFetchStart   = "fetch_start"
	EventFetchDeduped = "fetch_deduped"
	EventFetchSuccess = "fetch_success"
	EventFetchError   = "fetch_error"
	EventGCScheduled  = "gc_scheduled"
	EventGCRemoved    = "gc_removed"
)

// EventPublisher receives events from the client. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
