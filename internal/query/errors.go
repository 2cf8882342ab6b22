package query

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned to the caller immediately and
// never stored in query state.
var (
	ErrNoLoader      = errors.New("no loader registered")
	ErrInvalidKey    = errors.New("invalid query key")
	ErrClosed        = errors.New("query client is closed")
	ErrQueryNotFound = errors.New("query not found")
	// ErrQueryRemoved is returned when subscribing to a query the client has
	// already garbage-collected.
	ErrQueryRemoved = errors.New("query removed from client")
)

// IsNoLoader reports whether err indicates a key without a loader.
func IsNoLoader(err error) bool { return errors.Is(err, ErrNoLoader) }

// IsInvalidKey reports whether err indicates an unhashable or empty key.
func IsInvalidKey(err error) bool { return errors.Is(err, ErrInvalidKey) }

// IsClosed reports whether err comes from a closed client.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }

// IsQueryNotFound reports whether err indicates a missing registry entry.
func IsQueryNotFound(err error) bool { return errors.Is(err, ErrQueryNotFound) }

// LoaderPanicError wraps a value recovered from a panicking loader so it can
// be stored as a regular failure.
type LoaderPanicError struct {
	Key   string
	Value any
}

func (e *LoaderPanicError) Error() string {
	return fmt.Sprintf("loader panic for %s: %v", e.Key, e.Value)
}
