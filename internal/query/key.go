package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies a query. Keys are compared by their JSON encoding, so
// Key{"post", 1} and Key{"post", 1.0} are the same key while map elements
// compare independently of insertion order.
type Key []any

// Hash returns the canonical encoding of the key.
func (k Key) Hash() (string, error) {
	if len(k) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	b, err := json.Marshal([]any(k))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return string(b), nil
}

// Scope returns the first element when it is a string, else "".
func (k Key) Scope() string {
	if len(k) == 0 {
		return ""
	}
	s, _ := k[0].(string)
	return s
}

func (k Key) String() string {
	h, err := k.Hash()
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return h
}
