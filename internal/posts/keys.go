package posts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"querylite/internal/query"
)

// Key scopes served by this package.
const (
	ScopePosts = "posts"
	ScopePost  = "post"
)

// ErrInvalidID is returned for post ids that are not positive integers.
var ErrInvalidID = errors.New("invalid post id")

// PostsKey is the key of the post list.
func PostsKey() query.Key { return query.Key{ScopePosts} }

// PostKey is the key of a single post.
func PostKey(id int) query.Key { return query.Key{ScopePost, id} }

// postID extracts the id element of a PostKey. Keys that went through JSON
// (for example from a config file) carry float64 or json.Number.
func postID(key query.Key) (int, error) {
	if len(key) != 2 {
		return 0, fmt.Errorf("%w: key %s", ErrInvalidID, key)
	}
	var id int
	switch v := key[1].(type) {
	case int:
		id = v
	case int64:
		id = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidID, v)
		}
		id = int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidID, v)
		}
		id = int(n)
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidID, v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return id, nil
}
