package posts

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"querylite/internal/query"
	"querylite/pkg/types"
)

// Service is the read-through facade over the query cache used by the HTTP
// API and the CLI.
type Service struct {
	client  *query.Client
	opts    query.Options
	started time.Time
	log     zerolog.Logger
}

// NewService wraps c. opts apply to every attachment the service makes.
func NewService(c *query.Client, opts query.Options, log zerolog.Logger) *Service {
	return &Service{
		client:  c,
		opts:    opts,
		started: time.Now(),
		log:     log.With().Str("component", "posts").Logger(),
	}
}

// Client returns the underlying query client.
func (s *Service) Client() *query.Client { return s.client }

// Posts returns the settled state of the post list.
func (s *Service) Posts(ctx context.Context) (query.State, error) {
	return s.Read(ctx, PostsKey())
}

// Post returns the settled state of one post.
func (s *Service) Post(ctx context.Context, id int) (query.State, error) {
	if id <= 0 {
		return query.State{}, ErrInvalidID
	}
	return s.Read(ctx, PostKey(id))
}

// Read attaches to key, waits until the state is settled and detaches.
// Cached data is returned immediately even while a background refetch runs.
func (s *Service) Read(ctx context.Context, key query.Key) (query.State, error) {
	settledCh := make(chan query.State, 1)
	st, detach, err := s.client.Attach(key, nil, s.opts, func(st query.State) {
		if settled(st) {
			select {
			case settledCh <- st:
			default:
			}
		}
	})
	if err != nil {
		return query.State{}, err
	}
	defer detach()
	if settled(st) {
		return st, nil
	}
	select {
	case st := <-settledCh:
		return st, nil
	case <-ctx.Done():
		return query.State{}, ctx.Err()
	}
}

// settled is true once a state has data or no fetch is outstanding.
func settled(st query.State) bool {
	return st.HasData() || !st.IsFetching
}

// Refetch forces a reload of a cached post.
func (s *Service) Refetch(id int) (types.RefetchResponse, error) {
	if id <= 0 {
		return types.RefetchResponse{}, ErrInvalidID
	}
	key := PostKey(id)
	q, ok := s.client.Lookup(key)
	if !ok {
		if s.client.Closed() {
			return types.RefetchResponse{}, query.ErrClosed
		}
		return types.RefetchResponse{}, query.ErrQueryNotFound
	}
	_, joined := q.TryFetch()
	s.log.Debug().Str("key", q.Hash()).Bool("joined", joined).Msg("refetch")
	return types.RefetchResponse{Key: q.Hash(), Joined: joined}, nil
}

// Status reports every cached query plus process uptime.
func (s *Service) Status() types.StatusResponse {
	st := s.client.Status()
	st.UptimeSeconds = int64(time.Since(s.started).Seconds())
	return st
}

// Ready reports whether the service still accepts reads.
func (s *Service) Ready() bool { return !s.client.Closed() }

// IsInvalidID reports whether err is a malformed post id.
func IsInvalidID(err error) bool { return errors.Is(err, ErrInvalidID) }
