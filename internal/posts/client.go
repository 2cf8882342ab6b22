package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"querylite/pkg/types"
)

// Fetcher loads posts from the upstream API.
// *Client implements it; tests substitute their own.
type Fetcher interface {
	FetchPosts(ctx context.Context) ([]types.Post, error)
	FetchPost(ctx context.Context, id int) (types.Post, error)
}

var _ Fetcher = (*Client)(nil)

// Client talks to the upstream posts API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limit     int
	delay     time.Duration
}

// ClientOptions tunes a Client. Zero values keep every post and add no delay.
type ClientOptions struct {
	// Limit truncates FetchPosts results.
	Limit int
	// Delay is waited before each request.
	Delay      time.Duration
	HTTPClient *http.Client
}

const (
	defaultUserAgent = "querylite/0.1"
	requestTimeout   = 10 * time.Second
)

// StatusError is returned when the upstream answers with status >= 400.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Path, e.Code)
}

// StatusCode exposes the upstream status for HTTP error mapping.
func (e *StatusError) StatusCode() int { return e.Code }

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:   base,
		http:      hc,
		userAgent: defaultUserAgent,
		limit:     opts.Limit,
		delay:     opts.Delay,
	}, nil
}

// FetchPosts retrieves the post list, truncated to the configured limit.
func (c *Client) FetchPosts(ctx context.Context) ([]types.Post, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []types.Post
	if err := c.do(ctx, "/posts", &payload); err != nil {
		return nil, err
	}
	if c.limit > 0 && len(payload) > c.limit {
		payload = payload[:c.limit]
	}
	return payload, nil
}

// FetchPost retrieves a single post.
func (c *Client) FetchPost(ctx context.Context, id int) (types.Post, error) {
	if c == nil {
		return types.Post{}, fmt.Errorf("client is nil")
	}
	var payload types.Post
	if err := c.do(ctx, "/posts/"+strconv.Itoa(id), &payload); err != nil {
		return types.Post{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, path string, dest any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	rel := &url.URL{Path: strings.TrimPrefix(path, "/")}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseBaseURL accepts a full URL or a bare host:port and always returns a
// URL whose path ends in "/" so relative resolution keeps any prefix.
func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("upstream url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream url %q has no host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}
