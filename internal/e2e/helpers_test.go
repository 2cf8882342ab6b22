package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"querylite/internal/httpapi"
	"querylite/internal/posts"
	"querylite/internal/query"
	"querylite/pkg/types"
)

// upstream is a fake posts API. Requests block on gate when it is set.
type upstream struct {
	srv  *httptest.Server
	hits atomic.Int32
	gate chan struct{}
}

func newUpstream(t *testing.T, gated bool) *upstream {
	t.Helper()
	u := &upstream{}
	if gated {
		u.gate = make(chan struct{})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
		u.enter()
		_ = json.NewEncoder(w).Encode([]types.Post{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}})
	})
	mux.HandleFunc("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		u.enter()
		id, _ := strconv.Atoi(r.PathValue("id"))
		switch {
		case id == 500:
			w.WriteHeader(http.StatusInternalServerError)
		case id > 0 && id < 100:
			_ = json.NewEncoder(w).Encode(types.Post{ID: id, Title: "post " + strconv.Itoa(id), Body: "body"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		u.release()
		u.srv.Close()
	})
	return u
}

func (u *upstream) enter() {
	u.hits.Add(1)
	if u.gate != nil {
		<-u.gate
	}
}

// release unblocks every pending and future request.
func (u *upstream) release() {
	if u.gate != nil {
		select {
		case <-u.gate:
		default:
			close(u.gate)
		}
	}
}

func newServer(t *testing.T, up *upstream, cfg query.ClientConfig, opts query.Options) (*httptest.Server, *query.Client) {
	t.Helper()
	pc, err := posts.NewClient(up.srv.URL, posts.ClientOptions{Limit: 5})
	if err != nil {
		t.Fatalf("posts client: %v", err)
	}
	c := query.NewClient(cfg)
	posts.Register(c, pc)
	svc := posts.NewService(c, opts, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(func() {
		srv.Close()
		_ = c.Close()
	})
	return srv, c
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return do(t, http.MethodGet, url)
}

func httpPost(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return do(t, http.MethodPost, url)
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(nil))
	if err != nil {
		t.Errorf("new req: %v", err)
		return nil, nil
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("do req: %v", err)
		return nil, nil
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	return v
}
