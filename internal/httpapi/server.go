package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"querylite/internal/query"
	"querylite/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Posts(ctx context.Context) (query.State, error)
	Post(ctx context.Context, id int) (query.State, error)
	Refetch(id int) (types.RefetchResponse, error)
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	// listPosts godoc
	// @Summary      List posts
	// @Description  Cached post list; refetched in the background when stale.
	// @Tags         posts
	// @Produce      json
	// @Success      200  {object}  types.QueryResult
	// @Failure      502  {object}  types.QueryResult
	// @Router       /posts [get]
	r.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := readContext(r)
		defer cancel()
		start := time.Now()
		st, err := svc.Posts(ctx)
		writeRead(w, r, st, err, start)
	})

	// getPost godoc
	// @Summary      Get post
	// @Tags         posts
	// @Produce      json
	// @Param        id   path      int  true  "Post ID"
	// @Success      200  {object}  types.QueryResult
	// @Failure      400  {object}  types.ErrorResponse
	// @Failure      404  {object}  types.QueryResult
	// @Failure      502  {object}  types.QueryResult
	// @Router       /posts/{id} [get]
	r.Get("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := postIDParam(w, r)
		if !ok {
			return
		}
		ctx, cancel := readContext(r)
		defer cancel()
		start := time.Now()
		st, err := svc.Post(ctx, id)
		writeRead(w, r, st, err, start)
	})

	// refetchPost godoc
	// @Summary      Refetch post
	// @Description  Starts a reload of a cached post, or joins the one running.
	// @Tags         posts
	// @Produce      json
	// @Param        id   path      int  true  "Post ID"
	// @Success      202  {object}  types.RefetchResponse
	// @Failure      404  {object}  types.ErrorResponse
	// @Router       /posts/{id}/refetch [post]
	r.Post("/posts/{id}/refetch", func(w http.ResponseWriter, r *http.Request) {
		id, ok := postIDParam(w, r)
		if !ok {
			return
		}
		res, err := svc.Refetch(id)
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		logRequest(r, http.StatusAccepted, 0, nil, "refetch")
		writeJSON(w, http.StatusAccepted, res)
	})

	// status godoc
	// @Summary      Cache status
	// @Tags         status
	// @Produce      json
	// @Success      200  {object}  types.StatusResponse
	// @Router       /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("closed"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// readContext joins the server base context with the request and applies the
// configured read timeout.
func readContext(r *http.Request) (context.Context, context.CancelFunc) {
	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	if readTimeout <= 0 {
		return joined, cancel
	}
	ctx, cancelTimeout := context.WithTimeout(joined, readTimeout)
	return ctx, func() {
		cancelTimeout()
		cancel()
	}
}

func postIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return id, true
}

// writeRead renders a settled query state, or maps err when the read could
// not produce one.
func writeRead(w http.ResponseWriter, r *http.Request, st query.State, err error, start time.Time) {
	if err != nil {
		// Client went away: no body, but keep it out of the success counts.
		if r.Context().Err() != nil {
			logRequest(r, StatusClientClosedRequest, time.Since(start), err, "read")
			w.WriteHeader(StatusClientClosedRequest)
			return
		}
		code := statusForError(err)
		logRequest(r, code, time.Since(start), err, "read")
		writeJSONError(w, code, err.Error())
		return
	}
	code := statusForState(st)
	logRequest(r, code, time.Since(start), st.Err, "read")
	writeJSON(w, code, query.Result(st))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
