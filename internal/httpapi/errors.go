package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"querylite/internal/query"
	"querylite/pkg/types"
)

// StatusClientClosedRequest is recorded when the caller disconnected before a
// read settled (nginx convention).
const StatusClientClosedRequest = 499

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps errors returned before a state is available.
func statusForError(err error) int {
	var he HTTPError
	switch {
	case query.IsQueryNotFound(err):
		return http.StatusNotFound
	case query.IsInvalidKey(err):
		return http.StatusBadRequest
	case query.IsClosed(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		// includes ErrNoLoader: a wiring mistake, not a client error
		return http.StatusInternalServerError
	}
}

// statusForState picks the response code for a settled state. Cached data is
// always served with 200, even when the latest refetch failed.
func statusForState(st query.State) int {
	if st.HasData() || st.Status != query.StatusError {
		return http.StatusOK
	}
	var he HTTPError
	if errors.As(st.Err, &he) && he.StatusCode() == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
