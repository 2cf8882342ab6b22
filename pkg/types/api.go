package types

// QueryResult is the JSON view of a cached query returned by read endpoints.
type QueryResult struct {
	// Display status: loading, success or error.
	// example: success
	Status string `json:"status" example:"success"`
	// True while a loader call for the key is outstanding.
	// example: false
	IsFetching bool `json:"is_fetching" example:"false"`
	// Last successfully loaded value, if any.
	Data any `json:"data,omitempty"`
	// Message of the most recent failure, if any.
	// example: upstream /posts/7 returned status 503
	Error string `json:"error,omitempty" example:"upstream /posts/7 returned status 503"`
	// Time of the last successful load (unix seconds); omitted when never loaded.
	// example: 1700000000
	LastUpdated int64 `json:"last_updated_unix,omitempty" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid post id
	Error string `json:"error" example:"invalid post id"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// RefetchResponse is returned by POST /posts/{id}/refetch.
type RefetchResponse struct {
	// Key hash of the refetched query.
	// example: ["post",1]
	Key string `json:"key" example:"[\"post\",1]"`
	// True when the call joined a fetch that was already running.
	Joined bool `json:"joined"`
}

// QueryStatus summarizes a registered query for /status.
type QueryStatus struct {
	// Canonical key encoding.
	// example: ["post",1]
	Key string `json:"key" example:"[\"post\",1]"`
	// example: success
	Status string `json:"status" example:"success"`
	// example: false
	IsFetching bool `json:"is_fetching" example:"false"`
	// Number of attached observers.
	// example: 1
	Subscribers int `json:"subscribers" example:"1"`
	// True when the query is waiting to be garbage-collected.
	GCPending bool `json:"gc_pending"`
	// Cache time in milliseconds.
	// example: 300000
	CacheTimeMS int64 `json:"cache_time_ms" example:"300000"`
	// example: 1700000000
	LastUpdated int64 `json:"last_updated_unix,omitempty" example:"1700000000"`
	Error       string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Registered queries.
	Queries []QueryStatus `json:"queries"`
	// Number of registered queries.
	// example: 3
	Count int `json:"count" example:"3"`
	// Queries with a loader call in flight.
	// example: 1
	FetchingCount int `json:"fetching_count" example:"1"`
	// Queries without observers awaiting collection.
	// example: 1
	GCPendingCount int `json:"gc_pending_count" example:"1"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
