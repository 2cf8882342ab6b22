package httpapi

import "time"

// readTimeout bounds how long a read waits for a settled state.
// Zero means no additional timeout beyond server/connection timeouts.
var readTimeout time.Duration

// SetReadTimeout sets the read timeout (values <= 0 disable it).
func SetReadTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	readTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for routers built afterwards.
// Empty methods/headers fall back to what the API uses.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
	if len(corsAllowedMethods) == 0 {
		corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(corsAllowedHeaders) == 0 {
		corsAllowedHeaders = []string{"Accept", "Content-Type", "X-Log-Level"}
	}
}
