package middleware

import (
	"net/http"
	"time"

	"inotebook/backend/internal/telemetry"
	"inotebook/backend/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in SecurityEvent.Metadata for http_request events.
type httpRequestMetadata struct {
	Route      string `json:"route"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
}

// Telemetry returns middleware that emits an http_request event after each request to route.
// Best-effort and asynchronous. If emitter is nil, the middleware no-ops.
func Telemetry(emitter telemetry.EventEmitter, route string) Middleware {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			userID, _ := GetUserID(r.Context())
			sessionID, _ := GetSessionID(r.Context())
			event := domain.NewSecurityEvent(domain.EventHTTPRequest, "http_middleware", userID, httpRequestMetadata{
				Route:      route,
				StatusCode: rec.status,
				DurationMs: time.Since(start).Milliseconds(),
			})
			event.SessionID = sessionID
			event.IP = ClientIPFromContext(r.Context())
			telemetry.EmitAsync(emitter, event)
		})
	}
}
