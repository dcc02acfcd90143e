package middleware

import (
	"fmt"
	"net/http"

	"inotebook/backend/internal/audit"
)

// Audit returns middleware that records an audit entry after each request to route (a ServeMux
// pattern such as "GET /admin/users"). Best-effort: logger failures do not fail the request.
// Only writes when a user is attached, so it belongs behind AuthenticateUser.
func Audit(logger audit.AuditLogger, route string) Middleware {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}
		ar := audit.ParseRoute(methodOf(route), route)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, fmt.Sprintf(`{"status":%d}`, rec.status))
		})
	}
}

// methodOf returns the method prefix of a ServeMux pattern, or GET when the pattern has none.
func methodOf(route string) string {
	for i := 0; i < len(route); i++ {
		if route[i] == ' ' {
			return route[:i]
		}
		if route[i] == '/' {
			break
		}
	}
	return http.MethodGet
}
