package middleware

import (
	"log"
	"net/http"
	"time"

	"inotebook/backend/internal/security"
	sessionrepo "inotebook/backend/internal/session/repository"
)

// SessionValidator validates a session token. Implemented by *security.TokenProvider.
type SessionValidator interface {
	ValidateSession(token string) (*security.SessionClaims, error)
}

// LoadSession returns middleware that reads the session cookie, validates the token, checks the
// server-side session row (not revoked, not expired, same user), and attaches the identity to the
// request context. It never rejects: requests without a usable session continue anonymously and the
// gates decide. sessions may be nil, in which case only the token is checked.
func LoadSession(tokens SessionValidator, sessions sessionrepo.Repository, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ValidateSession(c.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			isAdmin := claims.IsAdmin
			if sessions != nil {
				sess, err := sessions.GetByID(r.Context(), claims.SessionID)
				if err != nil {
					log.Printf("middleware: load session %s: %v", claims.SessionID, err)
					next.ServeHTTP(w, r)
					return
				}
				if sess == nil || sess.UserID != claims.Subject || !sess.Active(time.Now().UTC()) {
					next.ServeHTTP(w, r)
					return
				}
				// The row is authoritative for the role.
				isAdmin = sess.IsAdmin
			}
			ctx := WithIdentity(r.Context(), claims.Subject, claims.SessionID, isAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RealIP returns middleware storing the client IP (see ClientIP) in the request context.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ClientIP(r))))
	})
}
