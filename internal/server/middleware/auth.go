package middleware

import (
	"errors"
	"net/http"

	"inotebook/backend/internal/server/httpx"
)

var (
	// ErrUnauthenticated answers 401: no valid session is attached to the request.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden answers 403: the session is valid but lacks admin rights.
	ErrForbidden = errors.New("forbidden")
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so the first one listed runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// AuthenticateUser rejects requests without a userId in context with 401. It must run after LoadSession.
func AuthenticateUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects non-admin sessions with 403. Composed before AuthenticateUser it would see no
// identity; that case answers 401 instead of leaking that the route exists for admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
			return
		}
		if !IsAdmin(r.Context()) {
			httpx.WriteError(w, http.StatusForbidden, ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly is the supported ordering: AuthenticateUser, then RequireAdmin.
func AdminOnly(h http.Handler) http.Handler {
	return Chain(h, AuthenticateUser, RequireAdmin)
}
