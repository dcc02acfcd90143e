// Package server assembles the HTTP API: the route table, per-route gates, and the outer session
// and tracing middleware.
package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	adminhandler "inotebook/backend/internal/admin/handler"
	"inotebook/backend/internal/audit"
	devotphandler "inotebook/backend/internal/devotp/handler"
	healthhandler "inotebook/backend/internal/health/handler"
	heartbeathandler "inotebook/backend/internal/heartbeat/handler"
	identityhandler "inotebook/backend/internal/identity/handler"
	messagehandler "inotebook/backend/internal/message/handler"
	notehandler "inotebook/backend/internal/note/handler"
	"inotebook/backend/internal/server/middleware"
	sessionrepo "inotebook/backend/internal/session/repository"
	"inotebook/backend/internal/telemetry"
)

// Deps holds the handlers and cross-cutting collaborators. A nil handler leaves its routes
// unregistered (404); DevOTP must stay nil outside dev OTP mode.
type Deps struct {
	Auth      *identityhandler.Handler
	Notes     *notehandler.Handler
	Messages  *messagehandler.Handler
	Heartbeat *heartbeathandler.Handler
	Admin     *adminhandler.Handler
	Health    *healthhandler.Handler
	DevOTP    *devotphandler.Handler

	// Tokens validates the session cookie. Required.
	Tokens middleware.SessionValidator
	// Sessions is checked for revocation. If nil, only the token is validated.
	Sessions   sessionrepo.Repository
	CookieName string

	// AuditLogger records admin route access. If nil, nothing is audited.
	AuditLogger audit.AuditLogger
	// Events receives http_request events. If nil, the telemetry middleware no-ops.
	Events telemetry.EventEmitter
}

type access int

const (
	public access = iota
	user
	admin
)

type route struct {
	pattern string
	handler http.HandlerFunc
	access  access
}

func routes(d Deps) []route {
	var rs []route
	if d.Health != nil {
		rs = append(rs, route{"GET /healthz", d.Health.Healthz, public})
	}
	if d.Auth != nil {
		rs = append(rs,
			route{"GET /auth/getpubKey", d.Auth.PublicKey, public},
			route{"POST /auth/signup", d.Auth.Signup, public},
			route{"POST /auth/verify-email", d.Auth.VerifyEmail, public},
			route{"POST /auth/login", d.Auth.Login, public},
			route{"POST /auth/logout", d.Auth.Logout, public},
			route{"POST /auth/password/forgot", d.Auth.ForgotPassword, public},
			route{"POST /auth/password/reset", d.Auth.ResetPassword, public},
			route{"POST /auth/otp/resend", d.Auth.ResendOTP, public},
			route{"GET /auth/me", d.Auth.Me, user},
			route{"GET /auth/secret-key", d.Auth.SecretKey, user},
			route{"POST /auth/pin", d.Auth.SetPIN, user},
			route{"POST /auth/pin/verify", d.Auth.VerifyPIN, user},
		)
	}
	if d.Notes != nil {
		rs = append(rs,
			route{"GET /notes", d.Notes.List, user},
			route{"POST /notes", d.Notes.Create, user},
			route{"GET /notes/{id}", d.Notes.Get, user},
			route{"DELETE /notes/{id}", d.Notes.Delete, user},
		)
	}
	if d.Messages != nil {
		rs = append(rs,
			route{"POST /messages", d.Messages.Send, user},
			route{"GET /messages", d.Messages.Inbox, user},
		)
	}
	if d.Heartbeat != nil {
		rs = append(rs,
			route{"POST /heartbeat", d.Heartbeat.Beat, user},
			route{"GET /heartbeat/live/users", d.Heartbeat.LiveUsers, user},
		)
	}
	if d.Admin != nil {
		rs = append(rs,
			route{"GET /admin/users", d.Admin.Users, admin},
			route{"GET /admin/stats", d.Admin.Stats, admin},
			route{"GET /admin/audit", d.Admin.Audit, admin},
		)
	}
	if d.DevOTP != nil {
		rs = append(rs, route{"GET /dev/otp", d.DevOTP.GetOTP, public})
	}
	return rs
}

// NewHTTPHandler returns the API handler. Every request passes RealIP and LoadSession, then the
// route's own chain: telemetry, the access gates, and (admin routes) the audit recorder.
func NewHTTPHandler(d Deps) http.Handler {
	mux := http.NewServeMux()
	for _, rt := range routes(d) {
		mws := []middleware.Middleware{middleware.Telemetry(d.Events, rt.pattern)}
		switch rt.access {
		case user:
			mws = append(mws, middleware.AuthenticateUser)
		case admin:
			mws = append(mws, middleware.AuthenticateUser, middleware.RequireAdmin, middleware.Audit(d.AuditLogger, rt.pattern))
		}
		mux.Handle(rt.pattern, middleware.Chain(rt.handler, mws...))
	}
	h := middleware.Chain(mux, middleware.RealIP, middleware.LoadSession(d.Tokens, d.Sessions, d.CookieName))
	return otelhttp.NewHandler(h, "inotebook")
}
