// Package handler serves the presence endpoints: POST /heartbeat and GET /heartbeat/live/users.
package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"inotebook/backend/internal/heartbeat"
	"inotebook/backend/internal/server/httpx"
	"inotebook/backend/internal/server/middleware"
	userdomain "inotebook/backend/internal/user/domain"
)

// UserGetter loads the profile shown in the live users list.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionToucher records session activity. Optional.
type SessionToucher interface {
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// Handler serves presence requests. Both routes run behind AuthenticateUser.
type Handler struct {
	tracker  *heartbeat.Tracker
	users    UserGetter
	sessions SessionToucher
}

// NewHandler returns a presence handler. sessions may be nil.
func NewHandler(tracker *heartbeat.Tracker, users UserGetter, sessions SessionToucher) *Handler {
	return &Handler{tracker: tracker, users: users, sessions: sessions}
}

type liveUsersResponse struct {
	Status    int                  `json:"status"`
	LiveUsers []heartbeat.Presence `json:"liveUsers"`
}

type beatResponse struct {
	Status int `json:"status"`
}

// Beat handles POST /heartbeat.
func (h *Handler) Beat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		log.Printf("heartbeat: load user %s: %v", userID, err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to record heartbeat")
		return
	}
	if u == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.tracker.Beat(heartbeat.Presence{UserID: u.ID, Email: u.Email, Name: u.Name})
	if sessionID, ok := middleware.GetSessionID(r.Context()); ok && h.sessions != nil {
		if err := h.sessions.UpdateLastSeen(r.Context(), sessionID, time.Now().UTC()); err != nil {
			log.Printf("heartbeat: update session %s: %v", sessionID, err)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, beatResponse{Status: 1})
}

// LiveUsers handles GET /heartbeat/live/users.
func (h *Handler) LiveUsers(w http.ResponseWriter, r *http.Request) {
	if h.tracker == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "presence tracking unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, liveUsersResponse{Status: 1, LiveUsers: h.tracker.Live()})
}
