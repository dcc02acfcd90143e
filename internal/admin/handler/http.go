// Package handler serves the admin dashboard API. Every route is wrapped in AdminOnly.
package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	auditdomain "inotebook/backend/internal/audit/domain"
	"inotebook/backend/internal/server/httpx"
	userdomain "inotebook/backend/internal/user/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// UserStore is the part of the user repository the dashboard reads.
type UserStore interface {
	List(ctx context.Context, limit, offset int) ([]*userdomain.User, error)
	Stats(ctx context.Context, now time.Time) (*userdomain.Stats, error)
}

// AuditStore lists audit entries.
type AuditStore interface {
	List(ctx context.Context, userID, action string, limit, offset int) ([]*auditdomain.AuditLog, error)
}

// Counter counts rows (notes, messages) or active sessions.
type Counter func(ctx context.Context) (int, error)

// LiveCounter reports the number of users currently live.
type LiveCounter func() int

// Handler serves /admin. Counters may be nil and are then reported as zero.
type Handler struct {
	users          UserStore
	audit          AuditStore
	activeSessions Counter
	notes          Counter
	messages       Counter
	live           LiveCounter
}

// Options wires the optional dashboard counters.
type Options struct {
	ActiveSessions Counter
	Notes          Counter
	Messages       Counter
	Live           LiveCounter
}

// NewHandler returns an admin handler.
func NewHandler(users UserStore, audit AuditStore, opts Options) *Handler {
	return &Handler{
		users:          users,
		audit:          audit,
		activeSessions: opts.ActiveSessions,
		notes:          opts.Notes,
		messages:       opts.Messages,
		live:           opts.Live,
	}
}

// userView omits every credential field.
type userView struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	IsAdmin       bool      `json:"isAdmin"`
	EmailVerified bool      `json:"emailVerified"`
	PINSet        bool      `json:"pinSet"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type usersResponse struct {
	Status int        `json:"status"`
	Users  []userView `json:"users"`
}

type statsView struct {
	Users          int `json:"users"`
	Admins         int `json:"admins"`
	Verified       int `json:"verified"`
	Disabled       int `json:"disabled"`
	WithPIN        int `json:"withPin"`
	Registered24h  int `json:"registered24h"`
	ActiveSessions int `json:"activeSessions"`
	LiveUsers      int `json:"liveUsers"`
	Notes          int `json:"notes"`
	Messages       int `json:"messages"`
}

type statsResponse struct {
	Status int       `json:"status"`
	Stats  statsView `json:"stats"`
}

type auditView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type auditResponse struct {
	Status int         `json:"status"`
	Logs   []auditView `json:"logs"`
}

// Users handles GET /admin/users?limit=&offset=.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		log.Printf("admin: list users: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{
			ID:            u.ID,
			Email:         u.Email,
			Name:          u.Name,
			IsAdmin:       u.IsAdmin,
			EmailVerified: u.EmailVerified,
			PINSet:        u.HasPIN(),
			Status:        string(u.Status),
			CreatedAt:     u.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, usersResponse{Status: 1, Users: out})
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	us, err := h.users.Stats(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("admin: user stats: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	view := statsView{
		Users:         us.Total,
		Admins:        us.Admins,
		Verified:      us.Verified,
		Disabled:      us.Disabled,
		WithPIN:       us.WithPIN,
		Registered24h: us.Registered24h,
	}
	for _, c := range []struct {
		name  string
		count Counter
		dst   *int
	}{
		{"sessions", h.activeSessions, &view.ActiveSessions},
		{"notes", h.notes, &view.Notes},
		{"messages", h.messages, &view.Messages},
	} {
		if c.count == nil {
			continue
		}
		n, err := c.count(ctx)
		if err != nil {
			log.Printf("admin: count %s: %v", c.name, err)
			httpx.WriteError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		*c.dst = n
	}
	if h.live != nil {
		view.LiveUsers = h.live()
	}
	httpx.WriteJSON(w, http.StatusOK, statsResponse{Status: 1, Stats: view})
}

// Audit handles GET /admin/audit?userId=&action=&limit=&offset=.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()
	logs, err := h.audit.List(r.Context(), q.Get("userId"), q.Get("action"), limit, offset)
	if err != nil {
		log.Printf("admin: list audit: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load audit logs")
		return
	}
	out := make([]auditView, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditView{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, auditResponse{Status: 1, Logs: out})
}

// pagination reads limit and offset, clamping limit to [1, maxPageSize] and offset to >= 0.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
