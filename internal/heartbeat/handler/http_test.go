package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inotebook/backend/internal/heartbeat"
	"inotebook/backend/internal/server/middleware"
	userdomain "inotebook/backend/internal/user/domain"
)

type fakeUsers struct {
	users map[string]*userdomain.User
	err   error
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

type fakeSessions struct {
	touched []string
}

func (f *fakeSessions) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

func authed(method, path, userID string) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	return r.WithContext(middleware.WithIdentity(r.Context(), userID, "sess-"+userID, false))
}

func TestBeatThenLiveUsers(t *testing.T) {
	users := &fakeUsers{users: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "alice@example.com", Name: "Alice"},
	}}
	sessions := &fakeSessions{}
	h := NewHandler(heartbeat.NewTracker(time.Minute), users, sessions)

	rec := httptest.NewRecorder()
	h.Beat(rec, authed(http.MethodPost, "/heartbeat", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("beat code = %d, body %s", rec.Code, rec.Body)
	}
	if len(sessions.touched) != 1 || sessions.touched[0] != "sess-u1" {
		t.Errorf("touched = %v", sessions.touched)
	}

	rec = httptest.NewRecorder()
	h.LiveUsers(rec, authed(http.MethodGet, "/heartbeat/live/users", "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("live code = %d", rec.Code)
	}
	var body struct {
		Status    int                  `json:"status"`
		LiveUsers []heartbeat.Presence `json:"liveUsers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != 1 || len(body.LiveUsers) != 1 || body.LiveUsers[0].Email != "alice@example.com" {
		t.Errorf("body = %+v", body)
	}
}

func TestLiveUsers_EmptyIsArray(t *testing.T) {
	h := NewHandler(heartbeat.NewTracker(time.Minute), &fakeUsers{}, nil)
	rec := httptest.NewRecorder()
	h.LiveUsers(rec, authed(http.MethodGet, "/heartbeat/live/users", "u1"))
	if got := rec.Body.String(); got != "{\"status\":1,\"liveUsers\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestBeat_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		users    *fakeUsers
		wantCode int
	}{
		{"repo error", &fakeUsers{err: errors.New("db down")}, http.StatusInternalServerError},
		{"deleted user", &fakeUsers{users: map[string]*userdomain.User{}}, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(heartbeat.NewTracker(time.Minute), tc.users, nil)
			rec := httptest.NewRecorder()
			h.Beat(rec, authed(http.MethodPost, "/heartbeat", "u1"))
			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			var body struct {
				Status int    `json:"status"`
				Error  string `json:"error"`
			}
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Status != 0 || body.Error == "" {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}
