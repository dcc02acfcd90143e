package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL + "/")
	raw := []byte(`{"userId":"u1","eventType":"login_failure","source":"auth","createdAt":"2026-01-02T03:04:05.000000006Z"}`)
	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d", len(got.Streams))
	}
	s := got.Streams[0]
	want := map[string]string{"job": "inotebook", "event_type": "login_failure", "source": "auth"}
	for k, v := range want {
		if s.Stream[k] != v {
			t.Errorf("label %q = %q, want %q", k, s.Stream[k], v)
		}
	}
	if _, ok := s.Stream["user_id"]; ok {
		t.Error("user id must not be a stream label")
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC).UnixNano()
	if s.Values[0][0] != strconv.FormatInt(ts, 10) || s.Values[0][1] != string(raw) {
		t.Errorf("values = %v", s.Values)
	}
}

func TestPushEventJSON_InvalidJSONPushedRaw(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL)
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	s := got.Streams[0]
	if len(s.Stream) != 1 || s.Stream["job"] != "inotebook" {
		t.Errorf("labels = %v, want only job", s.Stream)
	}
	if s.Values[0][1] != "not json" {
		t.Errorf("line = %q", s.Values[0][1])
	}
}

func TestPushEvent_SanitizesLabels(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	c := NewClient(srv.URL)
	err := c.PushEvent(context.Background(), time.Now(), "line", map[string]string{"event_type": " a b{c} ", "empty": "  "})
	if err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	s := got.Streams[0]
	if s.Stream["event_type"] != "a_b_c_" {
		t.Errorf("event_type = %q", s.Stream["event_type"])
	}
	if _, ok := s.Stream["empty"]; ok {
		t.Error("empty label should be dropped")
	}
}

func TestPushEvent_Errors(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	if err := NewClient(srv.URL).PushEvent(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("non-2xx should return error")
	}
	if err := NewClient("").PushEvent(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("empty base URL should return error")
	}
	var nilClient *Client
	if err := nilClient.PushEvent(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("nil client should return error")
	}
}
