package audit

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, pattern string
		want            ActionResource
	}{
		{"GET", "GET /admin/users", ActionResource{"list", "user"}},
		{"GET", "GET /admin/stats", ActionResource{"list", "stat"}},
		{"GET", "GET /admin/audit", ActionResource{"list", "audit"}},
		{"GET", "/notes/{id}", ActionResource{"get", "note"}},
		{"DELETE", "DELETE /notes/{id}", ActionResource{"delete", "note"}},
		{"POST", "POST /messages", ActionResource{"create", "message"}},
		{"PATCH", "/entries/{id}", ActionResource{"update", "entry"}},
		{"OPTIONS", "/access", ActionResource{"options", "access"}},
		{"GET", "", ActionResource{"unknown", "unknown"}},
		{"GET", "/", ActionResource{"unknown", "unknown"}},
	}
	for _, tt := range tests {
		got := ParseRoute(tt.method, tt.pattern)
		if got != tt.want {
			t.Errorf("ParseRoute(%q, %q) = %+v, want %+v", tt.method, tt.pattern, got, tt.want)
		}
	}
}
