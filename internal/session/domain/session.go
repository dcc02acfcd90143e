package domain

import "time"

// Session is the server-side record behind a session cookie. The cookie token carries its ID.
type Session struct {
	ID         string
	UserID     string
	IsAdmin    bool
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil when not revoked
	LastSeenAt *time.Time
	IPAddress  string
	CreatedAt  time.Time
}

// Active reports whether the session may authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
