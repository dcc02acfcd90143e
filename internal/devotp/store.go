// Package devotp keeps plain one-time codes in memory so they can be read back at GET /dev/otp.
// It is wired only when OTP_RETURN_TO_CLIENT is enabled outside production.
package devotp

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store holds plain codes by purpose and email for dev-only retrieval.
type Store interface {
	// Put stores code for (purpose, email) until expiresAt, replacing any earlier code.
	Put(ctx context.Context, purpose, email, code string, expiresAt time.Time)
	// Get returns the code if present and not expired.
	Get(ctx context.Context, purpose, email string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

func key(purpose, email string) string {
	return purpose + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Put stores code for (purpose, email) until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, purpose, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(purpose, email)] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for (purpose, email) if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, purpose, email string) (string, bool) {
	k := key(purpose, email)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
