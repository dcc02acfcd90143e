package client

import (
	"context"
	"log"
	"slices"
	"sync"
)

// Summary is what the server reports about the user at login.
type Summary struct {
	UserID      string
	Email       string
	IsAdmin     bool
	Permissions []string
	PINSet      bool
}

// State is a point-in-time copy of a Session.
type State struct {
	LoggedIn    bool
	UserID      string
	Email       string
	IsAdmin     bool
	Permissions []string
	PINSet      bool
	PINVerified bool
	SecretKey   string
}

// SecretKeyFetcher returns the signed-in user's secret key. Implemented by *API.
type SecretKeyFetcher interface {
	SecretKey(ctx context.Context) (string, error)
}

// Session holds the authentication state of one client (one browser tab, one CLI run).
// The zero value is a logged-out session. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex
	st State

	// gen changes on every Login and Logout; a fetch started under one login may only
	// store its result into the same login.
	gen uint64
}

// NewSession returns a logged-out session.
func NewSession() *Session {
	return &Session{}
}

// Login records a successful login. PIN verification never carries over from a previous login.
func (s *Session) Login(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.st = State{
		LoggedIn:    true,
		UserID:      sum.UserID,
		Email:       sum.Email,
		IsAdmin:     sum.IsAdmin,
		Permissions: slices.Clone(sum.Permissions),
		PINSet:      sum.PINSet,
	}
}

// Logout resets every field, including the secret key.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.st = State{}
}

// SetPINState sets both PIN flags in one transition. verified without set is rejected.
func (s *Session) SetPINState(set, verified bool) error {
	if verified && !set {
		return ErrPINNotSet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.PINSet = set
	s.st.PINVerified = verified
	return nil
}

// SetPINVerified flips only the verification flag. It does not mark the PIN as set.
func (s *Session) SetPINVerified(verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verified && !s.st.PINSet {
		return ErrPINNotSet
	}
	s.st.PINVerified = verified
	return nil
}

// FetchAndSetSecretKey stores the key returned by f. On failure the previous key is kept, the error
// is logged and returned; callers that only render may ignore it. A key that arrives after the
// session logged out or logged in again is discarded with ErrSessionChanged.
func (s *Session) FetchAndSetSecretKey(ctx context.Context, f SecretKeyFetcher) error {
	s.mu.RLock()
	gen, loggedIn := s.gen, s.st.LoggedIn
	s.mu.RUnlock()
	if !loggedIn {
		return ErrSessionChanged
	}

	key, err := f.SecretKey(ctx)
	if err != nil {
		log.Printf("client: fetch secret key: %v", err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || !s.st.LoggedIn {
		return ErrSessionChanged
	}
	s.st.SecretKey = key
	return nil
}

// SecretKey returns the cached secret key, or "" when none is cached.
func (s *Session) SecretKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.SecretKey
}

// HasPermission reports whether the logged-in user was granted perm.
func (s *Session) HasPermission(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.LoggedIn && slices.Contains(s.st.Permissions, perm)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.st
	st.Permissions = slices.Clone(s.st.Permissions)
	return st
}
