package security

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost is the cost used when none is configured.
const DefaultBcryptCost = 10

// Hasher hashes and verifies passwords (and PINs) using bcrypt. Callers must not log or
// persist plaintext passwords.
//
// Hash and Compare are CPU-bound; at most GOMAXPROCS of them run at once so a burst of
// logins cannot monopolise every core while other requests wait to be scheduled.
type Hasher struct {
	Cost int
	sem  *semaphore.Weighted
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Zero or negative selects
// DefaultBcryptCost. bcrypt embeds the cost in its output, so changing it later does not
// break verification of hashes produced with the old cost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{
		Cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash produces a bcrypt hash of password suitable for storage. It blocks until a hashing
// slot is free or ctx is done.
func (h *Hasher) Hash(ctx context.Context, password []byte) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they match; returns an
// error (including bcrypt.ErrMismatchedHashAndPassword) if they do not or on invalid hash.
func (h *Hasher) Compare(ctx context.Context, hash string, password []byte) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// Verify reports whether password matches hash.
func (h *Hasher) Verify(ctx context.Context, password []byte, hash string) bool {
	return h.Compare(ctx, hash, password) == nil
}

func (h *Hasher) acquire(ctx context.Context) error {
	if h.sem == nil {
		return nil
	}
	return h.sem.Acquire(ctx, 1)
}

func (h *Hasher) release() {
	if h.sem != nil {
		h.sem.Release(1)
	}
}
