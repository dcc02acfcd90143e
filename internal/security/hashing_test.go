package security

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	password := []byte("secret123")
	hash, err := h.Hash(ctx, password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if strings.Contains(hash, string(password)) {
		t.Fatal("hash must not contain the plaintext password")
	}
	if err := h.Compare(ctx, hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !h.Verify(ctx, password, hash) {
		t.Fatal("Verify should accept the original password")
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	hash, _ := h.Hash(ctx, []byte("secret123"))
	if err := h.Compare(ctx, hash, []byte("wrong")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
	if h.Verify(ctx, []byte("secret124"), hash) {
		t.Fatal("Verify should reject a different password")
	}
}

func TestHasher_SaltedOutput(t *testing.T) {
	h := NewHasher(4)
	ctx := context.Background()
	a, _ := h.Hash(ctx, []byte("same"))
	b, _ := h.Hash(ctx, []byte("same"))
	if a == b {
		t.Fatal("two hashes of the same password should differ (random salt)")
	}
}

func TestHasher_CostChangeKeepsOldHashesValid(t *testing.T) {
	ctx := context.Background()
	old := NewHasher(4)
	hash, err := old.Hash(ctx, []byte("pw"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	newer := NewHasher(5)
	if !newer.Verify(ctx, []byte("pw"), hash) {
		t.Fatal("hash produced at cost 4 should verify with a cost-5 hasher")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost != DefaultBcryptCost {
		t.Errorf("zero cost should select default %d, got %d", DefaultBcryptCost, h0.Cost)
	}
	h2 := NewHasher(2)
	if h2.Cost < 4 {
		t.Errorf("cost below MinCost should be clamped, got %d", h2.Cost)
	}
	h99 := NewHasher(99)
	if h99.Cost > 31 {
		t.Errorf("cost above MaxCost should be clamped, got %d", h99.Cost)
	}
}

func TestHasher_CanceledContext(t *testing.T) {
	h := NewHasher(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Fill every slot so Acquire has to wait on ctx.
	for {
		if !h.sem.TryAcquire(1) {
			break
		}
	}
	_, err := h.Hash(ctx, []byte("pw"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Hash with canceled ctx: want context.Canceled, got %v", err)
	}
}
