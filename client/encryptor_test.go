package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pem   string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeFetcher) PublicKey(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.pem, f.err
}

func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return priv, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestEncryptor_EncryptsForServerKey(t *testing.T) {
	priv, pubPEM := testKeyPair(t)
	f := &fakeFetcher{pem: pubPEM}
	e := NewEncryptor(f, 0)
	assert.False(t, e.Cached())

	ct, err := e.Encrypt(context.Background(), "hello bob")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	plain, err := rsa.DecryptOAEP(sha256.New(), nil, priv, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", string(plain))
	assert.True(t, e.Cached())
}

func TestEncryptor_FetchesOnceUntilCleared(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	f := &fakeFetcher{pem: pubPEM}
	e := NewEncryptor(f, 0)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Encrypt(context.Background(), "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.calls.Load())

	e.ClearCache()
	assert.False(t, e.Cached())
	_, err := e.Encrypt(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestEncryptor_KeyUnavailable(t *testing.T) {
	testCases := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{"server error", &fakeFetcher{err: &APIError{StatusCode: 500, Message: "boom"}}},
		{"not PEM", &fakeFetcher{pem: "not a key"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEncryptor(tc.fetcher, 0)
			ct, err := e.Encrypt(context.Background(), "secret")
			assert.Empty(t, ct)
			var encErr *EncryptionError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, "encryption failed", err.Error())
			assert.ErrorIs(t, err, ErrKeyUnavailable)
			assert.False(t, e.Cached(), "failures are not cached")
		})
	}
}

func TestEncryptor_FetchTimeout(t *testing.T) {
	f := &fakeFetcher{delay: time.Second}
	e := NewEncryptor(f, 20*time.Millisecond)
	start := time.Now()
	_, err := e.Encrypt(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestEncryptor_CancelledCallerDoesNotWaitForSharedFetch(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	f := &fakeFetcher{pem: pubPEM, delay: 300 * time.Millisecond}
	e := NewEncryptor(f, 0)

	first := make(chan error, 1)
	go func() {
		_, err := e.Encrypt(context.Background(), "x")
		first <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := e.Encrypt(ctx, "y")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, <-first, "the shared fetch keeps running for the other caller")
	assert.True(t, e.Cached())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestEncryptor_PlaintextTooLong(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	e := NewEncryptor(&fakeFetcher{pem: pubPEM}, 0)
	_, err := e.Encrypt(context.Background(), string(make([]byte, 400)))
	var encErr *EncryptionError
	assert.True(t, errors.As(err, &encErr))
	assert.NotErrorIs(t, err, ErrKeyUnavailable)
}
