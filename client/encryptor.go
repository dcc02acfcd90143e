package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultKeyFetchTimeout bounds the public key request.
const DefaultKeyFetchTimeout = 5 * time.Second

// PublicKeyFetcher returns the server's transport public key as PEM. Implemented by *API.
type PublicKeyFetcher interface {
	PublicKey(ctx context.Context) (string, error)
}

// Encryptor encrypts outbound payloads for the server with RSA-OAEP (SHA-256). The public key is
// fetched on first use and cached until ClearCache. It never falls back to plaintext.
type Encryptor struct {
	fetcher PublicKeyFetcher
	timeout time.Duration

	group singleflight.Group

	mu  sync.Mutex
	key *rsa.PublicKey
	gen uint64 // bumped by ClearCache so an in-flight fetch cannot repopulate a cleared cache
}

// NewEncryptor returns an Encryptor. timeout <= 0 selects DefaultKeyFetchTimeout.
func NewEncryptor(fetcher PublicKeyFetcher, timeout time.Duration) *Encryptor {
	if timeout <= 0 {
		timeout = DefaultKeyFetchTimeout
	}
	return &Encryptor{fetcher: fetcher, timeout: timeout}
}

// Encrypt returns base64(RSA-OAEP(plaintext)). Every failure is an *EncryptionError.
func (e *Encryptor) Encrypt(ctx context.Context, plaintext string) (string, error) {
	key, err := e.publicKey(ctx)
	if err != nil {
		return "", &EncryptionError{cause: err}
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, []byte(plaintext), nil)
	if err != nil {
		return "", &EncryptionError{cause: err}
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Cached reports whether a public key is cached.
func (e *Encryptor) Cached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key != nil
}

// ClearCache drops the cached key; the next Encrypt fetches again.
func (e *Encryptor) ClearCache() {
	e.mu.Lock()
	e.key = nil
	e.gen++
	e.mu.Unlock()
}

// publicKey returns the cached key or joins the single in-flight fetch. The fetch runs under its
// own timeout; each caller stops waiting when its ctx is done.
func (e *Encryptor) publicKey(ctx context.Context) (*rsa.PublicKey, error) {
	e.mu.Lock()
	key, gen := e.key, e.gen
	e.mu.Unlock()
	if key != nil {
		return key, nil
	}

	ch := e.group.DoChan("public-key", func() (any, error) {
		e.mu.Lock()
		cached := e.key
		e.mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		pemStr, err := e.fetcher.PublicKey(fetchCtx)
		if err != nil {
			return nil, err
		}
		parsed, err := parseRSAPublicKey(pemStr)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if e.gen == gen {
			e.key = parsed
		}
		e.mu.Unlock()
		return parsed, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, res.Err)
		}
		return res.Val.(*rsa.PublicKey), nil
	}
}

func parseRSAPublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want RSA", pub)
	}
	return rsaPub, nil
}
