package client

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"
)

// FailPolicy decides what Decrypt returns when a ciphertext cannot be opened.
type FailPolicy int

const (
	// FailOpen returns the original ciphertext and a nil error, so a UI can render something.
	FailOpen FailPolicy = iota
	// FailClosed returns ErrDecryptFailed.
	FailClosed
)

const (
	keySize  = 32
	hkdfInfo = "inotebook client cipher v1"
)

// SymmetricCipher encrypts payloads with the per-user secret key. AES-256-GCM; the wire form is
// base64(nonce || ciphertext).
type SymmetricCipher struct {
	policy FailPolicy
}

// NewSymmetricCipher returns a cipher with the given failure policy.
func NewSymmetricCipher(policy FailPolicy) *SymmetricCipher {
	return &SymmetricCipher{policy: policy}
}

// deriveKey uses the 64-hex secret key from the server as raw bytes and stretches anything else
// with HKDF-SHA256.
func deriveKey(key string) ([]byte, error) {
	if len(key) == 2*keySize {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw, nil
		}
	}
	out := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte(hkdfInfo)), out); err != nil {
		return nil, err
	}
	return out, nil
}

func newGCM(key string) (cipher.AEAD, error) {
	k, err := deriveKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key. Empty plaintext or key is returned unchanged.
func (c *SymmetricCipher) Encrypt(plaintext, key string) (string, error) {
	if plaintext == "" || key == "" {
		return plaintext, nil
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext under key. Empty ciphertext or key is returned unchanged. Anything that
// does not open to valid UTF-8 is handled per the cipher's FailPolicy.
func (c *SymmetricCipher) Decrypt(ciphertext, key string) (string, error) {
	if ciphertext == "" || key == "" {
		return ciphertext, nil
	}
	plain, err := open(ciphertext, key)
	if err != nil {
		if c.policy == FailClosed {
			return "", ErrDecryptFailed
		}
		return ciphertext, nil
	}
	return plain, nil
}

func open(ciphertext, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize()+gcm.Overhead() {
		return "", errors.New("ciphertext too short")
	}
	nonce, body := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", errors.New("plaintext is not valid UTF-8")
	}
	return string(plain), nil
}
