package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrTransportDecrypt is returned when an inbound RSA-OAEP payload cannot be decrypted.
// The underlying cause is deliberately not exposed.
var ErrTransportDecrypt = errors.New("transport payload could not be decrypted")

// TransportKey is the server's RSA key pair for payloads encrypted by clients in transit.
// Clients fetch the public half (GET /auth/getpubKey) and encrypt with RSA-OAEP/SHA-256.
type TransportKey struct {
	priv      *rsa.PrivateKey
	publicPEM string
}

// LoadTransportKey parses an RSA private key from inline PEM or a file path.
func LoadTransportKey(s string) (*TransportKey, error) {
	signer, err := ParsePrivateKey(s)
	if err != nil {
		return nil, err
	}
	priv, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("transport key: %w (RSA required)", ErrInvalidKey)
	}
	return newTransportKey(priv)
}

// GenerateTransportKey creates an ephemeral RSA key. Intended for development only: clients
// caching the public key will fail after a restart.
func GenerateTransportKey(bits int) (*TransportKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return newTransportKey(priv)
}

func newTransportKey(priv *rsa.PrivateKey) (*TransportKey, error) {
	pubPEM, err := EncodePublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &TransportKey{priv: priv, publicPEM: string(pubPEM)}, nil
}

// PublicKeyPEM returns the PKIX PEM of the public key.
func (k *TransportKey) PublicKeyPEM() string { return k.publicPEM }

// Decrypt decodes a base64 RSA-OAEP (SHA-256) ciphertext and returns the plaintext.
func (k *TransportKey) Decrypt(b64 string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", ErrTransportDecrypt
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), nil, k.priv, ct, nil)
	if err != nil {
		return "", ErrTransportDecrypt
	}
	return string(plain), nil
}
