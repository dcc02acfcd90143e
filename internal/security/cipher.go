package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

var (
	// ErrNoEncryptionKey is returned by NewCipher when no passphrase is configured.
	ErrNoEncryptionKey = errors.New("encryption key is not configured")
	// ErrDecoding is returned when an encrypted payload is not in iv:ciphertext hex form.
	ErrDecoding = errors.New("malformed encrypted payload")
	// ErrPayloadUnreadable is returned when a well-formed payload cannot be decrypted
	// (wrong key or corrupted ciphertext).
	ErrPayloadUnreadable = errors.New("encrypted payload unreadable")
)

const (
	ivSize    = aes.BlockSize
	keySize   = 32
	separator = ":"
)

// kdfSalt is fixed so the same passphrase always yields the same key across restarts.
var kdfSalt = []byte("inotebook.at-rest.v1")

// Cipher encrypts text at rest with AES-256-CBC. The key is derived once from a passphrase;
// every call uses a fresh random IV, carried in the output as hex(iv):hex(ciphertext).
type Cipher struct {
	key []byte
}

// NewCipher derives the AES key from passphrase using scrypt (N=16384, r=8, p=1).
// An empty passphrase is an error; there is no built-in default key.
func NewCipher(passphrase string) (*Cipher, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrNoEncryptionKey
	}
	key, err := scrypt.Key([]byte(passphrase), kdfSalt, 1<<14, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns hex(iv) + ":" + hex(ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + separator + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It splits on the first ":"; malformed input yields ErrDecoding,
// a wrong key or corrupted body yields ErrPayloadUnreadable.
func (c *Cipher) Decrypt(combined string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(combined, separator)
	if !ok {
		return "", ErrDecoding
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", ErrDecoding
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrDecoding
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrPayloadUnreadable
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrPayloadUnreadable
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, ErrPayloadUnreadable
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrPayloadUnreadable
		}
	}
	return b[:len(b)-n], nil
}
