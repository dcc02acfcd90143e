package client

import (
	"errors"
	"fmt"
)

var (
	// ErrDecryptFailed is returned by SymmetricCipher.Decrypt under FailClosed.
	ErrDecryptFailed = errors.New("client: decrypt failed")
	// ErrKeyUnavailable means the transport public key could not be fetched or parsed.
	ErrKeyUnavailable = errors.New("client: public key unavailable")
	// ErrPINNotSet is returned when marking a PIN verified before one is set.
	ErrPINNotSet = errors.New("client: PIN not set")
	// ErrSessionChanged means a secret key fetch finished after the session logged out or was replaced.
	ErrSessionChanged = errors.New("client: session changed during fetch")
)

// EncryptionError wraps any Encryptor failure. Its message is generic; the cause is available
// through errors.Is / errors.As.
type EncryptionError struct {
	cause error
}

func (e *EncryptionError) Error() string { return "encryption failed" }

func (e *EncryptionError) Unwrap() error { return e.cause }

// APIError is a non-2xx answer from the server. Message is the server's "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.StatusCode, e.Message)
}
