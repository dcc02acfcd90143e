package domain

import "time"

// Purpose scopes a code to one verification flow.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposePasswordReset
}

// Code is an issued one-time code (stored in otp_codes). Only the hash is kept.
type Code struct {
	ID         string
	Email      string
	Purpose    Purpose
	CodeHash   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time // nil until verified or burned
	CreatedAt  time.Time
}

// Usable reports whether the code can still be verified at now.
func (c *Code) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
