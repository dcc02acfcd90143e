package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash and PINHash are bcrypt hashes; SecretKeyEnc is the
// per-user client secret key encrypted by the at-rest cipher.
type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	IsAdmin       bool
	EmailVerified bool
	PINHash       string // empty until the user sets a PIN
	SecretKeyEnc  string // empty until first requested
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// HasPIN reports whether the user has set a PIN.
func (u *User) HasPIN() bool { return u.PINHash != "" }

// Stats summarizes the user base for the admin dashboard.
type Stats struct {
	Total         int
	Admins        int
	Verified      int
	Disabled      int
	WithPIN       int
	Registered24h int
}
