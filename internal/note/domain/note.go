package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxTitleLen = 200
	MaxBodyLen  = 64 << 10
)

// Note is a user's note. BodyEnc is the at-rest ciphertext (hex(iv):hex(ct)); the plaintext body never hits the database.
type Note struct {
	ID        string
	UserID    string
	Title     string
	BodyEnc   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInput checks a plaintext title and body before encryption.
func ValidateInput(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	if len(title) > MaxTitleLen {
		return errors.New("title is too long")
	}
	if len(body) > MaxBodyLen {
		return errors.New("body is too long")
	}
	return nil
}
