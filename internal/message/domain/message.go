package domain

import "time"

// Message is a direct message between users. Clients send the body RSA-OAEP encrypted for the
// server's transport key; it is stored re-encrypted at rest in BodyEnc.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	BodyEnc     string
	CreatedAt   time.Time
}
