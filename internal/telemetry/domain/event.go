package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the auth flows and the HTTP middleware.
const (
	EventHTTPRequest   = "http_request"
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventLogout        = "logout"
	EventSignup        = "signup"
	EventPasswordReset = "password_reset"
	EventOTPIssued     = "otp_issued"
	EventOTPFailure    = "otp_failure"
	EventPINFailure    = "pin_failure"
	EventDecryptFailed = "decrypt_failure"
)

// SecurityEvent is the JSON envelope written to OTel logs and Kafka and pushed to Loki by the worker.
// Metadata must never contain passwords, codes, PINs, or keys.
type SecurityEvent struct {
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	IP        string          `json:"ip,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewSecurityEvent returns an event stamped with the current UTC time. metadata is marshaled to JSON;
// nil leaves Metadata empty.
func NewSecurityEvent(eventType, source, userID string, metadata any) *SecurityEvent {
	e := &SecurityEvent{
		UserID:    userID,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			e.Metadata = b
		}
	}
	return e
}
