package domain

import "time"

// AuditLog represents an audit event. UserID is empty for anonymous events (e.g. login_failure).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Security-relevant actions recorded by the auth flows.
const (
	ActionSignup            = "signup"
	ActionEmailVerified     = "email_verified"
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionLogout            = "logout"
	ActionPasswordResetReq  = "password_reset_requested"
	ActionPasswordReset     = "password_reset"
	ActionPINSet            = "pin_set"
	ActionPINVerifyFailure  = "pin_verify_failure"
	ActionSecretKeyIssued   = "secret_key_issued"
	ActionMessageDecryptErr = "message_decrypt_failure"
)
