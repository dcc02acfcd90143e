package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"inotebook/backend/internal/audit"
	auditdomain "inotebook/backend/internal/audit/domain"
	"inotebook/backend/internal/otp"
	otpdomain "inotebook/backend/internal/otp/domain"
	"inotebook/backend/internal/policy/engine"
	"inotebook/backend/internal/security"
	"inotebook/backend/internal/server/middleware"
	sessiondomain "inotebook/backend/internal/session/domain"
	"inotebook/backend/internal/telemetry"
	teldomain "inotebook/backend/internal/telemetry/domain"
	userdomain "inotebook/backend/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to HTTP status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrUserNotFound           = errors.New("user not found")
	ErrPINNotSet              = errors.New("PIN not set")
	ErrInvalidPIN             = errors.New("invalid PIN")
	ErrSecretKeyUnavailable   = errors.New("secret key unavailable")
)

const (
	eventSource  = "auth"
	secretKeyLen = 32
)

// UserRepo is the user repository subset needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetPIN(ctx context.Context, id, pinHash string) error
	SetSecretKeyIfEmpty(ctx context.Context, id, enc string) (bool, error)
}

// SessionRepo is the session repository subset needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllSessionsByUser(ctx context.Context, userID string) error
}

// OTPService issues and verifies one-time codes. Implemented by *otp.Service.
type OTPService interface {
	Issue(ctx context.Context, email string, purpose otpdomain.Purpose) (time.Time, error)
	Verify(ctx context.Context, email string, purpose otpdomain.Purpose, code string) error
}

// PayloadCipher encrypts the per-user secret key at rest. Implemented by *security.Cipher.
type PayloadCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(combined string) (string, error)
}

// Profile is the signed-in user as the client session store sees it.
type Profile struct {
	UserID      string
	Email       string
	Name        string
	IsAdmin     bool
	Permissions []string
	PINSet      bool
}

// LoginResult carries the session token for the cookie plus the profile.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   Profile
}

// Deps holds the auth service collaborators. Audit and Events may be nil.
type Deps struct {
	Users    UserRepo
	Sessions SessionRepo
	OTP      OTPService
	Policy   engine.Evaluator
	Hasher   *security.Hasher
	Tokens   *security.TokenProvider
	Cipher   PayloadCipher
	Audit    audit.AuditLogger
	Events   telemetry.EventEmitter
}

// AuthService implements signup with email verification, password login with server-side
// sessions, password reset, the per-user secret key, and the PIN lock.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	otp      OTPService
	policy   engine.Evaluator
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	cipher   PayloadCipher
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps) *AuthService {
	return &AuthService{
		users:    d.Users,
		sessions: d.Sessions,
		otp:      d.OTP,
		policy:   d.Policy,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		cipher:   d.Cipher,
		audit:    d.Audit,
		events:   d.Events,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Signup creates an unverified user and sends a signup code. Returns the new user id and the code expiry.
// A delivery failure does not undo the signup; the user can ask for a resend.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (string, time.Time, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", time.Time{}, err
	}
	if err := validatePassword(password); err != nil {
		return "", time.Time{}, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	if existing != nil {
		return "", time.Time{}, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash(ctx, []byte(password))
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return "", time.Time{}, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", time.Time{}, err
	}
	s.record(ctx, user.ID, auditdomain.ActionSignup, teldomain.EventSignup, nil)

	expiresAt, err := s.otp.Issue(ctx, email, otpdomain.PurposeSignup)
	if err != nil {
		log.Printf("auth: signup code for %s not delivered: %v", user.ID, err)
		return user.ID, time.Time{}, nil
	}
	s.emit(ctx, user.ID, teldomain.EventOTPIssued, map[string]string{"purpose": string(otpdomain.PurposeSignup)})
	return user.ID, expiresAt, nil
}

// VerifyEmail consumes a signup code and marks the email verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return otp.ErrCodeInvalid
	}
	if user.EmailVerified {
		return nil
	}
	if err := s.otp.Verify(ctx, email, otpdomain.PurposeSignup, code); err != nil {
		s.emit(ctx, user.ID, teldomain.EventOTPFailure, map[string]string{"purpose": string(otpdomain.PurposeSignup)})
		return err
	}
	if err := s.users.SetEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	s.record(ctx, user.ID, auditdomain.ActionEmailVerified, "", nil)
	return nil
}

// Login checks the password, creates a session row, and issues the session token.
// Unknown email, wrong password, and disabled account are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.loginFailed(ctx, "", "unknown_or_disabled")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ctx, user.PasswordHash, []byte(password)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.loginFailed(ctx, user.ID, "bad_password")
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		s.loginFailed(ctx, user.ID, "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	sessionID := uuid.New().String()
	token, expiresAt, err := s.tokens.IssueSession(sessionID, user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:         sessionID,
		UserID:     user.ID,
		IsAdmin:    user.IsAdmin,
		ExpiresAt:  expiresAt,
		LastSeenAt: &now,
		IPAddress:  middleware.ClientIPFromContext(ctx),
		CreatedAt:  now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, auditdomain.ActionLoginSuccess, teldomain.EventLoginSuccess, nil)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Profile: s.profile(ctx, user)}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, reason string) {
	s.record(ctx, userID, auditdomain.ActionLoginFailure, teldomain.EventLoginFailure, map[string]string{"reason": reason})
}

// Logout revokes the session attached to ctx by LoadSession. No-op without one.
func (s *AuthService) Logout(ctx context.Context) error {
	sessionID, ok := middleware.GetSessionID(ctx)
	if !ok {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	userID, _ := middleware.GetUserID(ctx)
	s.record(ctx, userID, auditdomain.ActionLogout, teldomain.EventLogout, nil)
	return nil
}

// ForgotPassword sends a password reset code if the email belongs to an active user.
// It reports success either way so the endpoint cannot be used to enumerate accounts;
// only the resend cooldown is surfaced.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return nil
	}
	if _, err := s.otp.Issue(ctx, email, otpdomain.PurposePasswordReset); err != nil {
		if errors.Is(err, otp.ErrResendTooSoon) {
			return err
		}
		log.Printf("auth: reset code for %s not delivered: %v", user.ID, err)
		return nil
	}
	s.record(ctx, user.ID, auditdomain.ActionPasswordResetReq, teldomain.EventOTPIssued, map[string]string{"purpose": string(otpdomain.PurposePasswordReset)})
	return nil
}

// ResetPassword consumes a reset code, stores the new hash, and revokes every session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return otp.ErrCodeInvalid
	}
	if err := s.otp.Verify(ctx, email, otpdomain.PurposePasswordReset, code); err != nil {
		s.emit(ctx, user.ID, teldomain.EventOTPFailure, map[string]string{"purpose": string(otpdomain.PurposePasswordReset)})
		return err
	}
	hashed, err := s.hasher.Hash(ctx, []byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessionsByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions after password reset: %w", err)
	}
	s.record(ctx, user.ID, auditdomain.ActionPasswordReset, teldomain.EventPasswordReset, nil)
	return nil
}

// ResendOTP issues a fresh code for purpose. Like ForgotPassword it does not reveal whether the
// email is registered: for unknown or already verified accounts it returns a zero expiry and nil.
func (s *AuthService) ResendOTP(ctx context.Context, email string, purpose otpdomain.Purpose) (time.Time, error) {
	if !purpose.Valid() {
		return time.Time{}, otp.ErrInvalidPurpose
	}
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return time.Time{}, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return time.Time{}, nil
	}
	if purpose == otpdomain.PurposeSignup && user.EmailVerified {
		return time.Time{}, nil
	}
	expiresAt, err := s.otp.Issue(ctx, email, purpose)
	if err != nil {
		return time.Time{}, err
	}
	s.emit(ctx, user.ID, teldomain.EventOTPIssued, map[string]string{"purpose": string(purpose)})
	return expiresAt, nil
}

// Me returns the profile of userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	p := s.profile(ctx, user)
	return &p, nil
}

func (s *AuthService) profile(ctx context.Context, u *userdomain.User) Profile {
	perms, err := s.policy.Permissions(ctx, engine.Subject{UserID: u.ID, IsAdmin: u.IsAdmin, EmailVerified: u.EmailVerified})
	if err != nil {
		log.Printf("auth: permissions for %s: %v", u.ID, err)
	}
	return Profile{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsAdmin:     u.IsAdmin,
		Permissions: perms,
		PINSet:      u.HasPIN(),
	}
}

// SecretKey returns the user's hex-encoded client secret key, generating and storing it on first use.
// Concurrent first requests converge on the key that was stored first.
func (s *AuthService) SecretKey(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.SecretKeyEnc != "" {
		return s.openSecretKey(user)
	}

	raw := make([]byte, secretKeyLen)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := hex.EncodeToString(raw)
	enc, err := s.cipher.Encrypt(key)
	if err != nil {
		return "", err
	}
	stored, err := s.users.SetSecretKeyIfEmpty(ctx, userID, enc)
	if err != nil {
		return "", err
	}
	if stored {
		s.record(ctx, userID, auditdomain.ActionSecretKeyIssued, "", nil)
		return key, nil
	}
	user, err = s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return s.openSecretKey(user)
}

func (s *AuthService) openSecretKey(u *userdomain.User) (string, error) {
	key, err := s.cipher.Decrypt(u.SecretKeyEnc)
	if err != nil {
		log.Printf("auth: secret key of %s unreadable: %v", u.ID, err)
		return "", ErrSecretKeyUnavailable
	}
	return key, nil
}

// SetPIN stores a bcrypt hash of pin, replacing any previous PIN.
func (s *AuthService) SetPIN(ctx context.Context, userID, pin string) error {
	if err := validatePIN(pin); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(ctx, []byte(pin))
	if err != nil {
		return err
	}
	if err := s.users.SetPIN(ctx, userID, hashed); err != nil {
		return err
	}
	s.record(ctx, userID, auditdomain.ActionPINSet, "", nil)
	return nil
}

// VerifyPIN checks pin against the stored hash.
func (s *AuthService) VerifyPIN(ctx context.Context, userID, pin string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.HasPIN() {
		return ErrPINNotSet
	}
	if err := s.hasher.Compare(ctx, user.PINHash, []byte(pin)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.record(ctx, userID, auditdomain.ActionPINVerifyFailure, teldomain.EventPINFailure, nil)
		return ErrInvalidPIN
	}
	return nil
}

// record writes an audit entry and, when eventType is set, emits a security event.
func (s *AuthService) record(ctx context.Context, userID, action, eventType string, metadata map[string]string) {
	if s.audit != nil {
		meta := ""
		if reason, ok := metadata["reason"]; ok {
			meta = fmt.Sprintf(`{"reason":%q}`, reason)
		}
		s.audit.LogEvent(ctx, userID, action, "auth", meta)
	}
	if eventType != "" {
		s.emit(ctx, userID, eventType, metadata)
	}
}

func (s *AuthService) emit(ctx context.Context, userID, eventType string, metadata map[string]string) {
	if s.events == nil {
		return
	}
	var meta any
	if len(metadata) > 0 {
		meta = metadata
	}
	ev := teldomain.NewSecurityEvent(eventType, eventSource, userID, meta)
	ev.SessionID, _ = middleware.GetSessionID(ctx)
	ev.IP = middleware.ClientIPFromContext(ctx)
	telemetry.EmitAsync(s.events, ev)
}
