package otp

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"inotebook/backend/internal/otp/domain"
	"inotebook/backend/internal/otp/repository"
)

const (
	DefaultTTL            = 10 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultResendCooldown = 60 * time.Second
)

// Sentinel errors for the OTP lifecycle; handlers map them to HTTP status codes.
var (
	ErrCodeInvalid     = errors.New("invalid code")
	ErrCodeExpired     = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrResendTooSoon   = errors.New("code recently sent; try again later")
	ErrInvalidPurpose  = errors.New("invalid otp purpose")
)

// Mailer delivers a plain code to the user. The code must not be logged.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, purpose domain.Purpose) error
}

// DevStore receives plain codes in dev OTP mode (see devotp.Store).
type DevStore interface {
	Put(ctx context.Context, purpose, email, code string, expiresAt time.Time)
}

// Config tunes the lifecycle. Zero values fall back to the defaults.
type Config struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

// Service issues and verifies codes. Codes are single use, expire after TTL, and are burned
// after MaxAttempts wrong guesses. Issuing a new code invalidates the outstanding ones.
type Service struct {
	repo     repository.Repository
	mailer   Mailer
	devStore DevStore
	cfg      Config
	nowF     func() time.Time
}

// NewService returns a Service. mailer and devStore may be nil; with neither, codes are
// stored but never delivered.
func NewService(repo repository.Repository, mailer Mailer, devStore DevStore, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = DefaultResendCooldown
	}
	return &Service{
		repo:     repo,
		mailer:   mailer,
		devStore: devStore,
		cfg:      cfg,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a code for (email, purpose), replaces any outstanding code, and delivers it.
// Returns the code's expiry.
func (s *Service) Issue(ctx context.Context, email string, purpose domain.Purpose) (time.Time, error) {
	email = normalizeEmail(email)
	if !purpose.Valid() {
		return time.Time{}, ErrInvalidPurpose
	}
	now := s.nowF()
	latest, err := s.repo.GetLatest(ctx, email, purpose)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil && now.Sub(latest.CreatedAt) < s.cfg.ResendCooldown {
		return time.Time{}, ErrResendTooSoon
	}
	code, err := Generate()
	if err != nil {
		return time.Time{}, err
	}
	if err := s.repo.ConsumeAll(ctx, email, purpose, now); err != nil {
		return time.Time{}, err
	}
	c := &domain.Code{
		ID:        uuid.New().String(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return time.Time{}, err
	}
	if s.devStore != nil {
		s.devStore.Put(ctx, string(purpose), email, code, c.ExpiresAt)
	}
	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, email, code, purpose); err != nil {
			return time.Time{}, err
		}
	} else if s.devStore == nil {
		log.Printf("otp: no mailer configured; %s code for user not delivered", purpose)
	}
	return c.ExpiresAt, nil
}

// Verify checks code against the latest code for (email, purpose) and consumes it on success.
func (s *Service) Verify(ctx context.Context, email string, purpose domain.Purpose, code string) error {
	email = normalizeEmail(email)
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	c, err := s.repo.GetLatest(ctx, email, purpose)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCodeInvalid
	}
	now := s.nowF()
	if !c.Usable(now) {
		if c.ConsumedAt != nil {
			return ErrCodeInvalid
		}
		return ErrCodeExpired
	}
	// The attempt is counted before the guess is compared, so parallel guesses cannot
	// exceed MaxAttempts.
	n, counted, err := s.repo.TryAttempt(ctx, c.ID, s.cfg.MaxAttempts)
	if err != nil {
		return err
	}
	if !counted {
		return ErrTooManyAttempts
	}
	if !CodeEqual(strings.TrimSpace(code), c.CodeHash) {
		if n >= s.cfg.MaxAttempts {
			if _, err := s.repo.Consume(ctx, c.ID, now); err != nil {
				return err
			}
			return ErrTooManyAttempts
		}
		return ErrCodeInvalid
	}
	ok, err := s.repo.Consume(ctx, c.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeInvalid
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
