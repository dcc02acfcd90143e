package repository

import (
	"context"
	"time"

	"inotebook/backend/internal/otp/domain"
)

// Repository defines persistence for one-time codes.
type Repository interface {
	Create(ctx context.Context, c *domain.Code) error
	// GetLatest returns the most recent code for email and purpose (consumed or not), or nil.
	GetLatest(ctx context.Context, email string, purpose domain.Purpose) (*domain.Code, error)
	// TryAttempt counts one verification attempt against an unconsumed code that is still under max
	// attempts and returns the new count. ok is false, and nothing is counted, when the code is
	// consumed or out of attempts. The check and the increment are a single step.
	TryAttempt(ctx context.Context, id string, max int) (n int, ok bool, err error)
	// Consume marks the code used. Returns false if it was already consumed.
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	// ConsumeAll marks every outstanding code for email and purpose consumed.
	ConsumeAll(ctx context.Context, email string, purpose domain.Purpose, at time.Time) error
}
