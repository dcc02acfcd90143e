package repository

import (
	"context"
	"time"

	"inotebook/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllSessionsByUser(ctx context.Context, userID string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// CountActive returns the number of sessions neither revoked nor expired at now.
	CountActive(ctx context.Context, now time.Time) (int, error)
}
