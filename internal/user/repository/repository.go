package repository

import (
	"context"
	"time"

	"inotebook/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetPIN(ctx context.Context, id, pinHash string) error
	// SetSecretKeyIfEmpty stores enc only when the user has no secret key yet. Returns false if one already existed.
	SetSecretKeyIfEmpty(ctx context.Context, id, enc string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	Stats(ctx context.Context, now time.Time) (*domain.Stats, error)
}
