package repository

import (
	"context"

	"inotebook/backend/internal/note/domain"
)

// Repository defines persistence for notes. Every read and delete is scoped to the owner.
type Repository interface {
	Create(ctx context.Context, n *domain.Note) error
	GetByID(ctx context.Context, userID, id string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Note, error)
	// Delete removes the note. Returns false if no note with id belongs to userID.
	Delete(ctx context.Context, userID, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}
