package repository

import (
	"context"

	"inotebook/backend/internal/message/domain"
)

// Repository defines persistence for messages.
type Repository interface {
	Create(ctx context.Context, m *domain.Message) error
	// ListInbox returns messages addressed to recipientID, newest first.
	ListInbox(ctx context.Context, recipientID string, limit int) ([]*domain.Message, error)
	Count(ctx context.Context) (int, error)
}
