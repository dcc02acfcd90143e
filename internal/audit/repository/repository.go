package repository

import (
	"context"

	"inotebook/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// List returns entries newest first. userID and action filter when non-empty.
	List(ctx context.Context, userID, action string, limit, offset int) ([]*domain.AuditLog, error)
}
