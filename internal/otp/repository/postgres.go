package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inotebook/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a one-time code repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the code. The code must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Code) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (id, email, purpose, code_hash, attempts, expires_at, consumed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Email, string(c.Purpose), c.CodeHash, c.Attempts, c.ExpiresAt, timeToNullTime(c.ConsumedAt), c.CreatedAt)
	return err
}

// GetLatest returns the newest code for email and purpose, or nil if none exists.
func (r *PostgresRepository) GetLatest(ctx context.Context, email string, purpose domain.Purpose) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, purpose, code_hash, attempts, expires_at, consumed_at, created_at
		 FROM otp_codes WHERE email = $1 AND purpose = $2
		 ORDER BY created_at DESC LIMIT 1`, email, string(purpose))
	var (
		c        domain.Code
		p        string
		consumed sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Email, &p, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &consumed, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Purpose = domain.Purpose(p)
	c.ConsumedAt = nullTimeToPtr(consumed)
	return &c, nil
}

// TryAttempt reserves one attempt for id while it is unconsumed and below max.
func (r *PostgresRepository) TryAttempt(ctx context.Context, id string, max int) (int, bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1
		 WHERE id = $1 AND consumed_at IS NULL AND attempts < $2
		 RETURNING attempts`, id, max).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Consume marks id consumed if it is not already. The conditional update makes verification
// single-use even when two requests race.
func (r *PostgresRepository) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConsumeAll invalidates every outstanding code for email and purpose.
func (r *PostgresRepository) ConsumeAll(ctx context.Context, email string, purpose domain.Purpose, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET consumed_at = $3 WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL`,
		email, string(purpose), at)
	return err
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
