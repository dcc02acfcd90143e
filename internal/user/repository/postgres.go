package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inotebook/backend/internal/user/domain"
)

const userColumns = `id, email, name, password_hash, is_admin, email_verified, pin_hash, secret_key_enc, status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUserRow(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUserRow(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.IsAdmin, u.EmailVerified,
		nullString(u.PINHash), nullString(u.SecretKeyEnc), string(u.Status), u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, time.Now().UTC())
	return err
}

func (r *PostgresRepository) SetPIN(ctx context.Context, id, pinHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET pin_hash = $2, updated_at = $3 WHERE id = $1`, id, pinHash, time.Now().UTC())
	return err
}

// SetSecretKeyIfEmpty stores enc only when secret_key_enc is NULL, so concurrent first requests agree on one key.
func (r *PostgresRepository) SetSecretKeyIfEmpty(ctx context.Context, id, enc string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET secret_key_enc = $2, updated_at = $3 WHERE id = $1 AND secret_key_enc IS NULL`,
		id, enc, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns users ordered by creation time, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Stats aggregates user counts in a single query.
func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE is_admin),
		COUNT(*) FILTER (WHERE email_verified),
		COUNT(*) FILTER (WHERE status = 'disabled'),
		COUNT(*) FILTER (WHERE pin_hash IS NOT NULL),
		COUNT(*) FILTER (WHERE created_at > $1)
		FROM users`, now.Add(-24*time.Hour)).
		Scan(&s.Total, &s.Admins, &s.Verified, &s.Disabled, &s.WithPIN, &s.Registered24h)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u         domain.User
		status    string
		pinHash   sql.NullString
		secretKey sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.EmailVerified,
		&pinHash, &secretKey, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	u.PINHash = pinHash.String
	u.SecretKeyEnc = secretKey.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
