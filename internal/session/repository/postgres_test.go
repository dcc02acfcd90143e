package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"inotebook/backend/internal/session/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_GetByID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_admin", "expires_at", "revoked_at", "last_seen_at", "ip_address", "created_at"}).
			AddRow("s1", "u1", true, now.Add(time.Hour), nil, now, "10.0.0.1", now))
	s, err := repo.GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s.UserID != "u1" || !s.IsAdmin || s.RevokedAt != nil || s.LastSeenAt == nil || !s.Active(now) {
		t.Errorf("session = %+v", s)
	}
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s, err := repo.GetByID(context.Background(), "nope")
	if err != nil || s != nil {
		t.Fatalf("GetByID = %+v, %v", s, err)
	}
}

func TestPostgresRepository_CreateAndRevoke(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	s := &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour), IPAddress: "1.2.3.4", CreatedAt: now}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs("s1", "u1", false, s.ExpiresAt, nil, nil, "1.2.3.4", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND revoked_at IS NULL")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Revoke(ctx, "s1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := repo.RevokeAllSessionsByUser(ctx, "u1"); err != nil {
		t.Fatalf("RevokeAllSessionsByUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresRepository_CountActive(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	n, err := repo.CountActive(context.Background(), now)
	if err != nil || n != 7 {
		t.Fatalf("CountActive = %d, %v", n, err)
	}
}

func TestSession_Active(t *testing.T) {
	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)
	tests := []struct {
		name string
		s    domain.Session
		want bool
	}{
		{"live", domain.Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", domain.Session{ExpiresAt: now}, false},
		{"revoked", domain.Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}
	for _, tt := range tests {
		if got := tt.s.Active(now); got != tt.want {
			t.Errorf("%s: Active = %v, want %v", tt.name, got, tt.want)
		}
	}
}
