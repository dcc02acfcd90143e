package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"inotebook/backend/internal/note/domain"
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

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	n := &domain.Note{ID: "n1", UserID: "u1", Title: "t", BodyEnc: "aa:bb", CreatedAt: now, UpdatedAt: now}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).
		WithArgs("n1", "u1", "t", "aa:bb", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notes WHERE id = $1 AND user_id = $2")).
		WithArgs("n1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "body_enc", "created_at", "updated_at"}).
			AddRow("n1", "u1", "t", "aa:bb", now, now))

	ctx := context.Background()
	if err := repo.Create(ctx, n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, "u1", "n1")
	if err != nil || got == nil || got.BodyEnc != "aa:bb" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
}

func TestPostgresRepository_GetOtherUsersNote(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM notes WHERE id = $1 AND user_id = $2")).
		WithArgs("n1", "intruder").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	got, err := repo.GetByID(context.Background(), "intruder", "n1")
	if err != nil || got != nil {
		t.Fatalf("GetByID = %+v, %v; want nil, nil", got, err)
	}
}

func TestPostgresRepository_Delete(t *testing.T) {
	repo, mock := newMock(t)
	q := regexp.QuoteMeta("DELETE FROM notes WHERE id = $1 AND user_id = $2")
	mock.ExpectExec(q).WithArgs("n1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("n1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	if ok, err := repo.Delete(context.Background(), "u1", "n1"); err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ok, err := repo.Delete(context.Background(), "u1", "n1"); err != nil || ok {
		t.Fatalf("second Delete = %v, %v; want false", ok, err)
	}
}

func TestPostgresRepository_ListByUser(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM notes WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "body_enc", "created_at", "updated_at"}).
			AddRow("n2", "u1", "b", "x:y", now, now).
			AddRow("n1", "u1", "a", "x:z", now, now))
	list, err := repo.ListByUser(context.Background(), "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByUser = %v, %v", list, err)
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		body    string
		wantErr bool
	}{
		{"ok", "Groceries", "milk", false},
		{"empty body ok", "Title", "", false},
		{"blank title", "  ", "x", true},
		{"long title", string(make([]byte, domain.MaxTitleLen+1)), "", true},
		{"long body", "t", string(make([]byte, domain.MaxBodyLen+1)), true},
	}
	for _, tt := range tests {
		if err := domain.ValidateInput(tt.title, tt.body); (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
