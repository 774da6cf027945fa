package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/luvhive/backend/internal/common"
	"github.com/luvhive/backend/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(external_auth_id,\s*email,\s*password_hash,\s*display_name,\s*username,\s*photo_url\)`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "last_seen_at"}).AddRow("acc-1", now, now)
	extID := int64(777)
	mock.ExpectQuery(q).
		WithArgs(sql.NullInt64{Int64: 777, Valid: true}, "ext777@luvhive.app", sql.NullString{}, "Alice", "alice", "").
		WillReturnRows(rows)

	a := &models.Account{ExternalAuthID: &extID, Email: "ext777@luvhive.app", DisplayName: "Alice", Username: "alice"}
	got, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "acc-1" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+accounts`

	mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505"})

	extID := int64(777)
	_, err := repo.Create(context.Background(), &models.Account{ExternalAuthID: &extID, Email: "ext777@luvhive.app"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@b.c", PasswordHash: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func accountRows(extID any, premiumUntil any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "external_auth_id", "email", "password_hash", "display_name", "username",
		"photo_url", "created_at", "last_seen_at", "is_premium", "premium_until",
	}).AddRow("acc-1", extID, "ext777@luvhive.app", nil, "Alice", "alice", "", now, now, premiumUntil != nil, premiumUntil)
}

func TestGetByExternalID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+accounts\s+WHERE\s+external_auth_id\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs(int64(777)).WillReturnRows(accountRows(int64(777), nil))

	got, err := repo.GetByExternalID(context.Background(), 777)
	if err != nil {
		t.Fatalf("GetByExternalID error: %v", err)
	}
	if got.ExternalAuthID == nil || *got.ExternalAuthID != 777 {
		t.Fatalf("unexpected account: %+v", got)
	}
	if got.PremiumUntil != nil {
		t.Fatalf("expected no premium, got %+v", got)
	}
}

func TestGetByExternalID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+.*\s+FROM\s+accounts\s+WHERE\s+external_auth_id`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(context.Background(), 1)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+accounts\s+WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)$`
	mock.ExpectQuery(q).WithArgs("Ext777@luvhive.app").WillReturnRows(accountRows(int64(777), nil))

	got, err := repo.GetByEmail(context.Background(), "Ext777@luvhive.app")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "acc-1" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestTouchLastSeen_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+last_seen_at\s*=\s*now\(\)`
	mock.ExpectExec(q).
		WithArgs("acc-1", "Alice", "alice", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.TouchLastSeen(context.Background(), "acc-1", "Alice", "alice", ""); err != nil {
		t.Fatalf("TouchLastSeen error: %v", err)
	}
}

func TestTouchLastSeen_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+accounts\s+SET\s+last_seen_at`).
		WithArgs("ghost", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastSeen(context.Background(), "ghost", "", "", "")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestExtendPremium_ReturnsNewExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(30 * 24 * time.Hour)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+is_premium\s*=\s*true`
	mock.ExpectQuery(q).
		WithArgs("acc-1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"premium_until"}).AddRow(until))

	got, err := repo.ExtendPremium(context.Background(), "acc-1", 30)
	if err != nil {
		t.Fatalf("ExtendPremium error: %v", err)
	}
	if !got.Equal(until) {
		t.Fatalf("expected %v, got %v", until, got)
	}
}

func TestExtendPremium_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+accounts\s+SET\s+is_premium`).
		WithArgs("ghost", 7).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ExtendPremium(context.Background(), "ghost", 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
