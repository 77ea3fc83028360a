package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/atinyakov/imagerepo/internal/models"
)

func setupCredentialMock(t *testing.T) (*PostgresCredentialRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresCredentialRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestValidateCredential_Match(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE email = $1 AND secret = $2`)).
		WithArgs("a@x.com", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := repo.ValidateCredential(context.Background(), "a@x.com", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 11 {
		t.Errorf("id = %d; want 11", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestValidateCredential_Mismatch(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE email = $1 AND secret = $2`)).
		WithArgs("a@x.com", "wrong").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ValidateCredential(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v; want ErrNotFound", err)
	}
}

func TestValidateCredential_StorageError(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	dbErr := errors.New("connection refused")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users`)).
		WillReturnError(dbErr)

	_, err := repo.ValidateCredential(context.Background(), "a@x.com", "s1")
	if !errors.Is(err, dbErr) {
		t.Fatalf("error = %v; want wrapped %v", err, dbErr)
	}
}

func TestCreateSession(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO logins (token, validity, user_id) VALUES ($1, $2, $3)`)).
		WithArgs(sqlmock.AnyArg(), fixed.Add(30*time.Minute), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := repo.CreateSession(context.Background(), 4, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Token == "" {
		t.Error("expected a non-empty token")
	}
	if !session.Validity.Equal(fixed.Add(30 * time.Minute)) {
		t.Errorf("validity = %v; want %v", session.Validity, fixed.Add(30*time.Minute))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateSession_TokensAreUnique(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO logins`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	a, err := repo.CreateSession(context.Background(), 1, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := repo.CreateSession(context.Background(), 1, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Token == b.Token {
		t.Errorf("tokens should differ, both were %q", a.Token)
	}
}

func TestResolveSession(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	query := regexp.QuoteMeta(`SELECT user_id FROM logins WHERE token = $1 AND validity > clock_timestamp()`)
	mock.ExpectQuery(query).
		WithArgs("live").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(9)))
	mock.ExpectQuery(query).
		WithArgs("expired").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	id, err := repo.ResolveSession(context.Background(), "live")
	if err != nil || id != 9 {
		t.Fatalf("ResolveSession(live) = %d, %v; want 9, nil", id, err)
	}
	if _, err := repo.ResolveSession(context.Background(), "expired"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("ResolveSession(expired) error = %v; want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteSession_Idempotent(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM logins WHERE token = $1`)).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteSession(context.Background(), "gone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo, mock, cleanup := setupCredentialMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM logins WHERE validity <= clock_timestamp()`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d; want 3", n)
	}
}
