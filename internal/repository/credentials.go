package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/imagerepo/internal/models"
)

// PostgresCredentialRepository validates credentials and manages login sessions.
type PostgresCredentialRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// now is overridable in tests.
	now func() time.Time
}

// NewPostgresCredentialRepository creates a new PostgresCredentialRepository with the given database connection.
func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{DB: db, now: time.Now}
}

// ValidateCredential returns the id of the user whose email and secret both match exactly.
// It returns models.ErrNotFound on any mismatch without telling which field was wrong.
func (r *PostgresCredentialRepository) ValidateCredential(ctx context.Context, email, secret string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = $1 AND secret = $2`,
		email, secret,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("validate credential: %w", err)
	}
	return id, nil
}

// CreateSession stores a new random token for userID that expires after ttl.
func (r *PostgresCredentialRepository) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	session := models.Session{
		Token:    uuid.NewString(),
		Validity: r.now().Add(ttl),
		UserID:   userID,
	}

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO logins (token, validity, user_id) VALUES ($1, $2, $3)`,
		session.Token, session.Validity, session.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// ResolveSession returns the user bound to token if the session exists and has not expired.
// Absent and expired tokens both yield models.ErrNotFound.
func (r *PostgresCredentialRepository) ResolveSession(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM logins WHERE token = $1 AND validity > clock_timestamp()`,
		token,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	return userID, nil
}

// DeleteSession removes the session with the given token. If no such session exists,
// no error is returned.
func (r *PostgresCredentialRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM logins WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose validity has passed and reports how many were removed.
func (r *PostgresCredentialRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM logins WHERE validity <= clock_timestamp()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
