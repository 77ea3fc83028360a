package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresShareRepository grants and revokes read access to images.
type PostgresShareRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresShareRepository creates a new PostgresShareRepository using the provided *sql.DB.
func NewPostgresShareRepository(db *sql.DB) *PostgresShareRepository {
	return &PostgresShareRepository{DB: db}
}

// ShareImage lets userID read imageID. Repeated grants add duplicate rows, which
// UnshareImage removes together.
func (r *PostgresShareRepository) ShareImage(ctx context.Context, imageID, userID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO image_share (image_id, user_id) VALUES ($1, $2)`,
		imageID, userID,
	)
	if err != nil {
		return fmt.Errorf("share image: %w", err)
	}
	return nil
}

// UnshareImage removes every grant of imageID to userID. Removing a missing grant is not an error.
func (r *PostgresShareRepository) UnshareImage(ctx context.Context, imageID, userID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM image_share WHERE image_id = $1 AND user_id = $2`,
		imageID, userID,
	)
	if err != nil {
		return fmt.Errorf("unshare image: %w", err)
	}
	return nil
}
