package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/imagerepo/internal/models"
)

// Thumbnailer produces a bounded-dimension derivative of an image payload.
type Thumbnailer interface {
	Thumbnail(data []byte, mimeType string) ([]byte, error)
}

// PostgresRawImageRepository stores image payloads keyed by their content digest.
type PostgresRawImageRepository struct {
	// DB is the database handle for executing queries.
	DB     *sql.DB
	thumbs Thumbnailer
	now    func() time.Time
}

// NewPostgresRawImageRepository creates a raw image store that derives thumbnails with thumbs.
func NewPostgresRawImageRepository(db *sql.DB, thumbs Thumbnailer) *PostgresRawImageRepository {
	return &PostgresRawImageRepository{DB: db, thumbs: thumbs, now: time.Now}
}

// Digest returns the content address of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EnsureRawImage makes sure a raw image row exists for data and returns its id.
//
// q must be a transaction: the digest-keyed advisory lock taken here is held until it
// ends, which makes check-then-insert atomic against concurrent uploads of the same bytes.
// The thumbnail is only computed when the row is new.
func (r *PostgresRawImageRepository) EnsureRawImage(ctx context.Context, q Querier, data []byte, mimeType string) (string, error) {
	id := Digest(data)

	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, id); err != nil {
		return "", fmt.Errorf("lock raw image: %w", err)
	}

	var existing string
	err := q.QueryRowContext(ctx, `SELECT id FROM raw_images WHERE id = $1 FOR UPDATE`, id).Scan(&existing)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("check raw image: %w", err)
	}

	thumb, err := r.thumbs.Thumbnail(data, mimeType)
	if err != nil {
		return "", err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO raw_images (id, img_type, raw_data, thumbnail, created_on)
		VALUES ($1, $2, $3, $4, $5)
	`, id, mimeType, data, thumb, r.now())
	if err != nil {
		return "", fmt.Errorf("insert raw image: %w", err)
	}
	return id, nil
}

// FetchRaw returns the full payload of a raw image when full is set, otherwise its thumbnail.
func (r *PostgresRawImageRepository) FetchRaw(ctx context.Context, id string, full bool) (*models.RawPayload, error) {
	query := `SELECT img_type, thumbnail FROM raw_images WHERE id = $1`
	if full {
		query = `SELECT img_type, raw_data FROM raw_images WHERE id = $1`
	}

	var p models.RawPayload
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&p.MimeType, &p.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch raw image: %w", err)
	}
	return &p, nil
}
