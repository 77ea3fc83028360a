package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/imagerepo/internal/models"
)

// RawImageEnsurer stores image content inside the caller's transaction and returns its id.
type RawImageEnsurer interface {
	EnsureRawImage(ctx context.Context, q Querier, data []byte, mimeType string) (string, error)
}

// PostgresImageRepository implements image metadata persistence, access-scoped reads and tag search.
type PostgresImageRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB  *sql.DB
	raw RawImageEnsurer
	now func() time.Time
}

// NewPostgresImageRepository creates an image repository that stores content through raw.
func NewPostgresImageRepository(db *sql.DB, raw RawImageEnsurer) *PostgresImageRepository {
	return &PostgresImageRepository{DB: db, raw: raw, now: time.Now}
}

const imageReadColumns = `
	img.id, img.revision, img.name, img.owner_id, img.raw_id, img.tags,
	img.time_taken, img.loc, img.info, img.created_on, img.modified_on,
	usr.display_name, raw.img_type`

// addVisibility restricts img rows to those owned by or shared with requesterID.
func addVisibility(qb *queryBuilder, requesterID int64) {
	qb.Add(`AND (img.owner_id = $? OR EXISTS (
		SELECT 1 FROM image_share shr WHERE shr.image_id = img.id AND shr.user_id = $?
	))`, requesterID, requesterID)
}

func scanImage(s rowScanner) (*models.Image, error) {
	var (
		img        models.Image
		tags       pq.StringArray
		modifiedOn sql.NullTime
	)
	err := s.Scan(&img.ID, &img.Revision, &img.Name, &img.OwnerID, &img.RawID, &tags,
		&img.Time, &img.Location, &img.Info, &img.CreatedOn, &modifiedOn,
		&img.OwnerName, &img.MimeType, &img.Payload)
	if err != nil {
		return nil, err
	}
	img.Tags = models.TagList(tags)
	if modifiedOn.Valid {
		img.ModifiedOn = &modifiedOn.Time
	}
	return &img, nil
}

func tagArray(tags models.TagList) pq.StringArray {
	if tags == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(tags)
}

// CreateImage stores the draft's content (deduplicated by digest) and inserts the image
// record in the same transaction. Tags are normalized before they are written.
func (r *PostgresImageRepository) CreateImage(ctx context.Context, draft *models.ImageDraft) (*models.Image, error) {
	img := &models.Image{
		Name:     draft.Name,
		Tags:     draft.Tags.Normalize(),
		Time:     draft.Time,
		Location: draft.Location,
		Info:     draft.Info,
		OwnerID:  draft.OwnerID,
	}

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		rawID, err := r.raw.EnsureRawImage(ctx, tx, draft.Content, draft.MimeType)
		if err != nil {
			return err
		}
		img.RawID = rawID

		err = tx.QueryRowContext(ctx, `
			INSERT INTO images (revision, name, owner_id, raw_id, tags, time_taken, loc, info, created_on)
			VALUES (0, $1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_on
		`, img.Name, img.OwnerID, img.RawID, tagArray(img.Tags), img.Time, img.Location, img.Info, r.now(),
		).Scan(&img.ID, &img.CreatedOn)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// UpdateImageInfo writes name, tags, time, location and info of img if img.Revision
// still matches the stored revision, and increments it. Owner and content never change.
func (r *PostgresImageRepository) UpdateImageInfo(ctx context.Context, img *models.Image) error {
	next := img.Revision + 1
	modified := r.now()
	tags := img.Tags.Normalize()

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT revision FROM images WHERE id = $1 AND revision = $2 FOR UPDATE`,
			img.ID, img.Revision,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrConcurrentUpdate
		}
		if err != nil {
			return fmt.Errorf("check image revision: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE images
			SET revision = $1, name = $2, tags = $3, time_taken = $4, loc = $5, info = $6, modified_on = $7
			WHERE id = $8
		`, next, img.Name, tagArray(tags), img.Time, img.Location, img.Info, modified, img.ID)
		if err != nil {
			return fmt.Errorf("update image: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	img.Revision = next
	img.Tags = tags
	img.ModifiedOn = &modified
	return nil
}

// DeleteImage removes the image record. Its raw content stays; share rows go with it.
func (r *PostgresImageRepository) DeleteImage(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// GetImage returns the image with id if requesterID owns it or it has been shared with
// them. The payload is the full content when full is set, the thumbnail otherwise.
// A missing image and an invisible one both yield models.ErrNotFound.
func (r *PostgresImageRepository) GetImage(ctx context.Context, id, requesterID int64, full bool) (*models.Image, error) {
	payload := "raw.thumbnail"
	if full {
		payload = "raw.raw_data"
	}

	var qb queryBuilder
	qb.Add(`SELECT ` + imageReadColumns + `, ` + payload)
	qb.Add(`FROM images img
		JOIN users usr ON usr.id = img.owner_id
		JOIN raw_images raw ON raw.id = img.raw_id`)
	qb.Add(`WHERE img.id = $?`, id)
	addVisibility(&qb, requesterID)

	img, err := scanImage(r.DB.QueryRowContext(ctx, qb.String(), qb.Args()...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// GetImageOwner returns the owner id of the image, or models.ErrNotFound.
func (r *PostgresImageRepository) GetImageOwner(ctx context.Context, id int64) (int64, error) {
	var ownerID int64
	err := r.DB.QueryRowContext(ctx, `SELECT owner_id FROM images WHERE id = $1`, id).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get image owner: %w", err)
	}
	return ownerID, nil
}

// SearchImageByTag returns the images visible to requesterID that carry at least one of
// tags, with thumbnails as payload. No match yields an empty slice.
func (r *PostgresImageRepository) SearchImageByTag(ctx context.Context, tags models.TagList, requesterID int64) ([]models.Image, error) {
	tags = tags.Normalize()
	if len(tags) == 0 {
		return nil, models.Invalid("tags", "at least one tag is required")
	}

	conds := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, tag := range tags {
		conds[i] = `$? = ANY (img.tags)`
		args[i] = tag
	}

	var qb queryBuilder
	qb.Add(`SELECT ` + imageReadColumns + `, raw.thumbnail`)
	qb.Add(`FROM images img
		JOIN users usr ON usr.id = img.owner_id
		JOIN raw_images raw ON raw.id = img.raw_id`)
	qb.Add(`WHERE (`+strings.Join(conds, ` OR `)+`)`, args...)
	addVisibility(&qb, requesterID)
	qb.Add(`ORDER BY img.id`)

	rows, err := r.DB.QueryContext(ctx, qb.String(), qb.Args()...)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	return images, nil
}
