// Package db opens the PostgreSQL connection, applies the schema and runs housekeeping jobs.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    revision BIGINT NOT NULL DEFAULT 0,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    gender TEXT NOT NULL DEFAULT '',
    secret TEXT NOT NULL,
    dob DATE,
    created_on TIMESTAMPTZ NOT NULL,
    modified_on TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS raw_images (
    id TEXT PRIMARY KEY,
    img_type TEXT NOT NULL,
    raw_data BYTEA NOT NULL,
    thumbnail BYTEA NOT NULL,
    created_on TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    id BIGSERIAL PRIMARY KEY,
    revision BIGINT NOT NULL DEFAULT 0,
    name TEXT NOT NULL DEFAULT '',
    owner_id BIGINT NOT NULL REFERENCES users(id),
    raw_id TEXT NOT NULL REFERENCES raw_images(id),
    tags TEXT[] NOT NULL DEFAULT '{}',
    time_taken TEXT NOT NULL DEFAULT '',
    loc TEXT NOT NULL DEFAULT '',
    info TEXT NOT NULL DEFAULT '',
    created_on TIMESTAMPTZ NOT NULL,
    modified_on TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS images_owner_idx ON images (owner_id);
CREATE INDEX IF NOT EXISTS images_tags_idx ON images USING GIN (tags);

CREATE TABLE IF NOT EXISTS logins (
    token TEXT PRIMARY KEY,
    validity TIMESTAMPTZ NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS image_share (
    image_id BIGINT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS image_share_lookup_idx ON image_share (image_id, user_id);
`

// InitPostgres connects to dsn and applies the schema. The connection is retried with
// exponential backoff up to attempts times before giving up.
func InitPostgres(ctx context.Context, dsn string, attempts int, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := ping(ctx, db, attempts, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

func ping(ctx context.Context, db *sql.DB, attempts int, log *zap.Logger) error {
	boff := backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    10 * time.Second,
		Jitter: true,
	}

	attempts = max(attempts, 1)

	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		dur := boff.Duration()
		log.Warn("postgres not ready", zap.Error(err), zap.Duration("retrying after", dur))

		timer := time.NewTimer(dur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
