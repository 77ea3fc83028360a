package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/imagerepo/internal/models"
)

// fakeThumbnailer records calls and returns a fixed result.
type fakeThumbnailer struct {
	calls  int
	result []byte
	err    error
}

func (f *fakeThumbnailer) Thumbnail(data []byte, mimeType string) ([]byte, error) {
	f.calls++
	return f.result, f.err
}

var (
	lockSQL     = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`)
	checkRawSQL = regexp.QuoteMeta(`SELECT id FROM raw_images WHERE id = $1 FOR UPDATE`)
	insertRaw   = regexp.QuoteMeta(`INSERT INTO raw_images (id, img_type, raw_data, thumbnail, created_on)`)
)

func TestDigest_Deterministic(t *testing.T) {
	a := Digest([]byte("payload"))
	assert.Equal(t, a, Digest([]byte("payload")))
	assert.NotEqual(t, a, Digest([]byte("payload2")))
	assert.Len(t, a, 64)
}

func TestEnsureRawImage_InsertsWhenAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	thumbs := &fakeThumbnailer{result: []byte("thumb")}
	repo := NewPostgresRawImageRepository(db, thumbs)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	data := []byte("B1")
	id := Digest(data)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(checkRawSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(insertRaw).
		WithArgs(id, "image/png", data, []byte("thumb"), fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := repo.EnsureRawImage(context.Background(), tx, data, "image/png")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, id, got)
	assert.Equal(t, 1, thumbs.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRawImage_ReusesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	thumbs := &fakeThumbnailer{}
	repo := NewPostgresRawImageRepository(db, thumbs)
	data := []byte("B1")
	id := Digest(data)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(checkRawSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := repo.EnsureRawImage(context.Background(), tx, data, "image/png")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, id, got)
	assert.Zero(t, thumbs.calls, "thumbnail must not be recomputed for existing content")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRawImage_ThumbnailError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	thumbErr := models.Invalid("image", "unsupported or corrupt image data")
	repo := NewPostgresRawImageRepository(db, &fakeThumbnailer{err: thumbErr})
	data := []byte("junk")
	id := Digest(data)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(checkRawSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.EnsureRawImage(context.Background(), tx, data, "image/png")
	require.NoError(t, tx.Rollback())

	assert.True(t, models.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRaw(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRawImageRepository(db, &fakeThumbnailer{})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT img_type, raw_data FROM raw_images WHERE id = $1`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"img_type", "raw_data"}).AddRow("image/png", []byte("full")))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT img_type, thumbnail FROM raw_images WHERE id = $1`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"img_type", "thumbnail"}).AddRow("image/png", []byte("small")))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT img_type, thumbnail FROM raw_images WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"img_type", "thumbnail"}))

	full, err := repo.FetchRaw(context.Background(), "abc", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("full"), full.Payload)

	thumb, err := repo.FetchRaw(context.Background(), "abc", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), thumb.Payload)
	assert.Equal(t, "image/png", thumb.MimeType)

	_, err = repo.FetchRaw(context.Background(), "missing", false)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
