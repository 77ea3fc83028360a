package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/imagerepo/internal/models"
)

const userColumns = `id, revision, email, display_name, first_name, last_name, gender, secret, dob, created_on, modified_on`

// PostgresUserRepository implements user persistence with optimistic concurrency control.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB  *sql.DB
	now func() time.Time
}

// NewPostgresUserRepository creates a new PostgresUserRepository using the provided *sql.DB.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db, now: time.Now}
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var (
		u          models.User
		dob        sql.NullTime
		modifiedOn sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Revision, &u.Email, &u.DisplayName, &u.FirstName, &u.LastName,
		&u.Gender, &u.Secret, &dob, &u.CreatedOn, &modifiedOn)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		u.DOB = &dob.Time
	}
	if modifiedOn.Valid {
		u.ModifiedOn = &modifiedOn.Time
	}
	return &u, nil
}

// CreateUser inserts u with revision 0 and fills in the storage-assigned ID and CreatedOn.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (revision, email, display_name, first_name, last_name, gender, secret, dob, created_on)
		VALUES (0, $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_on
	`, u.Email, u.DisplayName, u.FirstName, u.LastName, u.Gender, u.Secret, u.DOB, r.now()).Scan(&u.ID, &u.CreatedOn)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.Revision = 0
	return nil
}

// UpdateUser writes every mutable field of u if u.Revision still matches the stored revision.
// The check and the write happen in one transaction holding a row lock; on a mismatch
// models.ErrConcurrentUpdate is returned and nothing is written. On success u.Revision
// is incremented.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, u *models.User) error {
	next := u.Revision + 1
	modified := r.now()

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT revision FROM users WHERE id = $1 AND revision = $2 FOR UPDATE`,
			u.ID, u.Revision,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrConcurrentUpdate
		}
		if err != nil {
			return fmt.Errorf("check user revision: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET revision = $1, email = $2, display_name = $3, first_name = $4, last_name = $5,
				gender = $6, secret = $7, dob = $8, modified_on = $9
			WHERE id = $10
		`, next, u.Email, u.DisplayName, u.FirstName, u.LastName, u.Gender, u.Secret, u.DOB, modified, u.ID)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.Revision = next
	u.ModifiedOn = &modified
	return nil
}

// DeleteUser removes a user together with their shares, images and sessions in one transaction.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id int64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM image_share WHERE user_id = $1 OR image_id IN (SELECT id FROM images WHERE owner_id = $1)`,
			id,
		); err != nil {
			return fmt.Errorf("delete user shares: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE owner_id = $1`, id); err != nil {
			return fmt.Errorf("delete user images: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM logins WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// GetUser returns the user with the given id, or models.ErrNotFound.
func (r *PostgresUserRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SearchUserByEmail returns the users registered with email. No match yields an empty slice.
func (r *PostgresUserRepository) SearchUserByEmail(ctx context.Context, email string) ([]models.User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY id`, email)
}

// SearchUserByName matches a single name against first or last name, or both names
// together when both are given. At least one of first and last must be non-nil.
func (r *PostgresUserRepository) SearchUserByName(ctx context.Context, first, last *string) ([]models.User, error) {
	var qb queryBuilder
	qb.Add(`SELECT ` + userColumns + ` FROM users`)
	switch {
	case first != nil && last != nil:
		qb.Add(`WHERE first_name = $? AND last_name = $?`, *first, *last)
	case first != nil:
		qb.Add(`WHERE first_name = $? OR last_name = $?`, *first, *first)
	case last != nil:
		qb.Add(`WHERE first_name = $? OR last_name = $?`, *last, *last)
	default:
		return nil, models.Invalid("name", "first or last name is required")
	}
	qb.Add(`ORDER BY id`)

	return r.queryUsers(ctx, qb.String(), qb.Args()...)
}

func (r *PostgresUserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}
