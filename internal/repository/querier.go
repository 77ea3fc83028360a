// Package repository provides PostgreSQL persistence for users, sessions, images,
// raw image content and shares.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so helpers can run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction. The transaction is rolled back unless fn
// returns nil and the commit succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// queryBuilder assembles SQL from chunks. Every `$?` in a chunk is replaced by the
// next positional parameter number.
//
//	qb.Add("WHERE a = $? AND b = $?", 1, 2)  // WHERE a = $1 AND b = $2
type queryBuilder struct {
	sql  strings.Builder
	args []any
}

func (qb *queryBuilder) Add(sql string, args ...any) {
	numPlaceholders := strings.Count(sql, "$?")
	if numPlaceholders != len(args) {
		panic(fmt.Errorf("cannot add chunk to query; expected %d arguments but got %d", numPlaceholders, len(args)))
	}

	for _, arg := range args {
		sql = strings.Replace(sql, "$?", fmt.Sprintf("$%d", len(qb.args)+1), 1)
		qb.args = append(qb.args, arg)
	}

	qb.sql.WriteString(sql)
	qb.sql.WriteString("\n")
}

func (qb *queryBuilder) String() string {
	return qb.sql.String()
}

func (qb *queryBuilder) Args() []any {
	return qb.args
}
