package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isMalformedID reports postgres rejecting a value that cannot be cast to the column type,
// typically a non-UUID path id. No row can match such a value.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

// expectAffected maps a zero-row write to sql.ErrNoRows.
func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// getOne scans a single row into a T. A missing row or a malformed id yields a bare
// sql.ErrNoRows so callers can map it to NotFound.
func getOne[T any](ctx context.Context, db sqlx.QueryerContext, op, query string, args ...interface{}) (*T, error) {
	var dest T
	if err := sqlx.GetContext(ctx, db, &dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &dest, nil
}
