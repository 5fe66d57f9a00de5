package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository-level errors.
var (
	// ErrUnexpectedRowCount means a statement addressed to one row touched several.
	ErrUnexpectedRowCount = errors.New("unexpected number of affected rows")
	// ErrDuplicate means a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidReference means a foreign key rejected the write.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// Listing bounds applied when a filter leaves them unset or too large.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func listBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// mapWriteError translates constraint violations into repository errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		}
	}
	return err
}

// collectOne scans at most one row. No row yields nil, nil.
func collectOne[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) (*T, error) {
	defer rows.Close()

	var (
		result *T
		count  int
	)
	for rows.Next() {
		count++
		if count > 1 {
			continue
		}
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = item
	}
	if err := rows.Err(); err != nil {
		return nil, mapWriteError(err)
	}
	if count > 1 {
		return nil, fmt.Errorf("%w: expected 1, got %d", ErrUnexpectedRowCount, count)
	}
	return result, nil
}

// collectAll scans every row into a non-nil slice.
func collectAll[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	results := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// statement accumulates positional arguments for a dynamically built query.
type statement struct {
	sets  []string
	conds []string
	args  []any
}

// arg registers v and returns its placeholder.
func (s *statement) arg(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *statement) set(column string, v any) {
	s.sets = append(s.sets, column+" = "+s.arg(v))
}

func (s *statement) setExpr(expr string) {
	s.sets = append(s.sets, expr)
}

func (s *statement) where(format string, v any) {
	s.conds = append(s.conds, fmt.Sprintf(format, s.arg(v)))
}

func (s *statement) setClause() string {
	return strings.Join(s.sets, ", ")
}

func (s *statement) whereClause() string {
	if len(s.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(s.conds, " AND ")
}
