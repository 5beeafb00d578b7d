package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, so repository
// methods can run standalone or inside a caller-managed transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// isInvalidIDErr reports a 22P02 parameter cast failure. The id columns are
// UUID, so a value that cannot be cast can never match a row; callers treat
// it the same as not found rather than as a storage failure.
func isInvalidIDErr(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "22P02"
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}
