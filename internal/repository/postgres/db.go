package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// nextCounterValue increments the named counter and returns its previous value.
// The counter row stays locked until the surrounding transaction ends, so
// concurrent allocations are serialized and a rollback leaves no gap.
func nextCounterValue(ctx context.Context, q Querier, name string) (uint64, error) {
	var next int64
	err := q.QueryRowContext(ctx,
		`UPDATE ledger_counters SET next_value = next_value + 1 WHERE name = $1 RETURNING next_value - 1`,
		name,
	).Scan(&next)
	if err != nil {
		return 0, errors.Wrapf(err, "allocate %s", name)
	}
	return uint64(next), nil
}

// expectOneRow maps an UPDATE that touched nothing to notFound.
func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
