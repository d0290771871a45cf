package store

import (
	"context"
	"database/sql"
)

// WithTx runs fn inside one transaction. The transaction commits only if fn
// returns nil; any error from fn, or from begin/commit, rolls it back so no
// partial application is observable.
//
// Errors from fn are returned as-is (after TransactionFailure wrapping for
// plain driver errors); begin and commit failures are TRANSACTION_FAILURE.
func (s *Store) WithTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TransactionFailure(op, "begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		s.logger.Debug("transaction rolled back", "op", op, "error", err)
		return TransactionFailure(op, "statement failed", err)
	}

	if err := tx.Commit(); err != nil {
		return TransactionFailure(op, "commit", err)
	}
	return nil
}
