package binary

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// Syncer reconciles and reads interaction-parameter families.
type Syncer struct {
	engine *reconcile.Engine
}

// NewSyncer creates a Syncer that writes through e.
func NewSyncer(e *reconcile.Engine) *Syncer {
	return &Syncer{engine: e}
}

// Sync makes the rows of selector's family in scope equal to docs.
//
// Rows whose component pair appears in docs are updated in place, new pairs
// are inserted, and every other row in scope is deleted. An empty docs
// deletes the whole scope. An unknown selector is UNKNOWN_VARIANT and
// touches nothing.
func (s *Syncer) Sync(ctx context.Context, selector, scope string, docs []Doc) (reconcile.Summary, error) {
	fam, err := ParseFamily(selector)
	if err != nil {
		return reconcile.Summary{}, err
	}
	return reconcile.Sync[Doc, Row, Key](ctx, s.engine, table{fam: fam, scope: scope}, docs)
}

// ListByScope returns every row of the family in scope, in insertion order.
func (s *Syncer) ListByScope(ctx context.Context, selector, scope string) ([]Row, error) {
	fam, err := ParseFamily(selector)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, fam, ` WHERE fluid_package_id = ? ORDER BY id`, scope)
}

// ListByIDs returns the rows of the family with the given row ids.
func (s *Syncer) ListByIDs(ctx context.Context, selector string, ids []int64) ([]Row, error) {
	fam, err := ParseFamily(selector)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.query(ctx, fam, fmt.Sprintf(` WHERE id IN (%s) ORDER BY id`, placeholders(len(ids))), args...)
}

// ListByComponents returns the rows in scope whose components are both in
// names. Used to fetch the parameters relevant to a component set.
func (s *Syncer) ListByComponents(ctx context.Context, selector, scope string, names []string) ([]Row, error) {
	fam, err := ParseFamily(selector)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	args := []any{scope}
	for range 2 {
		for _, n := range names {
			args = append(args, n)
		}
	}
	ph := placeholders(len(names))
	where := fmt.Sprintf(` WHERE fluid_package_id = ? AND component_i IN (%s) AND component_j IN (%s) ORDER BY id`, ph, ph)
	return s.query(ctx, fam, where, args...)
}

// DeleteScope removes the rows of scope from every family in one
// transaction and returns the number of rows deleted.
func (s *Syncer) DeleteScope(ctx context.Context, scope string) (int, error) {
	started := time.Now()
	var total int
	err := s.engine.Store().WithTx(ctx, "binary delete scope", func(tx *sql.Tx) error {
		for _, f := range families {
			res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE fluid_package_id = ?`, f.Table), scope)
			if err != nil {
				return store.TransactionFailure("binary delete scope", "delete "+f.Table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += int(n)
		}
		return nil
	})
	if err != nil {
		total = 0
	}
	s.engine.Observe("binary_all", reconcile.Summary{Deleted: total}, err, started)
	return total, err
}

func (s *Syncer) query(ctx context.Context, fam Family, where string, args ...any) ([]Row, error) {
	rows, err := s.engine.Store().Query(ctx, selectSQL(fam)+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", fam.Table, err)
	}
	return scanRows(rows, fam.Variant)
}
