package physprop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/flowstate/internal/reconcile"
)

// entity adapts one id-keyed metadata table to the reconcile engine. The
// natural key is the caller-supplied id itself.
type entity[D any, R any] struct {
	table   string
	columns []string

	docID   func(D) *int64
	newRow  func(id int64) R
	rowID   func(R) int64
	project func(*R, D)

	// fields returns pointers to r's id and to its non-id columns, in
	// columns order.
	fields func(r *R) (*int64, []any)
}

func (e entity[D, R]) Name() string { return e.table }

func (e entity[D, R]) Load(ctx context.Context, tx *sql.Tx) ([]R, error) {
	rows, err := tx.QueryContext(ctx, e.selectSQL()+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	return e.scan(rows)
}

func (e entity[D, R]) RowKey(r R) int64 { return e.rowID(r) }

func (e entity[D, R]) DocKey(d D) (int64, error) {
	id := e.docID(d)
	if id == nil {
		return 0, errors.New("id is required")
	}
	return *id, nil
}

func (e entity[D, R]) New(id int64) R { return e.newRow(id) }

func (e entity[D, R]) Project(r *R, d D) error {
	e.project(r, d)
	return nil
}

func (e entity[D, R]) Insert(ctx context.Context, tx *sql.Tx, r *R) error {
	id, vals := e.fields(r)
	args := append([]any{*id}, deref(vals)...)
	query := fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES (%s)`,
		e.table, strings.Join(e.columns, ", "), placeholders(len(args)))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (e entity[D, R]) Update(ctx context.Context, tx *sql.Tx, r R) error {
	id, vals := e.fields(&r)
	sets := make([]string, len(e.columns))
	for i, c := range e.columns {
		sets[i] = c + " = ?"
	}
	args := append(deref(vals), *id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, e.table, strings.Join(sets, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (e entity[D, R]) Delete(ctx context.Context, tx *sql.Tx, rows []R) error {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, e.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, e.rowID(r)); err != nil {
			return err
		}
	}
	return nil
}

func (e entity[D, R]) selectSQL() string {
	return fmt.Sprintf(`SELECT id, %s FROM %s`, strings.Join(e.columns, ", "), e.table)
}

func (e entity[D, R]) scan(rows *sql.Rows) ([]R, error) {
	defer rows.Close()
	var out []R
	for rows.Next() {
		var r R
		id, vals := e.fields(&r)
		if err := rows.Scan(append([]any{id}, vals...)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", e.table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", e.table, err)
	}
	return out, nil
}

// deref turns column pointers into statement arguments.
func deref(ptrs []any) []any {
	out := make([]any, len(ptrs))
	for i, p := range ptrs {
		switch v := p.(type) {
		case *string:
			out[i] = *v
		case *int64:
			out[i] = *v
		default:
			panic(fmt.Sprintf("physprop: unsupported column type %T", p))
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ reconcile.Table[BasePropertyDoc, BaseProperty, int64] = entity[BasePropertyDoc, BaseProperty]{}
