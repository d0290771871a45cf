package binary

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/flowstate/internal/reconcile"
)

const baseColumns = "id, fluid_package_id, component_i_id, component_i, component_j_id, component_j"

// deleteChunk bounds the number of ids per DELETE statement.
const deleteChunk = 500

// table binds one family and one fluid-package scope to the reconcile engine.
type table struct {
	fam   Family
	scope string
}

var _ reconcile.Table[Doc, Row, Key] = table{}

func (t table) Name() string { return t.fam.Table }

func (t table) Load(ctx context.Context, tx *sql.Tx) ([]Row, error) {
	rows, err := tx.QueryContext(ctx,
		selectSQL(t.fam)+` WHERE fluid_package_id = ? ORDER BY id`, t.scope)
	if err != nil {
		return nil, err
	}
	return scanRows(rows, t.fam.Variant)
}

func (t table) RowKey(r Row) Key { return r.Key() }

func (t table) DocKey(d Doc) (Key, error) { return docKey(d) }

func (t table) New(k Key) Row {
	return Row{FluidPackageID: t.scope, ComponentIID: k.I, ComponentJID: k.J}
}

func (t table) Project(r *Row, d Doc) error { return Project(t.fam.Variant, r, d) }

func (t table) Insert(ctx context.Context, tx *sql.Tx, r *Row) error {
	cols := t.fam.Variant.Columns()
	args := []any{r.FluidPackageID, r.ComponentIID, r.ComponentI, r.ComponentJID, r.ComponentJ}
	for _, p := range r.values(t.fam.Variant) {
		args = append(args, *p)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (fluid_package_id, component_i_id, component_i, component_j_id, component_j, %s) VALUES (%s)`,
		t.fam.Table, strings.Join(cols, ", "), placeholders(len(args)))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (t table) Update(ctx context.Context, tx *sql.Tx, r Row) error {
	cols := t.fam.Variant.Columns()
	sets := []string{"component_i = ?", "component_j = ?"}
	args := []any{r.ComponentI, r.ComponentJ}
	for i, p := range r.values(t.fam.Variant) {
		sets = append(sets, cols[i]+" = ?")
		args = append(args, *p)
	}
	args = append(args, r.ID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, t.fam.Table, strings.Join(sets, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (t table) Delete(ctx context.Context, tx *sql.Tx, rows []Row) error {
	for start := 0; start < len(rows); start += deleteChunk {
		end := min(start+deleteChunk, len(rows))
		args := make([]any, 0, end-start)
		for _, r := range rows[start:end] {
			args = append(args, r.ID)
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, t.fam.Table, placeholders(len(args)))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func selectSQL(f Family) string {
	return fmt.Sprintf(`SELECT %s, %s FROM %s`, baseColumns, strings.Join(f.Variant.Columns(), ", "), f.Table)
}

func scanRows(rows *sql.Rows, v Variant) ([]Row, error) {
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		dest := []any{&r.ID, &r.FluidPackageID, &r.ComponentIID, &r.ComponentI, &r.ComponentJID, &r.ComponentJ}
		for _, p := range r.values(v) {
			dest = append(dest, p)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
