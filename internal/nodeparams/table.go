package nodeparams

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/flowstate/internal/reconcile"
)

// Node is a persisted node parameter record: one node in one version.
type Node struct {
	ID int64
	Fixed
	Payload string
}

const nodeColumns = "id, model_id, graphic_id, code, type, name, status, actived, init_params"

// nodeTable binds node_params for one (model, version code) to the
// reconcile engine, keyed by graphic id.
//
// With mirror set, matched rows only receive name and type; status,
// actived and payload are written for new rows alone. This keeps per-version
// state intact while the node set and labels follow another version.
type nodeTable struct {
	model  string
	code   string
	mirror bool
}

var _ reconcile.Table[Packed, Node, string] = nodeTable{}

func (t nodeTable) Name() string { return "node_params" }

func (t nodeTable) Load(ctx context.Context, tx *sql.Tx) ([]Node, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM node_params WHERE model_id = ? AND code = ? ORDER BY id`,
		t.model, t.code)
	if err != nil {
		return nil, err
	}
	return scanNodes(rows)
}

func (t nodeTable) RowKey(n Node) string { return n.GraphicID }

func (t nodeTable) DocKey(p Packed) (string, error) {
	if p.Fixed.GraphicID == "" {
		return "", errors.New("graphic id is required")
	}
	return p.Fixed.GraphicID, nil
}

func (t nodeTable) New(graphicID string) Node {
	return Node{
		Fixed:   Fixed{GraphicID: graphicID, ModelID: t.model, Code: t.code, Actived: 1},
		Payload: "{}",
	}
}

// Project replaces the row from one packed document. When a batch repeats a
// graphic id the last document replaces the payload, status and actived as
// a whole; fields missing from it are not merged in from earlier ones.
func (t nodeTable) Project(n *Node, p Packed) error {
	n.Name = p.Fixed.Name
	n.Type = p.Fixed.Type
	if t.mirror && n.ID != 0 {
		return nil
	}
	n.Status = p.Fixed.Status
	n.Actived = p.Fixed.Actived
	n.Payload = p.Payload
	return nil
}

func (t nodeTable) Insert(ctx context.Context, tx *sql.Tx, n *Node) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO node_params (model_id, graphic_id, code, type, name, status, actived, init_params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ModelID, n.GraphicID, n.Code, n.Type, n.Name, n.Status, n.Actived, n.Payload)
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (t nodeTable) Update(ctx context.Context, tx *sql.Tx, n Node) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE node_params SET type = ?, name = ?, status = ?, actived = ?, init_params = ?
		WHERE id = ?`,
		n.Type, n.Name, n.Status, n.Actived, n.Payload, n.ID)
	return err
}

func (t nodeTable) Delete(ctx context.Context, tx *sql.Tx, nodes []Node) error {
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM node_params WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	defer rows.Close()
	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.ModelID, &n.GraphicID, &n.Code, &n.Type,
			&n.Name, &n.Status, &n.Actived, &n.Payload); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
