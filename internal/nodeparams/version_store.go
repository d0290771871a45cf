package nodeparams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// DefaultCode is the version code read when a lookup names none.
const DefaultCode = "Normal"

// Version is one status version of a model.
type Version struct {
	ID       string    `json:"id"`
	ModelID  string    `json:"modelId"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	UpdateAt time.Time `json:"updateAt"`
}

// IDGenerator produces version identifiers.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs
// (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 version ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ActiveChange sets the actived flag of one node.
type ActiveChange struct {
	GraphicID string `json:"id"`
	Type      string `json:"type"`
	Actived   int    `json:"actived"`
}

// VersionStore keeps node parameters for every status version of a model.
//
// INVARIANT: after any successful write, every version of a model holds the
// same set of graphic ids with the same name and type. Payload, status and
// actived may differ per version.
type VersionStore struct {
	engine      *reconcile.Engine
	logger      *slog.Logger
	ids         IDGenerator
	now         func() time.Time
	defaultCode string
}

// Option configures a VersionStore.
type Option func(*VersionStore)

// WithIDGenerator overrides the version id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *VersionStore) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock overrides the clock used for update_at.
func WithClock(now func() time.Time) Option {
	return func(s *VersionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultCode overrides DefaultCode for lookups that name no version.
func WithDefaultCode(code string) Option {
	return func(s *VersionStore) {
		if code != "" {
			s.defaultCode = code
		}
	}
}

// NewVersionStore creates a VersionStore writing through e.
func NewVersionStore(e *reconcile.Engine, opts ...Option) *VersionStore {
	s := &VersionStore{
		engine:      e,
		logger:      e.Logger(),
		ids:         UUIDv7Generator{},
		now:         time.Now,
		defaultCode: DefaultCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateVersion adds version code to model. The new version receives a copy
// of every node of copyFrom, or of the most recently updated version when
// copyFrom is empty. A model's first version starts empty.
func (s *VersionStore) CreateVersion(ctx context.Context, model, code, name, copyFrom string) (Version, error) {
	const op = "version create"
	if code == "" {
		return Version{}, store.ConstraintViolation(op, "version code is required")
	}

	v := Version{ID: s.ids.Generate(), ModelID: model, Code: code, Name: name, UpdateAt: s.now()}
	var copied int64
	err := s.engine.Store().WithTx(ctx, op, func(tx *sql.Tx) error {
		codes, err := versionCodes(ctx, tx, model)
		if err != nil {
			return err
		}
		for _, c := range codes {
			if c == code {
				return store.ConstraintViolation(op, "version %s already exists in model %s", code, model)
			}
		}

		source := copyFrom
		if source == "" {
			latest, err := latestCode(ctx, tx, model)
			if err != nil {
				return err
			}
			source = latest
		} else if !contains(codes, source) {
			return store.NotFound(op, "version %s not found in model %s", source, model)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_version (id, model_id, code, name, update_at) VALUES (?, ?, ?, ?, ?)`,
			v.ID, v.ModelID, v.Code, v.Name, v.UpdateAt.UnixMilli()); err != nil {
			return err
		}

		if source == "" {
			return nil
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO node_params (model_id, graphic_id, code, type, name, status, actived, init_params)
			SELECT model_id, graphic_id, ?, type, name, status, actived, init_params
			FROM node_params WHERE model_id = ? AND code = ? ORDER BY id`,
			code, model, source)
		if err != nil {
			return err
		}
		copied, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return Version{}, err
	}

	s.logger.Debug("version created", "model", model, "code", code, "nodes", copied)
	v.UpdateAt = time.UnixMilli(v.UpdateAt.UnixMilli())
	return v, nil
}

// DeleteVersions removes the given versions of model and all their nodes.
// Unknown codes are ignored. Returns the number of versions deleted.
func (s *VersionStore) DeleteVersions(ctx context.Context, model string, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.engine.Store().WithTx(ctx, "version delete", func(tx *sql.Tx) error {
		args := codeArgs(model, codes)
		in := placeholders(len(codes))
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM node_params WHERE model_id = ? AND code IN (`+in+`)`, args...); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM status_version WHERE model_id = ? AND code IN (`+in+`)`, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return int(deleted), err
}

// ListVersions returns the versions of model, most recently updated first.
func (s *VersionStore) ListVersions(ctx context.Context, model string) ([]Version, error) {
	rows, err := s.engine.Store().Query(ctx, `
		SELECT id, model_id, code, name, update_at FROM status_version
		WHERE model_id = ? ORDER BY update_at DESC, code`, model)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		var at int64
		if err := rows.Scan(&v.ID, &v.ModelID, &v.Code, &v.Name, &at); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.UpdateAt = time.UnixMilli(at)
		out = append(out, v)
	}
	return out, rows.Err()
}

// LatestVersion returns the most recently updated version of model.
func (s *VersionStore) LatestVersion(ctx context.Context, model string) (Version, error) {
	vs, err := s.ListVersions(ctx, model)
	if err != nil {
		return Version{}, err
	}
	if len(vs) == 0 {
		return Version{}, store.NotFound("version latest", "model %s has no versions", model)
	}
	return vs[0], nil
}

// RenameVersion changes the display name of a version.
func (s *VersionStore) RenameVersion(ctx context.Context, model, code, name string) error {
	res, err := s.engine.Store().DB().ExecContext(ctx,
		`UPDATE status_version SET name = ? WHERE model_id = ? AND code = ?`, name, model, code)
	if err != nil {
		return store.TransactionFailure("version rename", "update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFound("version rename", "version %s not found in model %s", code, model)
	}
	return nil
}

// AddNodeToAllVersions upserts one node into every version of model in a
// single transaction. A model with no versions is NOT_FOUND.
func (s *VersionStore) AddNodeToAllVersions(ctx context.Context, model string, doc Document) (reconcile.Summary, error) {
	const op = "node add"
	p, err := s.pack(model, doc)
	if err != nil {
		return reconcile.Summary{}, err
	}

	return s.write(ctx, op, func(tx *sql.Tx) (reconcile.Summary, error) {
		codes, err := versionCodes(ctx, tx, model)
		if err != nil {
			return reconcile.Summary{}, err
		}
		if len(codes) == 0 {
			return reconcile.Summary{}, store.NotFound(op, "model %s has no versions", model)
		}

		var total reconcile.Summary
		for _, code := range codes {
			sum, err := s.run(ctx, tx, nodeTable{model: model, code: code}, []Packed{p}, true)
			if err != nil {
				return reconcile.Summary{}, err
			}
			total = total.Add(sum)
		}
		return total, s.touch(ctx, tx, model, codes)
	})
}

// SyncBatchForVersion makes the nodes of version code equal to docs.
//
// The other versions of the model follow in the same transaction so the
// node set stays identical everywhere: nodes new to code are seeded into
// them with the same payload, matched nodes get the new name and type, and
// nodes absent from docs are removed. Their payloads are otherwise left
// alone. An unknown code is NOT_FOUND.
func (s *VersionStore) SyncBatchForVersion(ctx context.Context, model, code string, docs []Document) (reconcile.Summary, error) {
	const op = "node sync"
	batch := make([]Packed, 0, len(docs))
	for i, d := range docs {
		p, err := s.pack(model, d)
		if err != nil {
			return reconcile.Summary{}, fmt.Errorf("document %d: %w", i, err)
		}
		batch = append(batch, p)
	}

	return s.write(ctx, op, func(tx *sql.Tx) (reconcile.Summary, error) {
		codes, err := versionCodes(ctx, tx, model)
		if err != nil {
			return reconcile.Summary{}, err
		}
		if !contains(codes, code) {
			return reconcile.Summary{}, store.NotFound(op, "version %s not found in model %s", code, model)
		}

		total, err := s.run(ctx, tx, nodeTable{model: model, code: code}, batch, false)
		if err != nil {
			return reconcile.Summary{}, err
		}
		for _, other := range codes {
			if other == code {
				continue
			}
			sum, err := s.run(ctx, tx, nodeTable{model: model, code: other, mirror: true}, batch, false)
			if err != nil {
				return reconcile.Summary{}, err
			}
			total = total.Add(sum)
		}
		return total, s.touch(ctx, tx, model, []string{code})
	})
}

// PropagateUpdate mirrors one node edit into every version of model,
// source included, without removing any other node. An unknown source
// version is NOT_FOUND.
func (s *VersionStore) PropagateUpdate(ctx context.Context, model, sourceCode string, doc Document) (reconcile.Summary, error) {
	const op = "node propagate"
	p, err := s.pack(model, doc)
	if err != nil {
		return reconcile.Summary{}, err
	}

	return s.write(ctx, op, func(tx *sql.Tx) (reconcile.Summary, error) {
		codes, err := versionCodes(ctx, tx, model)
		if err != nil {
			return reconcile.Summary{}, err
		}
		if !contains(codes, sourceCode) {
			return reconcile.Summary{}, store.NotFound(op, "version %s not found in model %s", sourceCode, model)
		}

		var total reconcile.Summary
		for _, code := range codes {
			sum, err := s.run(ctx, tx, nodeTable{model: model, code: code}, []Packed{p}, true)
			if err != nil {
				return reconcile.Summary{}, err
			}
			total = total.Add(sum)
		}
		return total, s.touch(ctx, tx, model, codes)
	})
}

// RenameNode renames a node in every version. Returns the rows changed.
func (s *VersionStore) RenameNode(ctx context.Context, model, graphicID, name string) (int, error) {
	return s.execAll(ctx, "node rename", graphicID,
		`UPDATE node_params SET name = ? WHERE model_id = ? AND graphic_id = ?`, name, model, graphicID)
}

// DeleteNode removes a node from every version. Returns the rows deleted.
func (s *VersionStore) DeleteNode(ctx context.Context, model, graphicID string) (int, error) {
	return s.execAll(ctx, "node delete", graphicID,
		`DELETE FROM node_params WHERE model_id = ? AND graphic_id = ?`, model, graphicID)
}

// SetActive applies actived flags to the listed nodes in the listed
// versions, in one transaction. A change matches on graphic id and type.
func (s *VersionStore) SetActive(ctx context.Context, model string, codes []string, changes []ActiveChange) error {
	if len(codes) == 0 || len(changes) == 0 {
		return nil
	}
	query := `UPDATE node_params SET actived = ?
		WHERE model_id = ? AND graphic_id = ? AND type = ? AND code IN (` + placeholders(len(codes)) + `)`
	return s.engine.Store().WithTx(ctx, "node set active", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range changes {
			args := []any{c.Actived, model, c.GraphicID, c.Type}
			for _, code := range codes {
				args = append(args, code)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetNode returns one node of one version. An empty code means the default
// version.
func (s *VersionStore) GetNode(ctx context.Context, model, graphicID, code string) (Document, error) {
	docs, err := s.ListNodesByIDs(ctx, model, []string{graphicID}, code)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.NotFound("node get", "node %s not found in version %s", graphicID, s.codeOrDefault(code))
	}
	return docs[0], nil
}

// GetNodeAllVersions returns the node from every version, ordered by code.
func (s *VersionStore) GetNodeAllVersions(ctx context.Context, model, graphicID string) ([]Document, error) {
	docs, err := s.queryDocs(ctx,
		`WHERE model_id = ? AND graphic_id = ? ORDER BY code`, model, graphicID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.NotFound("node get", "node %s not found in model %s", graphicID, model)
	}
	return docs, nil
}

// ListVersionNodes returns every node of a version. An unknown version is
// NOT_FOUND.
func (s *VersionStore) ListVersionNodes(ctx context.Context, model, code string) ([]Document, error) {
	var exists int
	err := s.engine.Store().DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status_version WHERE model_id = ? AND code = ?`, model, code).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return nil, store.NotFound("node list", "version %s not found in model %s", code, model)
	}
	return s.queryDocs(ctx, `WHERE model_id = ? AND code = ? ORDER BY id`, model, code)
}

// ListNodesByIDs returns the listed nodes of one version. An empty code
// means the default version.
func (s *VersionStore) ListNodesByIDs(ctx context.Context, model string, graphicIDs []string, code string) ([]Document, error) {
	if len(graphicIDs) == 0 {
		return nil, nil
	}
	args := []any{model, s.codeOrDefault(code)}
	for _, id := range graphicIDs {
		args = append(args, id)
	}
	return s.queryDocs(ctx,
		`WHERE model_id = ? AND code = ? AND graphic_id IN (`+placeholders(len(graphicIDs))+`) ORDER BY id`,
		args...)
}

// ListNodesByType returns the nodes of one type in one version.
func (s *VersionStore) ListNodesByType(ctx context.Context, model, code, nodeType string) ([]Document, error) {
	return s.queryDocs(ctx, `WHERE model_id = ? AND code = ? AND type = ? ORDER BY id`,
		model, s.codeOrDefault(code), nodeType)
}

// VerifyNodeSets checks that every version of model holds the same graphic
// ids with the same name and type.
func (s *VersionStore) VerifyNodeSets(ctx context.Context, model string) error {
	rows, err := s.engine.Store().Query(ctx, `
		SELECT v.code, n.graphic_id, n.name, n.type
		FROM status_version v
		LEFT JOIN node_params n ON n.model_id = v.model_id AND n.code = v.code
		WHERE v.model_id = ?
		ORDER BY v.code, n.graphic_id`, model)
	if err != nil {
		return fmt.Errorf("verify node sets: %w", err)
	}
	defer rows.Close()

	sets := map[string]map[string]string{}
	var order []string
	for rows.Next() {
		var code string
		var gid, nodeName, nodeType sql.NullString
		if err := rows.Scan(&code, &gid, &nodeName, &nodeType); err != nil {
			return fmt.Errorf("verify node sets: %w", err)
		}
		if _, ok := sets[code]; !ok {
			sets[code] = map[string]string{}
			order = append(order, code)
		}
		if gid.Valid {
			sets[code][gid.String] = nodeName.String + "\x00" + nodeType.String
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("verify node sets: %w", err)
	}

	if len(order) < 2 {
		return nil
	}
	ref := sets[order[0]]
	for _, code := range order[1:] {
		got := sets[code]
		if len(got) != len(ref) {
			return store.ConstraintViolation("verify node sets",
				"version %s has %d nodes, version %s has %d", code, len(got), order[0], len(ref))
		}
		for gid, label := range ref {
			if got[gid] != label {
				return store.ConstraintViolation("verify node sets",
					"node %s differs between versions %s and %s", gid, order[0], code)
			}
		}
	}
	return nil
}

func (s *VersionStore) pack(model string, doc Document) (Packed, error) {
	p, err := Pack(doc)
	if err != nil {
		return Packed{}, err
	}
	p.Fixed.ModelID = model
	return p, nil
}

func (s *VersionStore) run(ctx context.Context, tx *sql.Tx, t nodeTable, batch []Packed, keepStale bool) (reconcile.Summary, error) {
	opts := s.engine.Options()
	opts.KeepStale = keepStale
	return reconcile.Run[Packed, Node, string](ctx, tx, t, batch, opts)
}

// write runs fn in one transaction and records the outcome under
// node_params.
func (s *VersionStore) write(ctx context.Context, op string, fn func(tx *sql.Tx) (reconcile.Summary, error)) (reconcile.Summary, error) {
	started := time.Now()
	var sum reconcile.Summary
	err := s.engine.Store().WithTx(ctx, op, func(tx *sql.Tx) error {
		var err error
		sum, err = fn(tx)
		return err
	})
	if err != nil {
		sum = reconcile.Summary{}
	}
	s.engine.Observe("node_params", sum, err, started)
	return sum, err
}

func (s *VersionStore) execAll(ctx context.Context, op, graphicID, query string, args ...any) (int, error) {
	res, err := s.engine.Store().DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.TransactionFailure(op, "exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.TransactionFailure(op, "rows affected", err)
	}
	if n == 0 {
		return 0, store.NotFound(op, "node %s not found", graphicID)
	}
	return int(n), nil
}

func (s *VersionStore) touch(ctx context.Context, tx *sql.Tx, model string, codes []string) error {
	args := append([]any{s.now().UnixMilli()}, codeArgs(model, codes)...)
	_, err := tx.ExecContext(ctx,
		`UPDATE status_version SET update_at = ? WHERE model_id = ? AND code IN (`+placeholders(len(codes))+`)`,
		args...)
	return err
}

func (s *VersionStore) queryDocs(ctx context.Context, where string, args ...any) ([]Document, error) {
	rows, err := s.engine.Store().Query(ctx, `SELECT `+nodeColumns+` FROM node_params `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}

	docs := make([]Document, 0, len(nodes))
	for _, n := range nodes {
		doc, err := Unpack(n.Fixed, n.Payload)
		if err != nil {
			s.logger.Warn("ignoring node payload", "model", n.ModelID, "code", n.Code, "error", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *VersionStore) codeOrDefault(code string) string {
	if code == "" {
		return s.defaultCode
	}
	return code
}

func versionCodes(ctx context.Context, tx *sql.Tx, model string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT code FROM status_version WHERE model_id = ? ORDER BY code`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func latestCode(ctx context.Context, tx *sql.Tx, model string) (string, error) {
	var code string
	err := tx.QueryRowContext(ctx,
		`SELECT code FROM status_version WHERE model_id = ? ORDER BY update_at DESC, code LIMIT 1`,
		model).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

func codeArgs(model string, codes []string) []any {
	args := make([]any, 0, len(codes)+1)
	args = append(args, model)
	for _, c := range codes {
		args = append(args, c)
	}
	return args
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
