package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/flowstate/internal/metrics"
	"github.com/roach88/flowstate/internal/store"
)

// Options control a single reconciliation.
type Options struct {
	// RejectDuplicates turns a key repeated within one batch into a
	// CONSTRAINT_VIOLATION instead of merging the documents.
	RejectDuplicates bool

	// KeepStale skips the delete phase. Used when a caller mirrors one
	// document into a scope and must not prune the rest of it.
	KeepStale bool
}

// Summary counts the rows written by one reconciliation.
type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}

// Add returns the element-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Inserted: s.Inserted + o.Inserted,
		Updated:  s.Updated + o.Updated,
		Deleted:  s.Deleted + o.Deleted,
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("inserted=%d updated=%d deleted=%d", s.Inserted, s.Updated, s.Deleted)
}

// Table adapts one persisted dataset to the engine.
//
// D is the incoming document type, R the persisted row type and K the
// natural key. A Table value is bound to one scope: Load returns only the
// rows of that scope, and New creates rows that belong to it.
type Table[D any, R any, K comparable] interface {
	// Name labels logs and metrics (usually the SQL table name).
	Name() string

	// Load returns every persisted row in scope.
	Load(ctx context.Context, tx *sql.Tx) ([]R, error)

	RowKey(r R) K
	DocKey(d D) (K, error)

	// New returns an empty row carrying key k and the table scope.
	New(k K) R

	// Project copies the fields present in d onto r.
	Project(r *R, d D) error

	Insert(ctx context.Context, tx *sql.Tx, r *R) error
	Update(ctx context.Context, tx *sql.Tx, r R) error
	Delete(ctx context.Context, tx *sql.Tx, rows []R) error
}

// Run reconciles batch against t inside tx: load, match, insert new keys,
// update matched keys, then delete stale rows. It does not commit. Any
// returned error means tx must be rolled back.
//
// All inserts run first, in first-appearance order of their keys. Updates of
// matched rows follow, also in first-appearance order, and deletes come last
// in load order, so a fixed input always produces the same statement
// sequence.
func Run[D any, R any, K comparable](
	ctx context.Context,
	tx *sql.Tx,
	t Table[D, R, K],
	batch []D,
	opts Options,
) (Summary, error) {
	op := t.Name() + " reconcile"

	existing, err := t.Load(ctx, tx)
	if err != nil {
		return Summary{}, store.TransactionFailure(op, "load", err)
	}

	plan, err := Match(existing, t.RowKey, batch, t.DocKey, opts)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, g := range plan.New() {
		row := t.New(g.Key)
		if err := project(t, &row, g); err != nil {
			return Summary{}, err
		}
		if err := t.Insert(ctx, tx, &row); err != nil {
			return Summary{}, store.TransactionFailure(op, fmt.Sprintf("insert %v", g.Key), err)
		}
		sum.Inserted++
	}

	for _, g := range plan.Existing() {
		row := *g.Existing
		if err := project(t, &row, g); err != nil {
			return Summary{}, err
		}
		if err := t.Update(ctx, tx, row); err != nil {
			return Summary{}, store.TransactionFailure(op, fmt.Sprintf("update %v", g.Key), err)
		}
		sum.Updated++
	}

	if !opts.KeepStale && len(plan.Stale) > 0 {
		if err := t.Delete(ctx, tx, plan.Stale); err != nil {
			return Summary{}, store.TransactionFailure(op, "delete stale", err)
		}
		sum.Deleted = len(plan.Stale)
	}

	return sum, nil
}

func project[D any, R any, K comparable](t Table[D, R, K], row *R, g Group[D, R, K]) error {
	for i, d := range g.Docs {
		if err := t.Project(row, d); err != nil {
			return store.ConstraintViolation(t.Name()+" reconcile", "document %d: %v", g.Index+i, err)
		}
	}
	return nil
}

// Engine owns the shared collaborators of every reconciliation: the store,
// the logger, the metrics recorder and the duplicate-key policy.
type Engine struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
	opts    Options
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger overrides the store's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches a recorder. A nil recorder disables metrics.
func WithMetrics(r *metrics.Recorder) EngineOption {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithRejectDuplicates sets the duplicate-key policy.
//
// Default: false (documents sharing a key are projected in batch order and
// the last one wins).
func WithRejectDuplicates(reject bool) EngineOption {
	return func(e *Engine) {
		e.opts.RejectDuplicates = reject
	}
}

// NewEngine creates an Engine over s.
func NewEngine(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		logger: s.Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the engine's store.
func (e *Engine) Store() *store.Store { return e.store }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Options returns the engine-wide reconciliation options.
func (e *Engine) Options() Options { return e.opts }

// Observe logs and records the outcome of one reconciliation under name.
func (e *Engine) Observe(name string, sum Summary, err error, started time.Time) {
	elapsed := time.Since(started)
	e.metrics.ObserveRun(name, sum.Inserted, sum.Updated, sum.Deleted, err, elapsed)
	if err != nil {
		e.logger.Warn("reconcile failed",
			"table", name,
			"code", string(store.CodeOf(err)),
			"error", err)
		return
	}
	e.logger.Debug("reconciled",
		"table", name,
		"inserted", sum.Inserted,
		"updated", sum.Updated,
		"deleted", sum.Deleted,
		"elapsed", elapsed)
}

// Sync runs one reconciliation of batch against t in its own transaction.
// Either every change commits or none does.
func Sync[D any, R any, K comparable](ctx context.Context, e *Engine, t Table[D, R, K], batch []D) (Summary, error) {
	started := time.Now()
	var sum Summary
	err := e.store.WithTx(ctx, t.Name()+" sync", func(tx *sql.Tx) error {
		var err error
		sum, err = Run(ctx, tx, t, batch, e.opts)
		return err
	})
	if err != nil {
		sum = Summary{}
	}
	e.Observe(t.Name(), sum, err, started)
	return sum, err
}
