// Package physprop reconciles the physical-property metadata library: base
// properties, calculation functions and the relations between them.
//
// Unlike interaction parameters these tables have no scope and no composite
// key; rows are matched on the id supplied by the caller.
package physprop

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/text/cases"

	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
)

// Kind selects one metadata table.
type Kind string

const (
	KindBaseProperty Kind = "basePhysical"
	KindFunction     Kind = "function"
	KindRelation     Kind = "relation"
)

// Kinds lists the supported kinds.
func Kinds() []Kind {
	return []Kind{KindBaseProperty, KindFunction, KindRelation}
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	fold := cases.Fold()
	want := fold.String(s)
	for _, k := range Kinds() {
		if want == fold.String(string(k)) {
			return k, nil
		}
	}
	return "", store.UnknownVariant("physprop", s)
}

// Syncer reconciles and reads metadata tables.
type Syncer struct {
	engine *reconcile.Engine
}

// NewSyncer creates a Syncer that writes through e.
func NewSyncer(e *reconcile.Engine) *Syncer {
	return &Syncer{engine: e}
}

// SyncBaseProperties makes pp_base_property equal to docs.
func (s *Syncer) SyncBaseProperties(ctx context.Context, docs []BasePropertyDoc) (reconcile.Summary, error) {
	return reconcile.Sync[BasePropertyDoc, BaseProperty, int64](ctx, s.engine, baseProperties, docs)
}

// SyncFunctions makes pp_calc_function equal to docs.
func (s *Syncer) SyncFunctions(ctx context.Context, docs []CalcFunctionDoc) (reconcile.Summary, error) {
	return reconcile.Sync[CalcFunctionDoc, CalcFunction, int64](ctx, s.engine, calcFunctions, docs)
}

// SyncRelations makes pp_calc_relation equal to docs.
func (s *Syncer) SyncRelations(ctx context.Context, docs []CalcRelationDoc) (reconcile.Summary, error) {
	return reconcile.Sync[CalcRelationDoc, CalcRelation, int64](ctx, s.engine, calcRelations, docs)
}

// Sync decodes batch (a JSON array) as documents of kind and reconciles the
// matching table. Unknown kinds are UNKNOWN_VARIANT; undecodable input is a
// CONSTRAINT_VIOLATION. Neither touches the store.
func (s *Syncer) Sync(ctx context.Context, kind string, batch []byte) (reconcile.Summary, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return reconcile.Summary{}, err
	}

	switch k {
	case KindBaseProperty:
		docs, err := decode[BasePropertyDoc](batch)
		if err != nil {
			return reconcile.Summary{}, err
		}
		return s.SyncBaseProperties(ctx, docs)
	case KindFunction:
		docs, err := decode[CalcFunctionDoc](batch)
		if err != nil {
			return reconcile.Summary{}, err
		}
		return s.SyncFunctions(ctx, docs)
	case KindRelation:
		docs, err := decode[CalcRelationDoc](batch)
		if err != nil {
			return reconcile.Summary{}, err
		}
		return s.SyncRelations(ctx, docs)
	}
	return reconcile.Summary{}, store.UnknownVariant("physprop", kind)
}

// List returns every row of kind ordered by id. The result is a
// []BaseProperty, []CalcFunction or []CalcRelation.
func (s *Syncer) List(ctx context.Context, kind string) (any, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindBaseProperty:
		return list(ctx, s, baseProperties)
	case KindFunction:
		return list(ctx, s, calcFunctions)
	case KindRelation:
		return list(ctx, s, calcRelations)
	}
	return nil, store.UnknownVariant("physprop", kind)
}

// FunctionsFor returns the calculation functions related to a base property.
func (s *Syncer) FunctionsFor(ctx context.Context, basePhysicalID int64) ([]CalcFunction, error) {
	rows, err := s.engine.Store().Query(ctx, `
		SELECT f.id, f.name, f.code, f.args_json, f.is_show
		FROM pp_calc_function f
		JOIN pp_calc_relation r ON r.function_id = f.id
		WHERE r.base_physical_id = ?
		ORDER BY f.id`, basePhysicalID)
	if err != nil {
		return nil, fmt.Errorf("query functions for %d: %w", basePhysicalID, err)
	}
	return calcFunctions.scan(rows)
}

func list[D any, R any](ctx context.Context, s *Syncer, e entity[D, R]) ([]R, error) {
	rows, err := s.engine.Store().Query(ctx, e.selectSQL()+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.table, err)
	}
	return e.scan(rows)
}

func decode[D any](batch []byte) ([]D, error) {
	var docs []D
	if err := json.Unmarshal(batch, &docs); err != nil {
		return nil, store.ConstraintViolation("physprop decode", "invalid batch: %v", err)
	}
	if docs == nil {
		return nil, store.ConstraintViolation("physprop decode", "invalid batch: expected an array, got null")
	}
	return docs, nil
}
