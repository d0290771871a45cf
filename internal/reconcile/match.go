package reconcile

import (
	"sort"

	"github.com/roach88/flowstate/internal/store"
)

// Group collects every incoming document that shares one natural key.
//
// Docs keeps batch order. The engine projects them onto a single record in
// that order, so when a batch repeats a key the later document wins
// (last-write-wins within a call). Whether earlier fields survive depends on
// the Table's Project: sparse projections keep fields a later document does
// not carry, whole-document projections replace them.
type Group[D any, R any, K comparable] struct {
	Key K

	// Existing is the persisted row with this key, or nil for a new key.
	Existing *R

	// Docs holds the documents for Key, in batch order. Never empty.
	Docs []D

	// Index is the batch position of the first document in the group.
	Index int
}

// IsNew reports whether the key has no persisted row.
func (g Group[D, R, K]) IsNew() bool {
	return g.Existing == nil
}

// Plan is the result of matching an incoming batch against persisted rows.
type Plan[D any, R any, K comparable] struct {
	// Groups lists one entry per distinct incoming key, ordered by first
	// appearance in the batch.
	Groups []Group[D, R, K]

	// Stale lists persisted rows whose key is absent from the batch.
	Stale []R
}

// Existing returns the groups that matched a persisted row.
func (p Plan[D, R, K]) Existing() []Group[D, R, K] {
	var out []Group[D, R, K]
	for _, g := range p.Groups {
		if !g.IsNew() {
			out = append(out, g)
		}
	}
	return out
}

// New returns the groups with no persisted row.
func (p Plan[D, R, K]) New() []Group[D, R, K] {
	var out []Group[D, R, K]
	for _, g := range p.Groups {
		if g.IsNew() {
			out = append(out, g)
		}
	}
	return out
}

// Match partitions batch into existing and new keys and computes the stale
// rows. It has no side effects.
//
// A document whose key cannot be extracted is a CONSTRAINT_VIOLATION. A key
// repeated within the batch is grouped (last-write-wins) unless
// opts.RejectDuplicates is set, in which case it is a CONSTRAINT_VIOLATION.
//
// If the persisted rows themselves repeat a key, the first row is matched and
// the rest are reported stale so that reconciliation restores uniqueness.
func Match[D any, R any, K comparable](
	existing []R,
	rowKey func(R) K,
	batch []D,
	docKey func(D) (K, error),
	opts Options,
) (Plan[D, R, K], error) {
	byKey := make(map[K]int, len(existing))
	var staleIdx []int
	for i, r := range existing {
		k := rowKey(r)
		if _, dup := byKey[k]; dup {
			staleIdx = append(staleIdx, i)
			continue
		}
		byKey[k] = i
	}

	var plan Plan[D, R, K]
	groupOf := make(map[K]int, len(batch))
	for i, d := range batch {
		k, err := docKey(d)
		if err != nil {
			return Plan[D, R, K]{}, store.ConstraintViolation("match", "document %d: %v", i, err)
		}

		if gi, seen := groupOf[k]; seen {
			if opts.RejectDuplicates {
				return Plan[D, R, K]{}, store.ConstraintViolation("match",
					"duplicate key %v at documents %d and %d", k, plan.Groups[gi].Index, i)
			}
			plan.Groups[gi].Docs = append(plan.Groups[gi].Docs, d)
			continue
		}

		g := Group[D, R, K]{Key: k, Docs: []D{d}, Index: i}
		if ri, ok := byKey[k]; ok {
			row := existing[ri]
			g.Existing = &row
		}
		groupOf[k] = len(plan.Groups)
		plan.Groups = append(plan.Groups, g)
	}

	for k, ri := range byKey {
		if _, kept := groupOf[k]; !kept {
			staleIdx = append(staleIdx, ri)
		}
	}

	// Load order, so deletes are deterministic regardless of map iteration.
	sort.Ints(staleIdx)
	for _, ri := range staleIdx {
		plan.Stale = append(plan.Stale, existing[ri])
	}

	return plan, nil
}
