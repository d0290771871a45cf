package binary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowstate/internal/reconcile"
	"github.com/roach88/flowstate/internal/store"
	"github.com/roach88/flowstate/internal/testutil"
)

func id(n int64) *int64     { return &n }
func name(s string) *string { return &s }

func pair(i, j int64) Doc {
	return Doc{ComponentIID: id(i), ComponentJID: id(j)}
}

func newSyncer(t *testing.T, opts ...reconcile.EngineOption) *Syncer {
	t.Helper()
	return NewSyncer(testutil.NewEngine(t, opts...))
}

func byKey(rows []Row) map[Key]Row {
	out := make(map[Key]Row, len(rows))
	for _, r := range rows {
		out[r.Key()] = r
	}
	return out
}

func TestSync_ConcreteScenario(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	seed := pair(1, 2)
	seed.KAIJ = Val("0.1")
	other := pair(5, 6)
	other.KAIJ = Val("9")
	_, err := s.Sync(ctx, "PR", "fp1", []Doc{seed, other})
	require.NoError(t, err)

	d12 := pair(1, 2)
	d12.KAIJ = Val("0.2")
	d13 := pair(1, 3)
	d13.KAIJ = Val("0.3")

	sum, err := s.Sync(ctx, "PR", "fp1", []Doc{d12, d13})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Inserted: 1, Updated: 1, Deleted: 1}, sum)

	rows, err := s.ListByScope(ctx, "PR", "fp1")
	require.NoError(t, err)
	got := byKey(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "0.2", got[Key{1, 2}].KAIJ.String)
	assert.Equal(t, "0.3", got[Key{1, 3}].KAIJ.String)
	assert.NotContains(t, got, Key{5, 6})
}

func TestSync_Idempotent(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	d := pair(1, 2)
	d.AIJ = Val("1")
	d.FJI = Val("2")
	batch := []Doc{d, pair(2, 3)}

	_, err := s.Sync(ctx, "NRTL", "fp1", batch)
	require.NoError(t, err)
	first, err := s.ListByScope(ctx, "NRTL", "fp1")
	require.NoError(t, err)

	sum, err := s.Sync(ctx, "NRTL", "fp1", batch)
	require.NoError(t, err)
	assert.Zero(t, sum.Inserted)
	assert.Zero(t, sum.Deleted)

	second, err := s.ListByScope(ctx, "NRTL", "fp1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSync_CompletenessAcrossFamilies(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	for _, f := range Families() {
		t.Run(f.Selector, func(t *testing.T) {
			d := pair(10, 20)
			d.ComponentI = name("methane")
			d.ComponentJ = name("ethane")
			d.KAIJ = Val("k")
			d.AIJ = Val("a")
			d.FIJ = Val("f")
			d.TIJ = Val("t")
			d.MaxT = Val("400")

			_, err := s.Sync(ctx, f.Selector, "fp-"+f.Selector, []Doc{d})
			require.NoError(t, err)

			rows, err := s.ListByScope(ctx, f.Selector, "fp-"+f.Selector)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			r := rows[0]
			assert.Equal(t, "methane", r.ComponentI)
			assert.Equal(t, "ethane", r.ComponentJ)

			var want Row
			require.NoError(t, Project(f.Variant, &want, d))
			cols := f.Variant.Columns()
			gotVals, wantVals := r.values(f.Variant), want.values(f.Variant)
			for i := range cols {
				assert.Equal(t, *wantVals[i], *gotVals[i], cols[i])
			}
		})
	}
}

func TestSync_EmptyBatchDeletesScope(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "WILSON", "fp1", []Doc{pair(1, 2), pair(2, 1)})
	require.NoError(t, err)
	_, err = s.Sync(ctx, "WILSON", "fp2", []Doc{pair(1, 2)})
	require.NoError(t, err)

	sum, err := s.Sync(ctx, "WILSON", "fp1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Deleted)

	rows, err := s.ListByScope(ctx, "WILSON", "fp1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.ListByScope(ctx, "WILSON", "fp2")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "other scopes are untouched")
}

func TestSync_NullBatchKeepsScope(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "PR", "fp1", []Doc{pair(1, 2)})
	require.NoError(t, err)

	_, err = DecodeDocs(strings.NewReader(`null`))
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err))

	docs, err := DecodeDocs(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	rows, err := s.ListByScope(ctx, "PR", "fp1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSync_GlobalScopeIsSeparate(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "PR", "", []Doc{pair(1, 2)})
	require.NoError(t, err)
	_, err = s.Sync(ctx, "PR", "fp1", nil)
	require.NoError(t, err)

	rows, err := s.ListByScope(ctx, "PR", "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSync_UnknownSelectorWritesNothing(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "PR", "fp1", []Doc{pair(1, 2)})
	require.NoError(t, err)

	_, err = s.Sync(ctx, "FOO", "fp1", nil)
	require.Error(t, err)
	assert.True(t, store.IsUnknownVariant(err))

	for _, f := range Families() {
		n := testutil.CountRows(t, s.engine.Store(), f.Table, "")
		if f.Selector == "PR" {
			assert.Equal(t, 1, n)
		} else {
			assert.Zero(t, n, f.Table)
		}
	}
}

func TestSync_SparseUpdate(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	d := pair(1, 2)
	d.KAIJ = Val("0.1")
	d.KBIJ = Val("0.2")
	d.MinT = Val("250")
	_, err := s.Sync(ctx, "SRK", "fp1", []Doc{d})
	require.NoError(t, err)

	u := pair(1, 2)
	u.KAIJ = Val("0.9")
	_, err = s.Sync(ctx, "SRK", "fp1", []Doc{u})
	require.NoError(t, err)

	rows, err := s.ListByScope(ctx, "SRK", "fp1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0.9", rows[0].KAIJ.String)
	assert.Equal(t, "0.2", rows[0].KBIJ.String)
	assert.Equal(t, "250", rows[0].MinT.String)
	assert.False(t, rows[0].KCIJ.Valid, "never set, stays NULL")
}

func TestSync_DuplicateKeysLastWriteWins(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	a := pair(1, 2)
	a.AIJ = Val("first")
	a.BIJ = Val("only-first")
	b := pair(1, 2)
	b.AIJ = Val("second")

	sum, err := s.Sync(ctx, "UNIQUAC", "fp1", []Doc{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)

	rows, err := s.ListByScope(ctx, "UNIQUAC", "fp1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].AIJ.String)
	assert.Equal(t, "only-first", rows[0].BIJ.String)
}

func TestSync_DuplicateKeysRejected(t *testing.T) {
	s := newSyncer(t, reconcile.WithRejectDuplicates(true))

	_, err := s.Sync(context.Background(), "UNIQUAC", "fp1", []Doc{pair(1, 2), pair(1, 2)})
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err))
	assert.Zero(t, testutil.CountRows(t, s.engine.Store(), "binary_uniquac", ""))
}

func TestSync_MissingComponentRollsBack(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "PSRK", "fp1", []Doc{pair(1, 2)})
	require.NoError(t, err)

	_, err = s.Sync(ctx, "PSRK", "fp1", []Doc{pair(3, 4), {ComponentIID: id(5)}})
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err))

	rows, err := s.ListByScope(ctx, "PSRK", "fp1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Key{1, 2}, rows[0].Key())
}

func TestListByIDs(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "RK", "fp1", []Doc{pair(1, 2), pair(1, 3), pair(2, 3)})
	require.NoError(t, err)
	all, err := s.ListByScope(ctx, "RK", "fp1")
	require.NoError(t, err)
	require.Len(t, all, 3)

	rows, err := s.ListByIDs(ctx, "RK", []int64{all[0].ID, all[2].ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Key{1, 2}, rows[0].Key())
	assert.Equal(t, Key{2, 3}, rows[1].Key())

	rows, err = s.ListByIDs(ctx, "RK", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListByComponents(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	mk := func(i, j int64, ni, nj string) Doc {
		d := pair(i, j)
		d.ComponentI = name(ni)
		d.ComponentJ = name(nj)
		return d
	}
	_, err := s.Sync(ctx, "NRTL-RK", "fp1", []Doc{
		mk(1, 2, "7732-18-5", "64-17-5"),
		mk(1, 3, "7732-18-5", "67-56-1"),
		mk(2, 3, "64-17-5", "67-56-1"),
	})
	require.NoError(t, err)

	rows, err := s.ListByComponents(ctx, "nrtl-rk", "fp1", []string{"7732-18-5", "64-17-5"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Key{1, 2}, rows[0].Key())
}

func TestDeleteScope(t *testing.T) {
	s := newSyncer(t)
	ctx := context.Background()

	_, err := s.Sync(ctx, "PR", "fp1", []Doc{pair(1, 2)})
	require.NoError(t, err)
	_, err = s.Sync(ctx, "NRTL", "fp1", []Doc{pair(1, 2), pair(2, 3)})
	require.NoError(t, err)
	_, err = s.Sync(ctx, "NRTL", "fp2", []Doc{pair(1, 2)})
	require.NoError(t, err)

	n, err := s.DeleteScope(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := s.ListByScope(ctx, "NRTL", "fp2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListByScope_UnknownSelector(t *testing.T) {
	s := newSyncer(t)
	_, err := s.ListByScope(context.Background(), "FOO", "fp1")
	assert.True(t, store.IsUnknownVariant(err))
}
