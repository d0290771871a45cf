package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowstate/internal/store"
)

type pair struct {
	I, J int
}

type pairDoc struct {
	I, J  int
	Value string
}

type pairRow struct {
	ID    int
	I, J  int
	Value string
}

func pairRowKey(r pairRow) pair { return pair{r.I, r.J} }

func pairDocKey(d pairDoc) (pair, error) {
	if d.I == 0 || d.J == 0 {
		return pair{}, errors.New("component id is required")
	}
	return pair{d.I, d.J}, nil
}

func TestMatch_Partitions(t *testing.T) {
	existing := []pairRow{
		{ID: 1, I: 1, J: 2, Value: "a"},
		{ID: 2, I: 1, J: 3, Value: "b"},
		{ID: 3, I: 2, J: 3, Value: "c"},
	}
	batch := []pairDoc{
		{I: 1, J: 3, Value: "b2"},
		{I: 4, J: 5, Value: "new"},
		{I: 1, J: 2, Value: "a2"},
	}

	plan, err := Match(existing, pairRowKey, batch, pairDocKey, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Groups, 3)
	assert.Equal(t, pair{1, 3}, plan.Groups[0].Key)
	assert.Equal(t, pair{4, 5}, plan.Groups[1].Key)
	assert.Equal(t, pair{1, 2}, plan.Groups[2].Key)

	matched := plan.Existing()
	require.Len(t, matched, 2)
	assert.Equal(t, 2, matched[0].Existing.ID)
	assert.Equal(t, 1, matched[1].Existing.ID)

	fresh := plan.New()
	require.Len(t, fresh, 1)
	assert.True(t, fresh[0].IsNew())
	assert.Equal(t, 1, fresh[0].Index)

	require.Len(t, plan.Stale, 1)
	assert.Equal(t, 3, plan.Stale[0].ID)
}

func TestMatch_EmptyBatchIsAllStale(t *testing.T) {
	existing := []pairRow{{ID: 1, I: 1, J: 2}, {ID: 2, I: 2, J: 3}}

	plan, err := Match(existing, pairRowKey, nil, pairDocKey, Options{})
	require.NoError(t, err)

	assert.Empty(t, plan.Groups)
	assert.Equal(t, existing, plan.Stale)
}

func TestMatch_NoExistingRows(t *testing.T) {
	batch := []pairDoc{{I: 1, J: 2}, {I: 2, J: 3}}

	plan, err := Match(nil, pairRowKey, batch, pairDocKey, Options{})
	require.NoError(t, err)

	assert.Len(t, plan.New(), 2)
	assert.Empty(t, plan.Existing())
	assert.Empty(t, plan.Stale)
}

func TestMatch_DuplicateKeyGroupsInOrder(t *testing.T) {
	batch := []pairDoc{
		{I: 1, J: 2, Value: "first"},
		{I: 3, J: 4, Value: "other"},
		{I: 1, J: 2, Value: "second"},
	}

	plan, err := Match(nil, pairRowKey, batch, pairDocKey, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Groups, 2)
	g := plan.Groups[0]
	require.Len(t, g.Docs, 2)
	assert.Equal(t, "first", g.Docs[0].Value)
	assert.Equal(t, "second", g.Docs[1].Value)
	assert.Equal(t, 0, g.Index)
}

func TestMatch_DuplicateKeyRejected(t *testing.T) {
	batch := []pairDoc{{I: 1, J: 2}, {I: 1, J: 2}}

	_, err := Match(nil, pairRowKey, batch, pairDocKey, Options{RejectDuplicates: true})
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "documents 0 and 1")
}

func TestMatch_MissingKeyIsConstraintViolation(t *testing.T) {
	batch := []pairDoc{{I: 1, J: 2}, {I: 1}}

	_, err := Match(nil, pairRowKey, batch, pairDocKey, Options{})
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err))
	assert.Contains(t, err.Error(), "document 1")
}

func TestMatch_DuplicatePersistedKeysMarkedStale(t *testing.T) {
	existing := []pairRow{
		{ID: 1, I: 1, J: 2},
		{ID: 2, I: 2, J: 3},
		{ID: 3, I: 1, J: 2},
	}
	batch := []pairDoc{{I: 1, J: 2}}

	plan, err := Match(existing, pairRowKey, batch, pairDocKey, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 1, plan.Groups[0].Existing.ID)

	ids := make([]int, 0, len(plan.Stale))
	for _, r := range plan.Stale {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 3}, ids)
}

func TestMatch_StaleOrderIsLoadOrder(t *testing.T) {
	var existing []pairRow
	for i := 1; i <= 20; i++ {
		existing = append(existing, pairRow{ID: i, I: i, J: i + 1})
	}

	for range 5 {
		plan, err := Match(existing, pairRowKey, []pairDoc{{I: 10, J: 11}}, pairDocKey, Options{})
		require.NoError(t, err)
		require.Len(t, plan.Stale, 19)
		for i := 1; i < len(plan.Stale); i++ {
			assert.Less(t, plan.Stale[i-1].ID, plan.Stale[i].ID)
		}
	}
}
