package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowstate/internal/store"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		selector string
		table    string
		variant  Variant
	}{
		{"PR", "binary_pr", EquationOfState},
		{"pr", "binary_pr", EquationOfState},
		{" Srk ", "binary_srk", EquationOfState},
		{"RK", "binary_rk", EquationOfState},
		{"nrtl", "binary_nrtl", ActivityExtended},
		{"NRTL-RK", "binary_nrtl_rk", ActivityExtended},
		{"nrtl_rk", "binary_nrtl_rk", ActivityExtended},
		{"Wilson", "binary_wilson", ActivityCompact},
		{"UNIQUAC", "binary_uniquac", ActivityCompact},
		{"psrk", "binary_psrk", PSRK},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			f, err := ParseFamily(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.table, f.Table)
			assert.Equal(t, tt.variant, f.Variant)
		})
	}
}

func TestParseFamily_Unknown(t *testing.T) {
	for _, sel := range []string{"FOO", "", "NRTLRK"} {
		_, err := ParseFamily(sel)
		require.Error(t, err, sel)
		assert.True(t, store.IsUnknownVariant(err), sel)
	}
}

func TestVariant_ColumnsAlignWithRowValues(t *testing.T) {
	for _, v := range []Variant{EquationOfState, ActivityCompact, ActivityExtended, PSRK} {
		var r Row
		assert.Len(t, r.values(v), len(v.Columns()), v.String())
	}
}

func TestVariant_Columns(t *testing.T) {
	assert.Contains(t, ActivityCompact.Columns(), "min_t")
	assert.NotContains(t, ActivityCompact.Columns(), "fij")
	assert.Contains(t, ActivityExtended.Columns(), "fji")
	assert.NotContains(t, ActivityExtended.Columns(), "min_t")
	assert.Equal(t, []string{"tij", "tji", "vij", "vji"}, PSRK.Columns())
	assert.Nil(t, Variant(99).Columns())
	assert.Equal(t, "Variant(99)", Variant(99).String())
}

func TestFamilies_ReturnsCopy(t *testing.T) {
	fs := Families()
	require.Len(t, fs, 8)
	fs[0].Table = "mutated"
	assert.Equal(t, "binary_pr", Families()[0].Table)
}

func TestVariant_Fields(t *testing.T) {
	assert.Equal(t, []string{"TIJ", "TJI", "VIJ", "VJI"}, PSRK.Fields())
	assert.Contains(t, ActivityCompact.Fields(), "minT")
	assert.Contains(t, ActivityCompact.Fields(), "maxT")
	assert.Empty(t, Variant(99).Fields())
}
