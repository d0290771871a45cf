package binary

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/flowstate/internal/store"
)

// Variant is the column layout shared by a group of families.
type Variant int

const (
	// EquationOfState carries kaij, kbij, kcij and a temperature range.
	EquationOfState Variant = iota + 1

	// ActivityCompact carries A..E terms in both directions and a
	// temperature range.
	ActivityCompact

	// ActivityExtended carries A..F terms in both directions and no
	// temperature range.
	ActivityExtended

	// PSRK carries tij, tji, vij, vji.
	PSRK
)

func (v Variant) String() string {
	switch v {
	case EquationOfState:
		return "EquationOfState"
	case ActivityCompact:
		return "ActivityCompact"
	case ActivityExtended:
		return "ActivityExtended"
	case PSRK:
		return "PSRK"
	}
	return "Variant(" + strconv.Itoa(int(v)) + ")"
}

// Columns returns the value columns of v in storage order.
func (v Variant) Columns() []string {
	switch v {
	case EquationOfState:
		return []string{"kaij", "kbij", "kcij", "min_t", "max_t"}
	case ActivityCompact:
		return []string{
			"aij", "aji", "bij", "bji", "cij", "cji",
			"dij", "dji", "eij", "eji", "min_t", "max_t",
		}
	case ActivityExtended:
		return []string{
			"aij", "aji", "bij", "bji", "cij", "cji",
			"dij", "dji", "eij", "eji", "fij", "fji",
		}
	case PSRK:
		return []string{"tij", "tji", "vij", "vji"}
	}
	return nil
}

// Family is one named interaction-parameter dataset.
type Family struct {
	// Selector is the canonical upper-case name, e.g. "NRTL-RK".
	Selector string

	// Table is the SQL table holding the family.
	Table string

	Variant Variant
}

var families = []Family{
	{Selector: "PR", Table: "binary_pr", Variant: EquationOfState},
	{Selector: "RK", Table: "binary_rk", Variant: EquationOfState},
	{Selector: "SRK", Table: "binary_srk", Variant: EquationOfState},
	{Selector: "NRTL", Table: "binary_nrtl", Variant: ActivityExtended},
	{Selector: "NRTL-RK", Table: "binary_nrtl_rk", Variant: ActivityExtended},
	{Selector: "WILSON", Table: "binary_wilson", Variant: ActivityCompact},
	{Selector: "UNIQUAC", Table: "binary_uniquac", Variant: ActivityCompact},
	{Selector: "PSRK", Table: "binary_psrk", Variant: PSRK},
}

// Families returns every supported family in a fixed order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// ParseFamily resolves a selector case-insensitively. "nrtl_rk" is accepted
// as an alias of "NRTL-RK". Anything else is UNKNOWN_VARIANT.
func ParseFamily(selector string) (Family, error) {
	norm := strings.ReplaceAll(cases.Upper(language.Und).String(strings.TrimSpace(selector)), "_", "-")
	for _, f := range families {
		if f.Selector == norm {
			return f, nil
		}
	}
	return Family{}, store.UnknownVariant("binary", selector)
}
