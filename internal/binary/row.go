package binary

import (
	"database/sql"
	"fmt"
	"strings"
)

// Row is a persisted interaction-parameter row. Only the value columns of
// the family's variant are meaningful; NULL means unset.
type Row struct {
	ID             int64
	FluidPackageID string
	ComponentIID   int64
	ComponentI     string
	ComponentJID   int64
	ComponentJ     string

	KAIJ, KBIJ, KCIJ sql.NullString

	AIJ, AJI, BIJ, BJI, CIJ, CJI sql.NullString
	DIJ, DJI, EIJ, EJI, FIJ, FJI sql.NullString

	TIJ, TJI, VIJ, VJI sql.NullString

	MinT, MaxT sql.NullString
}

// Key returns the natural key of r.
func (r Row) Key() Key {
	return Key{I: r.ComponentIID, J: r.ComponentJID}
}

// Project copies the fields present in d that belong to variant v onto r.
// Absent fields leave r untouched. Component ids are the key and are set by
// the caller.
func Project(v Variant, r *Row, d Doc) error {
	if d.ComponentI != nil {
		r.ComponentI = *d.ComponentI
	}
	if d.ComponentJ != nil {
		r.ComponentJ = *d.ComponentJ
	}

	switch v {
	case EquationOfState:
		assign(&r.KAIJ, d.KAIJ)
		assign(&r.KBIJ, d.KBIJ)
		assign(&r.KCIJ, d.KCIJ)
		assign(&r.MinT, d.MinT)
		assign(&r.MaxT, d.MaxT)
	case ActivityCompact:
		assignActivity(r, d)
		assign(&r.MinT, d.MinT)
		assign(&r.MaxT, d.MaxT)
	case ActivityExtended:
		assignActivity(r, d)
		assign(&r.FIJ, d.FIJ)
		assign(&r.FJI, d.FJI)
	case PSRK:
		assign(&r.TIJ, d.TIJ)
		assign(&r.TJI, d.TJI)
		assign(&r.VIJ, d.VIJ)
		assign(&r.VJI, d.VJI)
	default:
		return fmt.Errorf("unknown variant %v", v)
	}
	return nil
}

func assignActivity(r *Row, d Doc) {
	assign(&r.AIJ, d.AIJ)
	assign(&r.AJI, d.AJI)
	assign(&r.BIJ, d.BIJ)
	assign(&r.BJI, d.BJI)
	assign(&r.CIJ, d.CIJ)
	assign(&r.CJI, d.CJI)
	assign(&r.DIJ, d.DIJ)
	assign(&r.DJI, d.DJI)
	assign(&r.EIJ, d.EIJ)
	assign(&r.EJI, d.EJI)
}

func assign(dst *sql.NullString, c Coef) {
	if c.Set {
		*dst = sql.NullString{String: c.Value, Valid: true}
	}
}

// values returns pointers to r's value columns for v, aligned with
// v.Columns().
func (r *Row) values(v Variant) []*sql.NullString {
	switch v {
	case EquationOfState:
		return []*sql.NullString{&r.KAIJ, &r.KBIJ, &r.KCIJ, &r.MinT, &r.MaxT}
	case ActivityCompact:
		return []*sql.NullString{
			&r.AIJ, &r.AJI, &r.BIJ, &r.BJI, &r.CIJ, &r.CJI,
			&r.DIJ, &r.DJI, &r.EIJ, &r.EJI, &r.MinT, &r.MaxT,
		}
	case ActivityExtended:
		return []*sql.NullString{
			&r.AIJ, &r.AJI, &r.BIJ, &r.BJI, &r.CIJ, &r.CJI,
			&r.DIJ, &r.DJI, &r.EIJ, &r.EJI, &r.FIJ, &r.FJI,
		}
	case PSRK:
		return []*sql.NullString{&r.TIJ, &r.TJI, &r.VIJ, &r.VJI}
	}
	return nil
}

// Record renders r with wire field names, limited to the columns of v.
// Unset values are nil.
func (r Row) Record(v Variant) map[string]any {
	out := map[string]any{
		"id":             r.ID,
		"fluidPackageId": r.FluidPackageID,
		"componentIId":   r.ComponentIID,
		"componentI":     r.ComponentI,
		"componentJId":   r.ComponentJID,
		"componentJ":     r.ComponentJ,
	}
	cols := v.Columns()
	for i, p := range r.values(v) {
		var val any
		if p.Valid {
			val = p.String
		}
		out[wireName(cols[i])] = val
	}
	return out
}

func wireName(col string) string {
	switch col {
	case "min_t":
		return "minT"
	case "max_t":
		return "maxT"
	}
	return strings.ToUpper(col)
}

// Fields returns the wire names of v's value columns, in column order.
func (v Variant) Fields() []string {
	cols := v.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = wireName(c)
	}
	return out
}
