// Package binary stores binary interaction parameters for the eight
// thermodynamic families (PR, RK, SRK, NRTL, NRTL-RK, WILSON, UNIQUAC, PSRK).
//
// Each family lives in its own table and belongs to one of four column
// layouts (Variant). Rows are scoped by fluid package; the empty scope is the
// global physical-property library. Within a scope a row is identified by the
// ordered component pair (component_i_id, component_j_id).
//
// Writes go through Syncer.Sync, which reconciles the scope against an
// incoming batch in one transaction.
package binary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/flowstate/internal/store"
)

// Coef is a coefficient value as received on the wire. Host callers send
// coefficients as JSON strings or numbers; both are kept in their literal
// text form. A JSON null or an absent field leaves Set false.
type Coef struct {
	Value string
	Set   bool
}

// Val returns a set coefficient.
func Val(s string) Coef {
	return Coef{Value: s, Set: true}
}

// UnmarshalJSON accepts a string, a number or null.
func (c *Coef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = Coef{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Val(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("coefficient must be a string or number, got %s", b)
	}
	*c = Val(n.String())
	return nil
}

// MarshalJSON writes the literal text, or null when unset.
func (c Coef) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// Doc is one incoming interaction-parameter document. Fields that do not
// belong to the target family's variant are ignored.
type Doc struct {
	ComponentIID *int64  `json:"componentIId"`
	ComponentI   *string `json:"componentI"`
	ComponentJID *int64  `json:"componentJId"`
	ComponentJ   *string `json:"componentJ"`

	KAIJ Coef `json:"KAIJ"`
	KBIJ Coef `json:"KBIJ"`
	KCIJ Coef `json:"KCIJ"`

	AIJ Coef `json:"AIJ"`
	AJI Coef `json:"AJI"`
	BIJ Coef `json:"BIJ"`
	BJI Coef `json:"BJI"`
	CIJ Coef `json:"CIJ"`
	CJI Coef `json:"CJI"`
	DIJ Coef `json:"DIJ"`
	DJI Coef `json:"DJI"`
	EIJ Coef `json:"EIJ"`
	EJI Coef `json:"EJI"`
	FIJ Coef `json:"FIJ"`
	FJI Coef `json:"FJI"`

	TIJ Coef `json:"TIJ"`
	TJI Coef `json:"TJI"`
	VIJ Coef `json:"VIJ"`
	VJI Coef `json:"VJI"`

	MinT Coef `json:"minT"`
	MaxT Coef `json:"maxT"`
}

// Key is the natural key of a row within its scope.
type Key struct {
	I, J int64
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)", k.I, k.J)
}

func docKey(d Doc) (Key, error) {
	if d.ComponentIID == nil {
		return Key{}, errors.New("componentIId is required")
	}
	if d.ComponentJID == nil {
		return Key{}, errors.New("componentJId is required")
	}
	return Key{I: *d.ComponentIID, J: *d.ComponentJID}, nil
}

// DecodeDocs reads a JSON array of documents. Malformed input, including a
// bare null, is a CONSTRAINT_VIOLATION; only [] is an empty batch.
func DecodeDocs(r io.Reader) ([]Doc, error) {
	var docs []Doc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, store.ConstraintViolation("binary decode", "invalid batch: %v", err)
	}
	if docs == nil {
		return nil, store.ConstraintViolation("binary decode", "invalid batch: expected an array, got null")
	}
	return docs, nil
}
