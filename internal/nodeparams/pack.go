package nodeparams

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/flowstate/internal/store"
)

// Document is a heterogeneous node document as exchanged with callers.
type Document map[string]any

// Keys stored in their own columns. They never appear in a payload.
const (
	KeyID        = "id"
	KeyGraphicID = "graphicId"
	KeyName      = "name"
	KeyType      = "type"
	KeyModelID   = "modelId"
	KeyStatus    = "status"
	KeyActived   = "actived"
	KeyCode      = "code"
)

var fixedKeys = []string{KeyID, KeyGraphicID, KeyName, KeyType, KeyModelID, KeyStatus, KeyActived, KeyCode}

// Fixed holds the column-backed metadata of a node.
type Fixed struct {
	GraphicID string
	Name      string
	Type      string
	ModelID   string
	Code      string
	Status    int
	Actived   int
}

// Packed is a document split for storage.
type Packed struct {
	Fixed Fixed

	// Payload is the filtered remainder as a JSON object.
	Payload string
}

var (
	materialDrops = []string{
		"createAt", "script", "feed", "product", "pressureFixed",
		"flowFixed", "pfDisconnected", "flashType", "fluidPackage",
	}
	energyDrops = []string{"script", "createAt"}

	paramsOnly    = []string{"params"}
	paramsHoldups = []string{"params", "holdups"}
	commFields    = []string{"commIn", "commOut"}
)

// Pack splits doc into fixed metadata and a payload filtered by the node's
// category. A document without a string id is a CONSTRAINT_VIOLATION.
//
// Keep-lists only copy keys that are present; a missing key is not written
// as null.
func Pack(doc Document) (Packed, error) {
	f, err := fixedOf(doc)
	if err != nil {
		return Packed{}, store.ConstraintViolation("node pack", "%v", err)
	}

	var remainder map[string]any
	switch CategoryOf(f.Type) {
	case Material:
		remainder = without(doc, materialDrops)
	case Energy:
		remainder = without(doc, energyDrops)
	case Logic, Sensor, ScriptUnit:
		remainder = only(doc, paramsOnly)
	case AI:
		remainder = only(doc, commFields)
	case GraphicElement, Other:
		if isLogicLike(f.Type) {
			remainder = only(doc, paramsOnly)
		} else {
			remainder = only(doc, paramsHoldups)
		}
	}

	payload, err := json.Marshal(remainder)
	if err != nil {
		return Packed{}, store.ConstraintViolation("node pack", "node %s: payload not encodable: %v", f.GraphicID, err)
	}
	return Packed{Fixed: f, Payload: string(payload)}, nil
}

// Unpack rebuilds a document from fixed metadata and a stored payload.
// Fixed columns win over payload keys of the same name, and id mirrors
// graphicId.
//
// The returned document is always usable. A payload that is not a JSON
// object contributes nothing and is reported through the error.
func Unpack(f Fixed, payload string) (Document, error) {
	doc := Document{}

	var perr error
	if payload != "" {
		var rest map[string]any
		if err := json.Unmarshal([]byte(payload), &rest); err != nil {
			perr = fmt.Errorf("node %s: malformed payload: %w", f.GraphicID, err)
			rest = nil
		}
		for k, v := range rest {
			doc[k] = v
		}
	}

	doc[KeyID] = f.GraphicID
	doc[KeyGraphicID] = f.GraphicID
	doc[KeyName] = f.Name
	doc[KeyType] = f.Type
	doc[KeyModelID] = f.ModelID
	doc[KeyStatus] = f.Status
	doc[KeyActived] = f.Actived
	if f.Code != "" {
		doc[KeyCode] = f.Code
	}
	return doc, perr
}

func fixedOf(doc Document) (Fixed, error) {
	f := Fixed{Actived: 1}

	id, ok := doc[KeyID].(string)
	if !ok || id == "" {
		return Fixed{}, errors.New("node document requires a string id")
	}
	f.GraphicID = id

	var err error
	if f.Name, err = stringField(doc, KeyName); err != nil {
		return Fixed{}, err
	}
	if f.Type, err = stringField(doc, KeyType); err != nil {
		return Fixed{}, err
	}
	if f.ModelID, err = stringField(doc, KeyModelID); err != nil {
		return Fixed{}, err
	}
	if f.Code, err = stringField(doc, KeyCode); err != nil {
		return Fixed{}, err
	}
	if v, present := doc[KeyStatus]; present && v != nil {
		if f.Status, err = intValue(KeyStatus, v); err != nil {
			return Fixed{}, err
		}
	}
	if v, present := doc[KeyActived]; present && v != nil {
		if f.Actived, err = intValue(KeyActived, v); err != nil {
			return Fixed{}, err
		}
	}
	return f, nil
}

func stringField(doc Document, key string) (string, error) {
	v, present := doc[key]
	if !present || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func intValue(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(i), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%s must be a number, got %T", key, v)
}

func isFixed(k string) bool {
	for _, f := range fixedKeys {
		if f == k {
			return true
		}
	}
	return false
}

// without copies doc minus the fixed keys and drops.
func without(doc Document, drops []string) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if isFixed(k) {
			continue
		}
		out[k] = v
	}
	for _, k := range drops {
		delete(out, k)
	}
	return out
}

// only copies the listed keys that doc carries.
func only(doc Document, keep []string) map[string]any {
	out := make(map[string]any, len(keep))
	for _, k := range keep {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	return out
}
