package physprop

// BaseProperty is a row of pp_base_property.
type BaseProperty struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Key     string `json:"key"`
	Type    string `json:"type"`
	Phase   string `json:"phase"`
	Mixture int64  `json:"mixture"`
}

// BasePropertyDoc is an incoming base property. Nil fields are left as they
// are on update and take the column default on insert.
type BasePropertyDoc struct {
	ID      *int64  `json:"id"`
	Name    *string `json:"name"`
	Code    *string `json:"code"`
	Key     *string `json:"key"`
	Type    *string `json:"type"`
	Phase   *string `json:"phase"`
	Mixture *int64  `json:"mixture"`
}

// CalcFunction is a row of pp_calc_function.
type CalcFunction struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Args   string `json:"argsJson"`
	IsShow int64  `json:"isShow"`
}

// CalcFunctionDoc is an incoming calculation function.
type CalcFunctionDoc struct {
	ID     *int64  `json:"id"`
	Name   *string `json:"name"`
	Code   *string `json:"code"`
	Args   *string `json:"argsJson"`
	IsShow *int64  `json:"isShow"`
}

// CalcRelation is a row of pp_calc_relation linking a base property to the
// functions that can compute it.
type CalcRelation struct {
	ID                int64 `json:"id"`
	BasePhysicalID    int64 `json:"basePhysicalId"`
	FunctionID        int64 `json:"functionId"`
	DefaultFunctionID int64 `json:"defaultFunctionId"`
}

// CalcRelationDoc is an incoming relation.
type CalcRelationDoc struct {
	ID                *int64 `json:"id"`
	BasePhysicalID    *int64 `json:"basePhysicalId"`
	FunctionID        *int64 `json:"functionId"`
	DefaultFunctionID *int64 `json:"defaultFunctionId"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

var baseProperties = entity[BasePropertyDoc, BaseProperty]{
	table:   "pp_base_property",
	columns: []string{"name", "code", "prop_key", "type", "phase", "mixture"},
	docID:   func(d BasePropertyDoc) *int64 { return d.ID },
	newRow:  func(id int64) BaseProperty { return BaseProperty{ID: id} },
	rowID:   func(r BaseProperty) int64 { return r.ID },
	project: func(r *BaseProperty, d BasePropertyDoc) {
		set(&r.Name, d.Name)
		set(&r.Code, d.Code)
		set(&r.Key, d.Key)
		set(&r.Type, d.Type)
		set(&r.Phase, d.Phase)
		set(&r.Mixture, d.Mixture)
	},
	fields: func(r *BaseProperty) (*int64, []any) {
		return &r.ID, []any{&r.Name, &r.Code, &r.Key, &r.Type, &r.Phase, &r.Mixture}
	},
}

var calcFunctions = entity[CalcFunctionDoc, CalcFunction]{
	table:   "pp_calc_function",
	columns: []string{"name", "code", "args_json", "is_show"},
	docID:   func(d CalcFunctionDoc) *int64 { return d.ID },
	newRow:  func(id int64) CalcFunction { return CalcFunction{ID: id, IsShow: 1} },
	rowID:   func(r CalcFunction) int64 { return r.ID },
	project: func(r *CalcFunction, d CalcFunctionDoc) {
		set(&r.Name, d.Name)
		set(&r.Code, d.Code)
		set(&r.Args, d.Args)
		set(&r.IsShow, d.IsShow)
	},
	fields: func(r *CalcFunction) (*int64, []any) {
		return &r.ID, []any{&r.Name, &r.Code, &r.Args, &r.IsShow}
	},
}

var calcRelations = entity[CalcRelationDoc, CalcRelation]{
	table:   "pp_calc_relation",
	columns: []string{"base_physical_id", "function_id", "default_function_id"},
	docID:   func(d CalcRelationDoc) *int64 { return d.ID },
	newRow:  func(id int64) CalcRelation { return CalcRelation{ID: id} },
	rowID:   func(r CalcRelation) int64 { return r.ID },
	project: func(r *CalcRelation, d CalcRelationDoc) {
		set(&r.BasePhysicalID, d.BasePhysicalID)
		set(&r.FunctionID, d.FunctionID)
		set(&r.DefaultFunctionID, d.DefaultFunctionID)
	},
	fields: func(r *CalcRelation) (*int64, []any) {
		return &r.ID, []any{&r.BasePhysicalID, &r.FunctionID, &r.DefaultFunctionID}
	},
}
