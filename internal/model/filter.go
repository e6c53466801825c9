package model

// ConditionKind identifies the shape of a filter condition
type ConditionKind string

const (
	ConditionKeyword ConditionKind = "keyword" // exact match on a categorical field
	ConditionBool    ConditionKind = "bool"    // boolean field equals true
	ConditionRange   ConditionKind = "range"   // numeric field <= Lte
	ConditionGeoBox  ConditionKind = "geo_box" // point inside a bounding box
)

// Condition is one atomic constraint on a payload field
type Condition struct {
	Kind    ConditionKind `json:"kind"`
	Field   string        `json:"field"`
	Keyword string        `json:"keyword,omitempty"`
	Bool    bool          `json:"bool,omitempty"`
	Lte     *float64      `json:"lte,omitempty"`
	GeoBox  *GeoBox       `json:"geo_box,omitempty"`
}

// GeoBox is a bounding box given by its north-west and south-east corners
type GeoBox struct {
	TopLeft     GeoPoint `json:"top_left"`
	BottomRight GeoPoint `json:"bottom_right"`
}

// QueryFilter is a conjunction of conditions. A nil filter matches every record.
type QueryFilter struct {
	Must []Condition `json:"must"`
}

// Len returns the number of conditions, zero for a nil filter
func (f *QueryFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Must)
}
