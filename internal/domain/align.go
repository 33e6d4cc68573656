package domain

import (
	"errors"
	"fmt"
)

// DefaultCategoricalFields are expanded to indicator columns unless a model
// declares its own list.
var DefaultCategoricalFields = []string{
	FieldZoneID,
	FieldHour,
	FieldWeekday,
	FieldMonth,
	FieldCocoGroup,
	FieldCategoryTop,
}

// FeatureSchema is the ordered column list a model was trained on, shipped
// with the model artifact and never derived from incoming data.
type FeatureSchema struct {
	Version     string
	Columns     []string
	Categorical []string

	categorical map[string]struct{}
}

// NewFeatureSchema validates columns (non-empty, no duplicates) and fixes the
// categorical field list. A nil list selects DefaultCategoricalFields.
func NewFeatureSchema(version string, columns, categorical []string) (FeatureSchema, error) {
	if len(columns) == 0 {
		return FeatureSchema{}, errors.New("feature schema has no columns")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return FeatureSchema{}, errors.New("feature schema has an empty column name")
		}
		if _, dup := seen[c]; dup {
			return FeatureSchema{}, fmt.Errorf("feature schema has duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	if categorical == nil {
		categorical = DefaultCategoricalFields
	}

	s := FeatureSchema{
		Version:     version,
		Columns:     append([]string(nil), columns...),
		Categorical: append([]string(nil), categorical...),
		categorical: make(map[string]struct{}, len(categorical)),
	}
	for _, f := range categorical {
		s.categorical[f] = struct{}{}
	}
	return s, nil
}

// Len returns the vector length the model expects.
func (s FeatureSchema) Len() int { return len(s.Columns) }

// Index returns the position of column name, or -1.
func (s FeatureSchema) Index(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (s FeatureSchema) isCategorical(field string) bool {
	if s.categorical == nil {
		for _, f := range DefaultCategoricalFields {
			if f == field {
				return true
			}
		}
		return false
	}
	_, ok := s.categorical[field]
	return ok
}

// IndicatorName is the column name for one observed category value.
func IndicatorName(field, label string) string {
	return field + "_" + label
}

// Align expands categorical fields to indicator columns and projects the
// result onto schema order. Columns the record does not produce are 0;
// produced columns the schema does not list are dropped. The output always
// has schema.Len() entries and is a pure function of its inputs.
func Align(rec *FeatureRecord, schema FeatureSchema) []float64 {
	expanded := make(map[string]float64, rec.Len())
	for _, name := range rec.Names() {
		v, _ := rec.Get(name)
		if schema.isCategorical(name) {
			expanded[IndicatorName(name, v.Label())] = 1
			continue
		}
		expanded[name] = v.FloatOrZero()
	}

	out := make([]float64, len(schema.Columns))
	for i, col := range schema.Columns {
		out[i] = expanded[col]
	}
	return out
}
