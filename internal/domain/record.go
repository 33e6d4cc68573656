package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNumber valueKind = iota
	kindCategory
)

// Value is one feature cell: a number, a category label, or a flag stored as 0/1.
type Value struct {
	kind valueKind
	num  float64
	cat  string
}

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// Category returns a categorical (string) value.
func Category(s string) Value { return Value{kind: kindCategory, cat: s} }

// Flag returns 1 for true and 0 for false.
func Flag(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

// IsCategory reports whether v holds a string label.
func (v Value) IsCategory() bool { return v.kind == kindCategory }

// Float returns the numeric reading of v. Category labels that parse as numbers
// are accepted; anything else reports false.
func (v Value) Float() (float64, bool) {
	if v.kind == kindNumber {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.cat), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOrZero coerces v to a number, using 0 for unparseable labels.
func (v Value) FloatOrZero() float64 {
	f, _ := v.Float()
	return f
}

// Label renders v for indicator column names. Numbers use the shortest
// representation, so 33 renders as "33" and 0.5 as "0.5".
func (v Value) Label() string {
	if v.kind == kindCategory {
		return v.cat
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

func (v Value) String() string { return v.Label() }

// MarshalJSON writes numbers as JSON numbers and categories as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == kindCategory {
		return json.Marshal(v.cat)
	}
	return json.Marshal(v.num)
}

// ValueOf converts a decoded JSON scalar into a Value. It reports false for
// nil and for composite values, which callers treat as absent.
func ValueOf(x any) (Value, bool) {
	switch t := x.(type) {
	case nil:
		return Value{}, false
	case Value:
		return t, true
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f), true
		}
		return Category(t.String()), true
	case string:
		return Category(t), true
	case bool:
		return Flag(t), true
	default:
		return Value{}, false
	}
}

// Attributes is an unordered attribute set such as a zone or global defaults record.
type Attributes map[string]Value

// FeatureRecord is an insertion-ordered mapping from feature name to value.
// It is built fresh per request.
type FeatureRecord struct {
	names  []string
	values map[string]Value
}

// NewFeatureRecord returns an empty record.
func NewFeatureRecord() *FeatureRecord {
	return &FeatureRecord{values: make(map[string]Value)}
}

// Set stores v under name, overwriting any existing value.
func (r *FeatureRecord) Set(name string, v Value) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Fill stores v only if name is absent and reports whether it did.
func (r *FeatureRecord) Fill(name string, v Value) bool {
	if _, ok := r.values[name]; ok {
		return false
	}
	r.Set(name, v)
	return true
}

// Get returns the value stored under name.
func (r *FeatureRecord) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Names returns feature names in insertion order.
func (r *FeatureRecord) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of features.
func (r *FeatureRecord) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
