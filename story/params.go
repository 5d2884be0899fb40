package story

import (
	"encoding/json"
	"math"
	"strings"
)

// Params is a partial record of story-creation fields, keyed by the Field*
// names. Values keep whatever dynamic type the caller supplied (JSON decoding
// yields float64 numbers and []any arrays), so accessors tolerate both the
// decoded and the native Go shapes.
type Params map[string]any

// Empty reports whether no fields are set.
func (p Params) Empty() bool { return len(p) == 0 }

// Has reports whether key is present, regardless of its value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value at key when it is a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the value at key when it is an integral number.
func (p Params) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

// Strings returns the string elements of the array at key. Non-string
// elements are skipped. ok is false when the value is not an array.
func (p Params) Strings(key string) ([]string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	items, ok := AsSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// PhysicalTraits returns the nested physical-trait record, if present.
func (p Params) PhysicalTraits() (PhysicalTraits, bool) {
	v, ok := p[FieldPhysicalTraits]
	if !ok || v == nil {
		return PhysicalTraits{}, false
	}
	switch pt := v.(type) {
	case PhysicalTraits:
		return pt, true
	case *PhysicalTraits:
		if pt == nil {
			return PhysicalTraits{}, false
		}
		return *pt, true
	case map[string]any:
		var out PhysicalTraits
		out.HairColor, _ = pt[FieldHairColor].(string)
		out.EyeColor, _ = pt[FieldEyeColor].(string)
		out.FavoriteColor, _ = pt[FieldFavoriteColor].(string)
		return out, true
	case map[string]string:
		return PhysicalTraits{
			HairColor:     pt[FieldHairColor],
			EyeColor:      pt[FieldEyeColor],
			FavoriteColor: pt[FieldFavoriteColor],
		}, true
	}
	return PhysicalTraits{}, false
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// AsInt converts the numeric shapes a decoded or native value may take into
// an int. Non-integral floats are rejected.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.Trunc(n) != n || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		f := float64(n)
		if math.Trunc(f) != f {
			return 0, false
		}
		return int(f), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// AsSlice converts array shapes into []any.
func AsSlice(v any) ([]any, bool) {
	switch items := v.(type) {
	case []any:
		return items, true
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool { return strings.TrimSpace(s) == "" }
