package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}

// ParseValueKind maps "string", "number" and "boolean" (or "bool") to a kind.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "":
		return KindString, nil
	case "number":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBool, nil
	}
	return KindString, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged story value: a string, a float64 number or a boolean.
// The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// String builds a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number builds a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// finite maps NaN and the infinities to 0. They have no JSON encoding and
// NaN never equals itself.
func finite(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// Bool builds a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string variant and whether v holds one.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric variant and whether v holds one.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Truth returns the boolean variant and whether v holds one.
func (v Value) Truth() (bool, bool) { return v.b, v.kind == KindBool }

// String renders the value the way an author would type it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Interface returns the native Go value (string, float64 or bool).
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// Equal reports strict equality: same kind and same payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return v.str == o.str
	}
}

// CoerceTo converts v to the given kind using the same rules as Coerce.
func (v Value) CoerceTo(kind ValueKind) Value {
	if v.kind == kind {
		return v
	}
	return Coerce(v.String(), kind)
}

// Coerce parses an authored string into a Value of the requested kind.
// Numbers that fail to parse, or parse to NaN or an infinity, become 0. A
// number must be the whole trimmed literal: "5abc" is 0, not 5. Booleans
// match case-insensitively without trimming; anything else is false.
func Coerce(raw string, kind ValueKind) Value {
	v, _ := CoerceStrict(raw, kind)
	return v
}

// CoerceStrict behaves like Coerce but also reports whether raw was a valid
// literal for kind. The returned Value is the fallback when ok is false.
func CoerceStrict(raw string, kind ValueKind) (Value, bool) {
	switch kind {
	case KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Number(0), false
		}
		return Number(n), true
	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return Bool(true), true
		case "false", "0", "no":
			return Bool(false), true
		}
		return Bool(false), false
	default:
		return String(raw), true
	}
}

// ValueOf converts a native scalar into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return String(""), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return String(""), nil
		}
		return *t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(finite(t)), nil
	case float32:
		return Number(finite(float64(t))), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(finite(n)), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

// MarshalJSON encodes the value as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a JSON string, number or boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValuePtr is a convenience for optional values in node data.
func ValuePtr(v Value) *Value { return &v }
