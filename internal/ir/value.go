package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Value is a sealed interface over the values a model column can carry.
// Only Null, Text, Integer, Real, Boolean and List implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents SQL NULL.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Text is a string column value.
type Text string

func (Text) value() {}

// Integer is an integer column value. Row ids and many2one references are Integers.
type Integer int64

func (Integer) value() {}

// Real is a floating point column value.
type Real float64

func (Real) value() {}

// Boolean is a boolean column value. SQLite stores it as 0/1.
type Boolean bool

func (Boolean) value() {}

// List is an ordered list of values. Many2many columns take a List of Integers.
type List []Value

func (List) value() {}

// IDs builds a List of Integer values, the usual shape of a many2many value.
func IDs(ids ...int64) List {
	l := make(List, len(ids))
	for i, id := range ids {
		l[i] = Integer(id)
	}
	return l
}

// FromAny converts a decoded Go value (from JSON or YAML) into a Value.
// Maps are rejected: no column type holds a nested object.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case bool:
		return Boolean(val), nil
	case int:
		return Integer(val), nil
	case int64:
		return Integer(val), nil
	case int32:
		return Integer(val), nil
	case uint64:
		return Integer(int64(val)), nil
	case float32:
		return Real(val), nil
	case float64:
		return Real(val), nil
	case json.Number:
		return numberValue(val)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// numberValue keeps integral JSON numbers as Integer and everything else as Real.
func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Integer(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", s)
	}
	return Real(f), nil
}

// UnmarshalValue decodes a single JSON value into a Value.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, ok := raw.(map[string]any); ok {
		return nil, fmt.Errorf("objects are not column values")
	}
	return FromAny(raw)
}

// ToParam converts a Value into a database/sql parameter.
// Lists cannot be bound directly; they belong in link tables.
func ToParam(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case Text:
		return string(val), nil
	case Integer:
		return int64(val), nil
	case Real:
		return float64(val), nil
	case Boolean:
		return bool(val), nil
	case List:
		return nil, fmt.Errorf("list value cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// FromColumn converts a value scanned from a SQLite row into a Value.
func FromColumn(src any) Value {
	switch val := src.(type) {
	case nil:
		return Null{}
	case int64:
		return Integer(val)
	case float64:
		return Real(val)
	case bool:
		return Boolean(val)
	case []byte:
		return Text(string(val))
	case string:
		return Text(val)
	case time.Time:
		return Text(val.UTC().Format(DateTimeLayout))
	default:
		return Text(fmt.Sprint(val))
	}
}

// Native converts a Value back into plain Go data for JSON/YAML output.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Text:
		return string(val)
	case Integer:
		return int64(val)
	case Real:
		return float64(val)
	case Boolean:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values hold the same data.
// Integer and Real compare numerically so YAML expectations match REAL columns.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case Integer:
		switch bv := b.(type) {
		case Integer:
			return av == bv
		case Real:
			return float64(av) == float64(bv)
		case Boolean:
			return (av != 0) == bool(bv)
		}
		return false
	case Real:
		switch bv := b.(type) {
		case Real:
			return av == bv
		case Integer:
			return float64(av) == float64(bv)
		}
		return false
	case Boolean:
		switch bv := b.(type) {
		case Boolean:
			return av == bv
		case Integer:
			return bool(av) == (bv != 0)
		}
		return false
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
