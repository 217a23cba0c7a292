package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueSet is an insertion-ordered mapping from column name to Value.
// It is what callers hand to insert and update; the router splits it
// against the resolved model.
//
// Build one fluently:
//
//	vs := NewValueSet().Set("name", Text("A")).Set("tag_ids", IDs(1, 2))
//
// A nil *ValueSet behaves as an empty set.
type ValueSet struct {
	keys []string
	vals map[string]Value
}

// NewValueSet creates an empty ValueSet.
func NewValueSet() *ValueSet {
	return &ValueSet{vals: make(map[string]Value)}
}

// Set stores v under name, keeping the position of an existing key.
// A nil v is stored as Null.
func (s *ValueSet) Set(name string, v Value) *ValueSet {
	if v == nil {
		v = Null{}
	}
	if s.vals == nil {
		s.vals = make(map[string]Value)
	}
	if _, ok := s.vals[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.vals[name] = v
	return s
}

// Get returns the value stored under name.
func (s *ValueSet) Get(name string) (Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.vals[name]
	return v, ok
}

// Keys returns the column names in insertion order.
func (s *ValueSet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of entries.
func (s *ValueSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Clone returns an independent copy.
func (s *ValueSet) Clone() *ValueSet {
	out := NewValueSet()
	for _, k := range s.Keys() {
		out.Set(k, s.vals[k])
	}
	return out
}

// Map returns the entries as plain Go data, for JSON/YAML output.
func (s *ValueSet) Map() map[string]any {
	out := make(map[string]any, s.Len())
	for _, k := range s.Keys() {
		out[k] = Native(s.vals[k])
	}
	return out
}

// ValueSetFromMap builds a ValueSet from decoded data. Keys are sorted so the
// result does not depend on map iteration order.
func ValueSetFromMap(m map[string]any) (*ValueSet, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vs := NewValueSet()
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", k, err)
		}
		vs.Set(k, v)
	}
	return vs, nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (s *ValueSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("value set must be a JSON object")
	}

	*s = ValueSet{vals: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value %q: %w", key, err)
		}
		if _, isObj := raw.(map[string]any); isObj {
			return fmt.Errorf("value %q: objects are not column values", key)
		}
		v, err := FromAny(raw)
		if err != nil {
			return fmt.Errorf("value %q: %w", key, err)
		}
		s.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (s *ValueSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := json.Marshal(Native(s.vals[k]))
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
