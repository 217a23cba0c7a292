package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces a stable JSON encoding of a Value.
// This is the encoding used to stringify many2many values before they are
// handed to the link store, so the same ids always produce the same text.
//
// Differences from json.Marshal:
//  1. Strings are NFC normalized
//  2. No HTML escaping (< > & stay literal)
//  3. U+2028 / U+2029 are emitted literally
//  4. NaN and infinities are rejected
func MarshalCanonical(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Text:
		return marshalCanonicalString(string(val))
	case Integer:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Real:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite number %v has no JSON form", f)
		}
		return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
	case Boolean:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString encodes s as a JSON string after NFC normalization.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(out), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// number of backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+6 <= len(data) && data[i] == '\\' && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// EncodeRelation stringifies a many2many value for the link store.
func EncodeRelation(v Value) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeIDs parses a stringified many2many value into target row ids.
// The text must be a JSON list of integers; an empty list clears the links.
func DecodeIDs(s string) ([]int64, error) {
	v, err := UnmarshalValue([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode relation value %q: %w", s, err)
	}

	list, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("decode relation value %q: expected a list of ids", s)
	}

	ids := make([]int64, 0, len(list))
	for i, elem := range list {
		id, ok := elem.(Integer)
		if !ok {
			return nil, fmt.Errorf("decode relation value %q: element %d is not an integer id", s, i)
		}
		ids = append(ids, int64(id))
	}
	return ids, nil
}
