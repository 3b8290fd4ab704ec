package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row maps header names to cell values and remembers the order keys were first set.
// The zero Row is empty and ready to use.
type Row struct {
	keys   []string
	values map[string]Value
}

// NewRow returns an empty row with room for n columns.
func NewRow(n int) Row {
	return Row{keys: make([]string, 0, n), values: make(map[string]Value, n)}
}

// Set stores v under key. A new key is appended to the key order; an existing key keeps its position.
func (r *Row) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Has reports whether key was set.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the value for key and whether it was present.
func (r Row) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key, or null when absent.
func (r Row) Value(key string) Value {
	return r.values[key]
}

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Row) Len() int { return len(r.keys) }

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order of the document.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	*r = Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("row: key %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
