package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type (
	// Row is an ordered key→value container. Values are primitives, nested
	// *Row values, or []any sequences of either.
	Row struct {
		// The list of column names, same order as ColVals
		ColNames []string
		// The list of column values, same order as ColNames
		ColVals []any
	}
)

func NewRow() *Row {
	return &Row{}
}

// Set writes the value for key, replacing an existing entry in place so the
// original position of the key is kept.
func (r *Row) Set(key string, val any) *Row {
	for i, name := range r.ColNames {
		if name == key {
			r.ColVals[i] = val
			return r
		}
	}
	r.ColNames = append(r.ColNames, key)
	r.ColVals = append(r.ColVals, val)
	return r
}

func (r *Row) Get(key string) (any, bool) {
	for i, name := range r.ColNames {
		if name == key {
			return r.ColVals[i], true
		}
	}
	return nil, false
}

func (r *Row) Len() int {
	return len(r.ColNames)
}

// ToMap converts the row, and every nested row, into plain maps. Key order is lost.
func (r *Row) ToMap() map[string]any {
	m := make(map[string]any, len(r.ColNames))
	for i, name := range r.ColNames {
		m[name] = toPlain(r.ColVals[i])
	}
	return m
}

func toPlain(v any) any {
	switch val := v.(type) {
	case *Row:
		if val == nil {
			return nil
		}
		return val.ToMap()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toPlain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON writes the row as a JSON object with keys in row order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.ColNames {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("error in json.Marshal of key %s: %w", name, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.ColVals[i])
		if err != nil {
			return nil, fmt.Errorf("error in json.Marshal of value for %s: %w", name, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
