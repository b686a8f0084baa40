package row_flattener

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/danthegoodman1/gojsonutils"
	"github.com/danthegoodman1/rowbridge/gologger"
	"github.com/danthegoodman1/rowbridge/relational"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/danthegoodman1/rowbridge/utils"
)

type (
	// NestedKeying decides which name a nested struct's children are stored under.
	NestedKeying int

	Flattener struct {
		NestedKeying NestedKeying

		// writes NaN and infinities as JSON strings
		floatsAsText bool
	}
)

const (
	// KeyByChild stores each nested field under its own name.
	KeyByChild NestedKeying = iota
	// KeyByParent stores every nested field under the enclosing field's name, so
	// only the last child survives. Kept for consumers that depend on that shape.
	KeyByParent
)

var (
	logger = gologger.NewComponentLogger("row_flattener")

	ErrNotFlatMap = errors.New("not a flat map")

	defaultFlattener = newDefaultFlattener()
)

func newDefaultFlattener() *Flattener {
	if utils.ROW_FLATTENER_LEGACY_NESTED_KEYS {
		return &Flattener{NestedKeying: KeyByParent}
	}
	return &Flattener{NestedKeying: KeyByChild}
}

// ToMap flattens row with the process default keying.
func ToMap(row *relational.Row) *table.Row {
	return defaultFlattener.ToMap(row)
}

func ToJSON(row *relational.Row) (string, error) {
	return defaultFlattener.ToJSON(row)
}

func FieldValue(row *relational.Row, name string) (any, bool) {
	return defaultFlattener.FieldValue(row, name)
}

func Flatten(row *relational.Row) (map[string]any, error) {
	return defaultFlattener.Flatten(row)
}

// ToMap converts every field, in row order, into an ordered container.
func (f *Flattener) ToMap(row *relational.Row) *table.Row {
	out := table.NewRow()
	for _, field := range row.Fields() {
		out.Set(field.Name, f.fieldValue(field.Name, field.Value))
	}
	return out
}

// ToJSON is ToMap encoded as a JSON object in row order. The JSON form has
// always keyed nested fields by their own name, so NestedKeying does not apply.
// NaN and infinite floats are written as "NaN", "Infinity" and "-Infinity".
func (f *Flattener) ToJSON(row *relational.Row) (string, error) {
	childKeyed := &Flattener{NestedKeying: KeyByChild, floatsAsText: true}
	b, err := json.Marshal(childKeyed.ToMap(row))
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// FieldValue converts the first field called name. A missing name is not an error.
func (f *Flattener) FieldValue(row *relational.Row, name string) (any, bool) {
	for _, field := range row.Fields() {
		if field.Name == name {
			return f.fieldValue(field.Name, field.Value), true
		}
	}
	return nil, false
}

// Flatten collapses nested objects of ToMap into a single level map for
// columnar sinks.
func (f *Flattener) Flatten(row *relational.Row) (map[string]any, error) {
	flat, err := gojsonutils.Flatten(f.ToMap(row).ToMap(), nil)
	if err != nil {
		return nil, fmt.Errorf("error in gojsonutils.Flatten: %w", err)
	}
	flatMap, ok := flat.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("got %T: %w", flat, ErrNotFlatMap)
	}
	return flatMap, nil
}

func (f *Flattener) fieldValue(name string, v relational.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type().Code {
	case relational.TypeCodeStruct:
		child, _ := v.AsStruct()
		return f.structValue(name, child)
	case relational.TypeCodeArray:
		elems, _ := v.AsArray()
		return f.arrayValue(name, v.Type().ElementType(), elems)
	default:
		return f.scalarValue(name, v)
	}
}

func (f *Flattener) structValue(parent string, child *relational.Row) *table.Row {
	out := table.NewRow()
	for _, field := range child.Fields() {
		key := field.Name
		if f.NestedKeying == KeyByParent {
			key = parent
		}
		out.Set(key, f.fieldValue(field.Name, field.Value))
	}
	return out
}

func (f *Flattener) arrayValue(name string, elem relational.Type, elems []relational.Value) []any {
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		if e.IsNull() {
			out = append(out, nil)
			continue
		}
		switch elem.Code {
		case relational.TypeCodeStruct:
			child, _ := e.AsStruct()
			out = append(out, f.structValue(name, child))
		case relational.TypeCodeArray:
			nested, _ := e.AsArray()
			out = append(out, f.arrayValue(name, elem.ElementType(), nested))
		default:
			out = append(out, f.scalarValue(name, e))
		}
	}
	return out
}

// scalarValue copies the payload except BYTES (std base64), TIMESTAMP (whole
// seconds since epoch) and DATE (YYYY-MM-DD). Unhandled kinds become nil.
func (f *Flattener) scalarValue(name string, v relational.Value) any {
	switch v.Type().Code {
	case relational.TypeCodeBool:
		b, _ := v.AsBool()
		return b
	case relational.TypeCodeInt64:
		i, _ := v.AsInt64()
		return i
	case relational.TypeCodeFloat64:
		fl, _ := v.AsFloat64()
		if f.floatsAsText {
			switch {
			case math.IsNaN(fl):
				return "NaN"
			case math.IsInf(fl, 1):
				return "Infinity"
			case math.IsInf(fl, -1):
				return "-Infinity"
			}
		}
		return fl
	case relational.TypeCodeString:
		s, _ := v.AsString()
		return s
	case relational.TypeCodeBytes:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b)
	case relational.TypeCodeTimestamp:
		t, _ := v.AsTimestamp()
		return t.Unix()
	case relational.TypeCodeDate:
		d, _ := v.AsDate()
		return d.String()
	default:
		logger.Debug().Str("field", name).Str("type", v.Type().String()).Msg("unhandled kind, writing null")
		return nil
	}
}
