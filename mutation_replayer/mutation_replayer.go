package mutation_replayer

import (
	"fmt"

	"github.com/danthegoodman1/rowbridge/gologger"
	"github.com/danthegoodman1/rowbridge/relational"
	"github.com/danthegoodman1/rowbridge/utils"
)

var logger = gologger.NewComponentLogger("mutation_replayer")

// ToRows converts a group in apply order: attached mutations as given, then the primary.
func ToRows(g relational.MutationGroup) ([]*relational.Row, error) {
	rows := make([]*relational.Row, 0, len(g.Attached)+1)
	for _, m := range g.Mutations() {
		row, err := ToRow(m)
		if err != nil {
			return nil, fmt.Errorf("error in ToRow for table %s: %w", m.Table, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ToRow reconstitutes the row a mutation writes. Columns of a kind this
// package does not know are left out instead of failing the mutation.
func ToRow(m relational.Mutation) (*relational.Row, error) {
	b := relational.NewRowBuilder()
	for _, col := range m.Columns {
		if !setColumn(b, col.Name, col.Value) {
			logger.Debug().Str("table", m.Table).Str("column", col.Name).Str("type", col.Value.Type().String()).Msg("skipping column of unhandled kind")
		}
	}
	return b.Build()
}

func setColumn(b *relational.RowBuilder, name string, v relational.Value) bool {
	switch v.Type().Code {
	case relational.TypeCodeDate:
		if d, ok := v.AsDate(); ok {
			b.SetDate(name, &d)
		} else {
			b.SetDate(name, nil)
		}
	case relational.TypeCodeInt64:
		if i, ok := v.AsInt64(); ok {
			b.SetInt64(name, &i)
		} else {
			b.SetInt64(name, nil)
		}
	case relational.TypeCodeString:
		if s, ok := v.AsString(); ok {
			b.SetString(name, &s)
		} else {
			b.SetString(name, nil)
		}
	case relational.TypeCodeTimestamp:
		if t, ok := v.AsTimestamp(); ok {
			b.SetTimestamp(name, &t)
		} else {
			b.SetTimestamp(name, nil)
		}
	case relational.TypeCodeBool:
		if bl, ok := v.AsBool(); ok {
			b.SetBool(name, &bl)
		} else {
			b.SetBool(name, nil)
		}
	case relational.TypeCodeBytes:
		bs, _ := v.AsBytes()
		b.SetBytes(name, bs)
	case relational.TypeCodeFloat64:
		if f, ok := v.AsFloat64(); ok {
			b.SetFloat64(name, &f)
		} else {
			b.SetFloat64(name, nil)
		}
	case relational.TypeCodeStruct:
		r, _ := v.AsStruct()
		b.SetStruct(name, r)
	case relational.TypeCodeArray:
		return setArrayColumn(b, name, v)
	default:
		return false
	}
	return true
}

// setArrayColumn keeps a NULL array NULL and an empty array empty.
func setArrayColumn(b *relational.RowBuilder, name string, v relational.Value) bool {
	elems, ok := v.AsArray()
	isNull := !ok
	switch v.Type().ElementType().Code {
	case relational.TypeCodeDate:
		b.SetDateArray(name, pointers(elems, isNull, relational.Value.AsDate))
	case relational.TypeCodeInt64:
		b.SetInt64Array(name, pointers(elems, isNull, relational.Value.AsInt64))
	case relational.TypeCodeString:
		b.SetStringArray(name, pointers(elems, isNull, relational.Value.AsString))
	case relational.TypeCodeTimestamp:
		b.SetTimestampArray(name, pointers(elems, isNull, relational.Value.AsTimestamp))
	case relational.TypeCodeBool:
		b.SetBoolArray(name, pointers(elems, isNull, relational.Value.AsBool))
	case relational.TypeCodeFloat64:
		b.SetFloat64Array(name, pointers(elems, isNull, relational.Value.AsFloat64))
	case relational.TypeCodeBytes:
		if isNull {
			b.SetBytesArray(name, nil)
			break
		}
		out := make([][]byte, len(elems))
		for i, e := range elems {
			out[i], _ = e.AsBytes()
		}
		b.SetBytesArray(name, out)
	case relational.TypeCodeStruct:
		if isNull {
			b.SetStructArray(name, nil)
			break
		}
		out := make([]*relational.Row, len(elems))
		for i, e := range elems {
			out[i], _ = e.AsStruct()
		}
		b.SetStructArray(name, out)
	case relational.TypeCodeArray:
		elem := v.Type().ElementType()
		if !copyable(elem) {
			return false
		}
		if isNull {
			b.Set(name, relational.NullValue(v.Type()))
			break
		}
		out := make([]relational.Value, len(elems))
		for i, e := range elems {
			out[i] = copyNested(e)
		}
		b.Set(name, relational.ArrayValue(elem, out))
	default:
		return false
	}
	return true
}

// copyable reports whether every level of t is a kind setColumn knows.
func copyable(t relational.Type) bool {
	switch t.Code {
	case relational.TypeCodeDate, relational.TypeCodeInt64, relational.TypeCodeString,
		relational.TypeCodeTimestamp, relational.TypeCodeBool, relational.TypeCodeBytes,
		relational.TypeCodeFloat64, relational.TypeCodeStruct:
		return true
	case relational.TypeCodeArray:
		return copyable(t.ElementType())
	default:
		return false
	}
}

// copyNested copies an element of a nested array, one level at a time.
func copyNested(v relational.Value) relational.Value {
	if v.Type().Code != relational.TypeCodeArray {
		return v
	}
	elems, ok := v.AsArray()
	if !ok {
		return relational.NullValue(v.Type())
	}
	out := make([]relational.Value, len(elems))
	for i, e := range elems {
		out[i] = copyNested(e)
	}
	return relational.ArrayValue(v.Type().ElementType(), out)
}

func pointers[T any](elems []relational.Value, isNull bool, get func(relational.Value) (T, bool)) []*T {
	if isNull {
		return nil
	}
	out := make([]*T, len(elems))
	for i, e := range elems {
		if v, ok := get(e); ok {
			out[i] = utils.Ptr(v)
		}
	}
	return out
}
