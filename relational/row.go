package relational

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

type (
	Field struct {
		Name  string
		Value Value
	}

	// Row is an ordered set of uniquely named fields.
	Row struct {
		fields []Field
	}

	// RowBuilder assembles a Row one column at a time with a setter per kind.
	// Pointer and slice arguments that are nil are written as NULL.
	RowBuilder struct {
		fields []Field
		seen   map[string]struct{}
		err    error
	}
)

var (
	ErrDuplicateField = errors.New("duplicate field name")
	ErrEmptyFieldName = errors.New("empty field name")
)

func NewRow(fields ...Field) (*Row, error) {
	b := NewRowBuilder()
	for _, f := range fields {
		b.Set(f.Name, f.Value)
	}
	return b.Build()
}

// MustNewRow is NewRow for literals known to be valid.
func MustNewRow(fields ...Field) *Row {
	r, err := NewRow(fields...)
	if err != nil {
		panic(err)
	}
	return r
}

// Fields returns the fields in order. The slice is a copy.
func (r *Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *Row) Len() int {
	return len(r.fields)
}

func (r *Row) ColumnNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Value finds a field by name.
func (r *Row) Value(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

func NewRowBuilder() *RowBuilder {
	return &RowBuilder{seen: make(map[string]struct{})}
}

// Set appends an already typed value. The first error is kept and returned by Build.
func (b *RowBuilder) Set(name string, v Value) *RowBuilder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = ErrEmptyFieldName
		return b
	}
	if _, exists := b.seen[name]; exists {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateField, name)
		return b
	}
	b.seen[name] = struct{}{}
	b.fields = append(b.fields, Field{Name: name, Value: v})
	return b
}

func (b *RowBuilder) Build() (*Row, error) {
	if b.err != nil {
		return nil, b.err
	}
	fields := make([]Field, len(b.fields))
	copy(fields, b.fields)
	return &Row{fields: fields}, nil
}

func (b *RowBuilder) SetBool(name string, v *bool) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(BoolType))
	}
	return b.Set(name, BoolValue(*v))
}

func (b *RowBuilder) SetInt64(name string, v *int64) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(Int64Type))
	}
	return b.Set(name, Int64Value(*v))
}

func (b *RowBuilder) SetFloat64(name string, v *float64) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(Float64Type))
	}
	return b.Set(name, Float64Value(*v))
}

func (b *RowBuilder) SetString(name string, v *string) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(StringType))
	}
	return b.Set(name, StringValue(*v))
}

func (b *RowBuilder) SetBytes(name string, v []byte) *RowBuilder {
	return b.Set(name, BytesValue(cloneBytes(v)))
}

func (b *RowBuilder) SetDate(name string, v *civil.Date) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(DateType))
	}
	return b.Set(name, DateValue(*v))
}

func (b *RowBuilder) SetTimestamp(name string, v *time.Time) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(TimestampType))
	}
	return b.Set(name, TimestampValue(*v))
}

func (b *RowBuilder) SetStruct(name string, v *Row) *RowBuilder {
	return b.Set(name, StructValue(v))
}

func (b *RowBuilder) SetBoolArray(name string, v []*bool) *RowBuilder {
	return b.Set(name, pointerArray(BoolType, v, func(e bool) Value { return BoolValue(e) }))
}

func (b *RowBuilder) SetInt64Array(name string, v []*int64) *RowBuilder {
	return b.Set(name, pointerArray(Int64Type, v, func(e int64) Value { return Int64Value(e) }))
}

func (b *RowBuilder) SetFloat64Array(name string, v []*float64) *RowBuilder {
	return b.Set(name, pointerArray(Float64Type, v, func(e float64) Value { return Float64Value(e) }))
}

func (b *RowBuilder) SetStringArray(name string, v []*string) *RowBuilder {
	return b.Set(name, pointerArray(StringType, v, func(e string) Value { return StringValue(e) }))
}

func (b *RowBuilder) SetDateArray(name string, v []*civil.Date) *RowBuilder {
	return b.Set(name, pointerArray(DateType, v, func(e civil.Date) Value { return DateValue(e) }))
}

func (b *RowBuilder) SetTimestampArray(name string, v []*time.Time) *RowBuilder {
	return b.Set(name, pointerArray(TimestampType, v, func(e time.Time) Value { return TimestampValue(e) }))
}

// SetBytesArray writes nil elements as NULL elements.
func (b *RowBuilder) SetBytesArray(name string, v [][]byte) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(ArrayOf(BytesType)))
	}
	elems := make([]Value, len(v))
	for i, e := range v {
		elems[i] = BytesValue(cloneBytes(e))
	}
	return b.Set(name, ArrayValue(BytesType, elems))
}

// SetStructArray writes nil elements as NULL elements.
func (b *RowBuilder) SetStructArray(name string, v []*Row) *RowBuilder {
	if v == nil {
		return b.Set(name, NullValue(ArrayOf(StructType)))
	}
	elems := make([]Value, len(v))
	for i, e := range v {
		elems[i] = StructValue(e)
	}
	return b.Set(name, ArrayValue(StructType, elems))
}

func pointerArray[T any](elem Type, v []*T, mk func(T) Value) Value {
	if v == nil {
		return NullValue(ArrayOf(elem))
	}
	elems := make([]Value, len(v))
	for i, e := range v {
		if e == nil {
			elems[i] = NullValue(elem)
			continue
		}
		elems[i] = mk(*e)
	}
	return ArrayValue(elem, elems)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
