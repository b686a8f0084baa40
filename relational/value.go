package relational

import (
	"time"

	"cloud.google.com/go/civil"
)

type (
	TypeCode string

	// Type describes the kind of a Value. ArrayElementType is set only for ARRAY.
	Type struct {
		Code             TypeCode `json:"code"`
		ArrayElementType *Type    `json:"arrayElementType,omitempty"`
	}

	// Value is a typed, possibly null, relational value. Nullability belongs to
	// the slot, so a null Value still carries its Type.
	Value struct {
		typ  Type
		null bool
		val  any
	}
)

const (
	TypeCodeBool      TypeCode = "BOOL"
	TypeCodeInt64     TypeCode = "INT64"
	TypeCodeFloat64   TypeCode = "FLOAT64"
	TypeCodeString    TypeCode = "STRING"
	TypeCodeBytes     TypeCode = "BYTES"
	TypeCodeDate      TypeCode = "DATE"
	TypeCodeTimestamp TypeCode = "TIMESTAMP"
	TypeCodeStruct    TypeCode = "STRUCT"
	TypeCodeArray     TypeCode = "ARRAY"

	// Known to the type system but not handled by the converters.
	TypeCodeNumeric TypeCode = "NUMERIC"
	TypeCodeJSON    TypeCode = "JSON"
)

var (
	BoolType      = Type{Code: TypeCodeBool}
	Int64Type     = Type{Code: TypeCodeInt64}
	Float64Type   = Type{Code: TypeCodeFloat64}
	StringType    = Type{Code: TypeCodeString}
	BytesType     = Type{Code: TypeCodeBytes}
	DateType      = Type{Code: TypeCodeDate}
	TimestampType = Type{Code: TypeCodeTimestamp}
	StructType    = Type{Code: TypeCodeStruct}
)

func ArrayOf(elem Type) Type {
	return Type{Code: TypeCodeArray, ArrayElementType: &elem}
}

func (t Type) String() string {
	if t.Code == TypeCodeArray && t.ArrayElementType != nil {
		return "ARRAY<" + t.ArrayElementType.String() + ">"
	}
	return string(t.Code)
}

// ElementType returns the element type of an ARRAY, or the zero Type.
func (t Type) ElementType() Type {
	if t.ArrayElementType == nil {
		return Type{}
	}
	return *t.ArrayElementType
}

func NullValue(t Type) Value {
	return Value{typ: t, null: true}
}

func BoolValue(v bool) Value {
	return Value{typ: BoolType, val: v}
}

func Int64Value(v int64) Value {
	return Value{typ: Int64Type, val: v}
}

func Float64Value(v float64) Value {
	return Value{typ: Float64Type, val: v}
}

func StringValue(v string) Value {
	return Value{typ: StringType, val: v}
}

// BytesValue treats a nil slice as NULL.
func BytesValue(v []byte) Value {
	if v == nil {
		return NullValue(BytesType)
	}
	return Value{typ: BytesType, val: v}
}

func DateValue(v civil.Date) Value {
	return Value{typ: DateType, val: v}
}

func TimestampValue(v time.Time) Value {
	return Value{typ: TimestampType, val: v}
}

// StructValue treats a nil row as NULL.
func StructValue(v *Row) Value {
	if v == nil {
		return NullValue(StructType)
	}
	return Value{typ: StructType, val: v}
}

// ArrayValue builds an ARRAY of elem. A nil elems slice is a NULL array, an
// empty non-nil slice is an empty array.
func ArrayValue(elem Type, elems []Value) Value {
	t := ArrayOf(elem)
	if elems == nil {
		return NullValue(t)
	}
	return Value{typ: t, val: elems}
}

// RawValue holds the textual form of a kind the converters do not interpret,
// such as NUMERIC or JSON.
func RawValue(t Type, raw string) Value {
	return Value{typ: t, val: raw}
}

func (v Value) Type() Type {
	return v.typ
}

func (v Value) IsNull() bool {
	return v.null
}

// Interface returns the payload, nil when the value is NULL.
func (v Value) Interface() any {
	if v.null {
		return nil
	}
	return v.val
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.Interface().(bool)
	return b, ok
}

func (v Value) AsInt64() (int64, bool) {
	i, ok := v.Interface().(int64)
	return i, ok
}

func (v Value) AsFloat64() (float64, bool) {
	f, ok := v.Interface().(float64)
	return f, ok
}

func (v Value) AsString() (string, bool) {
	s, ok := v.Interface().(string)
	return s, ok
}

func (v Value) AsBytes() ([]byte, bool) {
	b, ok := v.Interface().([]byte)
	return b, ok
}

func (v Value) AsDate() (civil.Date, bool) {
	d, ok := v.Interface().(civil.Date)
	return d, ok
}

func (v Value) AsTimestamp() (time.Time, bool) {
	t, ok := v.Interface().(time.Time)
	return t, ok
}

func (v Value) AsStruct() (*Row, bool) {
	r, ok := v.Interface().(*Row)
	return r, ok
}

// AsArray returns the elements of a non-NULL array.
func (v Value) AsArray() ([]Value, bool) {
	a, ok := v.Interface().([]Value)
	return a, ok
}
