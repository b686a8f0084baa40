package relational

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
)

func TestNewRowRejectsDuplicates(t *testing.T) {
	_, err := NewRow(
		Field{Name: "a", Value: Int64Value(1)},
		Field{Name: "a", Value: Int64Value(2)},
	)
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}

	_, err = NewRow(Field{Name: "", Value: Int64Value(1)})
	require.ErrorIs(t, err, ErrEmptyFieldName)
}

func TestBuilderNullVersusEmptyArray(t *testing.T) {
	one := int64(1)
	row, err := NewRowBuilder().
		SetInt64Array("null_arr", nil).
		SetInt64Array("empty_arr", []*int64{}).
		SetInt64Array("with_null", []*int64{&one, nil}).
		SetBytes("blob", nil).
		Build()
	require.NoError(t, err)

	v, ok := row.Value("null_arr")
	require.True(t, ok)
	require.True(t, v.IsNull())
	require.Equal(t, "ARRAY<INT64>", v.Type().String())

	v, _ = row.Value("empty_arr")
	require.False(t, v.IsNull())
	elems, ok := v.AsArray()
	require.True(t, ok)
	require.Len(t, elems, 0)

	v, _ = row.Value("with_null")
	elems, _ = v.AsArray()
	require.Len(t, elems, 2)
	require.True(t, elems[1].IsNull())
	require.Equal(t, Int64Type, elems[1].Type())

	v, _ = row.Value("blob")
	require.True(t, v.IsNull())
}

func TestBuilderCopiesBytes(t *testing.T) {
	src := []byte("abc")
	row, err := NewRowBuilder().SetBytes("b", src).Build()
	require.NoError(t, err)
	src[0] = 'z'
	v, _ := row.Value("b")
	b, _ := v.AsBytes()
	require.Equal(t, "abc", string(b))
}

func TestRowJSONRoundTrip(t *testing.T) {
	ts := time.Date(2021, 5, 3, 0, 0, 1, 500, time.UTC)
	inner := MustNewRow(Field{Name: "x", Value: StringValue("y")})
	row := MustNewRow(
		Field{Name: "id", Value: Int64Value(9007199254740993)},
		Field{Name: "score", Value: Float64Value(1.5)},
		Field{Name: "ok", Value: BoolValue(true)},
		Field{Name: "blob", Value: BytesValue([]byte{0, 1, 2})},
		Field{Name: "day", Value: DateValue(civil.Date{Year: 2020, Month: 2, Day: 29})},
		Field{Name: "at", Value: TimestampValue(ts)},
		Field{Name: "inner", Value: StructValue(inner)},
		Field{Name: "tags", Value: ArrayValue(StringType, []Value{StringValue("a"), NullValue(StringType)})},
		Field{Name: "missing", Value: NullValue(StringType)},
		Field{Name: "amount", Value: RawValue(Type{Code: TypeCodeNumeric}, "12.30")},
	)

	b, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded Row
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, row.ColumnNames(), decoded.ColumnNames())

	id, _ := decoded.Value("id")
	i, ok := id.AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(9007199254740993), i)

	at, _ := decoded.Value("at")
	got, _ := at.AsTimestamp()
	require.True(t, ts.Equal(got))

	tags, _ := decoded.Value("tags")
	elems, _ := tags.AsArray()
	require.Len(t, elems, 2)
	require.True(t, elems[1].IsNull())

	in, _ := decoded.Value("inner")
	r, ok := in.AsStruct()
	require.True(t, ok)
	x, _ := r.Value("x")
	s, _ := x.AsString()
	require.Equal(t, "y", s)

	amount, _ := decoded.Value("amount")
	raw, _ := amount.AsString()
	require.Equal(t, "12.30", raw)
	require.Equal(t, TypeCodeNumeric, amount.Type().Code)
}

func TestDecodeRejectsBadPayload(t *testing.T) {
	var f Field
	err := json.Unmarshal([]byte(`{"name":"d","type":{"code":"DATE"},"value":"not-a-date"}`), &f)
	require.ErrorIs(t, err, ErrInvalidValue)

	err = json.Unmarshal([]byte(`{"name":"a","type":{"code":"ARRAY"},"value":[]}`), &f)
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestMutationGroupOrder(t *testing.T) {
	g := MutationGroup{
		Primary: NewMutation("Singers", OpInsert, Field{Name: "id", Value: Int64Value(1)}),
		Attached: []Mutation{
			NewMutation("Albums", OpInsert, Field{Name: "id", Value: Int64Value(2)}),
			NewMutation("Songs", OpUpdate, Field{Name: "id", Value: Int64Value(3)}),
		},
	}
	ms := g.Mutations()
	require.Len(t, ms, 3)
	require.Equal(t, "Albums", ms[0].Table)
	require.Equal(t, "Songs", ms[1].Table)
	require.Equal(t, "Singers", ms[2].Table)
}
