package mutation_replayer

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/danthegoodman1/rowbridge/relational"
	"github.com/stretchr/testify/require"
)

func TestToRowCopiesEveryKnownKind(t *testing.T) {
	inner := relational.MustNewRow(relational.Field{Name: "x", Value: relational.Int64Value(1)})
	at := time.Date(2022, 1, 24, 10, 0, 0, 0, time.UTC)
	m := relational.NewMutation("Singers", relational.OpInsertOrUpdate,
		relational.Field{Name: "id", Value: relational.Int64Value(5)},
		relational.Field{Name: "name", Value: relational.StringValue("Marc")},
		relational.Field{Name: "bio", Value: relational.NullValue(relational.StringType)},
		relational.Field{Name: "active", Value: relational.BoolValue(false)},
		relational.Field{Name: "score", Value: relational.Float64Value(0.25)},
		relational.Field{Name: "photo", Value: relational.BytesValue([]byte{9, 9})},
		relational.Field{Name: "born", Value: relational.DateValue(civil.Date{Year: 1990, Month: 7, Day: 1})},
		relational.Field{Name: "updated", Value: relational.TimestampValue(at)},
		relational.Field{Name: "meta", Value: relational.StructValue(inner)},
	)

	row, err := ToRow(m)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name", "bio", "active", "score", "photo", "born", "updated", "meta"}, row.ColumnNames())

	for _, col := range m.Columns {
		got, ok := row.Value(col.Name)
		require.True(t, ok, col.Name)
		require.Equal(t, col.Value.Type(), got.Type(), col.Name)
		require.Equal(t, col.Value.IsNull(), got.IsNull(), col.Name)
		require.Equal(t, col.Value.Interface(), got.Interface(), col.Name)
	}
}

func TestToRowArrays(t *testing.T) {
	m := relational.NewMutation("T", relational.OpUpdate,
		relational.Field{Name: "null_ints", Value: relational.NullValue(relational.ArrayOf(relational.Int64Type))},
		relational.Field{Name: "empty_ints", Value: relational.ArrayValue(relational.Int64Type, []relational.Value{})},
		relational.Field{Name: "strs", Value: relational.ArrayValue(relational.StringType, []relational.Value{
			relational.StringValue("a"), relational.NullValue(relational.StringType),
		})},
		relational.Field{Name: "blobs", Value: relational.ArrayValue(relational.BytesType, []relational.Value{
			relational.BytesValue([]byte("z")),
		})},
		relational.Field{Name: "days", Value: relational.ArrayValue(relational.DateType, []relational.Value{
			relational.DateValue(civil.Date{Year: 2000, Month: 1, Day: 1}),
		})},
		relational.Field{Name: "rows", Value: relational.ArrayValue(relational.StructType, []relational.Value{
			relational.StructValue(relational.MustNewRow(relational.Field{Name: "k", Value: relational.StringValue("v")})),
		})},
	)
	row, err := ToRow(m)
	require.NoError(t, err)

	v, _ := row.Value("null_ints")
	require.True(t, v.IsNull())

	v, _ = row.Value("empty_ints")
	require.False(t, v.IsNull())
	elems, ok := v.AsArray()
	require.True(t, ok)
	require.Empty(t, elems)

	v, _ = row.Value("strs")
	elems, _ = v.AsArray()
	require.Len(t, elems, 2)
	s, _ := elems[0].AsString()
	require.Equal(t, "a", s)
	require.True(t, elems[1].IsNull())

	v, _ = row.Value("blobs")
	elems, _ = v.AsArray()
	b, _ := elems[0].AsBytes()
	require.Equal(t, []byte("z"), b)

	v, _ = row.Value("days")
	require.Equal(t, "ARRAY<DATE>", v.Type().String())

	v, _ = row.Value("rows")
	elems, _ = v.AsArray()
	r, ok := elems[0].AsStruct()
	require.True(t, ok)
	require.Equal(t, []string{"k"}, r.ColumnNames())
}

func TestToRowNestedArrays(t *testing.T) {
	ints := relational.ArrayOf(relational.Int64Type)
	m := relational.NewMutation("T", relational.OpInsert,
		relational.Field{Name: "id", Value: relational.Int64Value(1)},
		relational.Field{Name: "grid", Value: relational.ArrayValue(ints, []relational.Value{
			relational.ArrayValue(relational.Int64Type, []relational.Value{relational.Int64Value(1), relational.Int64Value(2)}),
			relational.NullValue(ints),
			relational.ArrayValue(relational.Int64Type, []relational.Value{}),
		})},
		relational.Field{Name: "null_grid", Value: relational.NullValue(relational.ArrayOf(ints))},
		relational.Field{Name: "prices", Value: relational.ArrayValue(relational.ArrayOf(relational.Type{Code: relational.TypeCodeNumeric}), []relational.Value{})},
	)
	row, err := ToRow(m)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "grid", "null_grid"}, row.ColumnNames())

	v, _ := row.Value("grid")
	require.Equal(t, "ARRAY<ARRAY<INT64>>", v.Type().String())
	outer, ok := v.AsArray()
	require.True(t, ok)
	require.Len(t, outer, 3)

	first, ok := outer[0].AsArray()
	require.True(t, ok)
	require.Len(t, first, 2)
	i, _ := first[1].AsInt64()
	require.Equal(t, int64(2), i)

	require.True(t, outer[1].IsNull())
	require.Equal(t, ints, outer[1].Type())

	empty, ok := outer[2].AsArray()
	require.True(t, ok)
	require.Empty(t, empty)

	v, _ = row.Value("null_grid")
	require.True(t, v.IsNull())
	require.Equal(t, "ARRAY<ARRAY<INT64>>", v.Type().String())
}

func TestToRowSkipsUnknownKinds(t *testing.T) {
	m := relational.NewMutation("T", relational.OpInsert,
		relational.Field{Name: "id", Value: relational.Int64Value(1)},
		relational.Field{Name: "price", Value: relational.RawValue(relational.Type{Code: relational.TypeCodeNumeric}, "9.99")},
		relational.Field{Name: "doc", Value: relational.RawValue(relational.Type{Code: relational.TypeCodeJSON}, `{"a":1}`)},
		relational.Field{Name: "prices", Value: relational.ArrayValue(relational.Type{Code: relational.TypeCodeNumeric}, []relational.Value{})},
	)
	row, err := ToRow(m)
	require.NoError(t, err)
	require.Equal(t, []string{"id"}, row.ColumnNames())
}

func TestToRowsOrdersPrimaryLast(t *testing.T) {
	mk := func(table string, id int64) relational.Mutation {
		return relational.NewMutation(table, relational.OpInsert, relational.Field{Name: "id", Value: relational.Int64Value(id)})
	}
	g := relational.MutationGroup{
		Primary:  mk("Singers", 1),
		Attached: []relational.Mutation{mk("Albums", 2), mk("Songs", 3), mk("Albums", 4)},
	}
	rows, err := ToRows(g)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(g.Attached))

	var ids []int64
	for _, r := range rows {
		v, _ := r.Value("id")
		i, _ := v.AsInt64()
		ids = append(ids, i)
	}
	require.Equal(t, []int64{2, 3, 4, 1}, ids)

	rows, err = ToRows(relational.MutationGroup{Primary: mk("Singers", 1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestToRowDuplicateColumn(t *testing.T) {
	m := relational.NewMutation("T", relational.OpInsert,
		relational.Field{Name: "id", Value: relational.Int64Value(1)},
		relational.Field{Name: "id", Value: relational.Int64Value(2)},
	)
	_, err := ToRow(m)
	require.ErrorIs(t, err, relational.ErrDuplicateField)

	_, err = ToRows(relational.MutationGroup{Primary: m})
	require.ErrorIs(t, err, relational.ErrDuplicateField)
}
