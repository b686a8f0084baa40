package partitioner

import (
	"fmt"
	"testing"
	"time"

	"github.com/danthegoodman1/rowbridge/table"
	"github.com/stretchr/testify/require"
)

func row(key string, val any) *table.Row {
	return table.NewRow().Set(key, val)
}

func TestToDay(t *testing.T) {
	RegisterFunctions()

	f := Functions["toDay"]

	day, err := f(row("hey", "ho"), []string{"now()"})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprint(time.Now().UTC().Day()), day)

	for _, val := range []any{
		"2022-01-24T00:00:00.000Z",
		"2022-01-24",
		"2022-01-24T13:45:00.5",
		int64(1643032800),
		1643032800000.0,
	} {
		day, err = f(row("t", val), []string{"t"})
		require.NoError(t, err, val)
		require.Equal(t, "24", day, val)
	}

	_, err = f(row("t", 1672406408279), []string{"t"})
	require.ErrorIs(t, err, ErrInvalidColumnType)

	_, err = f(row("t", "yesterday"), []string{"t"})
	require.Error(t, err)

	_, err = f(row("t", nil), []string{"t"})
	require.ErrorIs(t, err, ErrMissingColumns)

	_, err = f(row("t", int64(0)), nil)
	require.ErrorIs(t, err, ErrMissingArgs)
}

func TestGetRowPartition(t *testing.T) {
	RegisterFunctions()

	r := table.NewRow().
		Set("placed", int64(1620000000)).
		Set("region", "eu").
		Set("nested", table.NewRow().Set("a", 1))

	part, err := GetRowPartition(r, []PartitionPlan{
		{Func: "toYear", Args: []string{"placed"}, As: "y"},
		{Func: "toMonth", Args: []string{"placed"}, As: "m"},
		{Func: "toDate", Args: []string{"placed"}, As: "d"},
		{Func: "column", Args: []string{"region"}, As: "region"},
	})
	require.NoError(t, err)
	require.Equal(t, "y=2021/m=May/d=2021-05-03/region=eu", part)

	part, err = GetRowPartition(r, []PartitionPlan{{Func: "toYearWeek", Args: []string{"placed"}, As: "w"}})
	require.NoError(t, err)
	require.Equal(t, "w=2021-18", part)

	_, err = GetRowPartition(r, []PartitionPlan{{Func: "nope", Args: []string{"placed"}, As: "x"}})
	require.ErrorIs(t, err, ErrFuncNotFound)

	_, err = GetRowPartition(r, []PartitionPlan{{Func: "column", Args: []string{"nested"}, As: "x"}})
	require.ErrorIs(t, err, ErrInvalidColumnType)

	part, err = GetRowPartition(r, nil)
	require.NoError(t, err)
	require.Equal(t, "", part)
}
