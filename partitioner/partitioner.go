package partitioner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/danthegoodman1/rowbridge/table"
)

type (
	PartitionPlan struct {
		Func string   `validate:"required"`
		Args []string `validate:"required,min=1"`
		As   string   `validate:"required"`
	}

	PartitionFunc func(row *table.Row, args []string) (string, error)
)

var (
	Functions = make(map[string]PartitionFunc)

	ErrFuncNotFound = errors.New("partition function not found")

	ErrMissingArgs       = errors.New("missing args")
	ErrMissingColumns    = errors.New("missing one or more columns specified in args")
	ErrInvalidColumnType = errors.New("invalid column type")
)

func timeFunc(format func(t time.Time) string) PartitionFunc {
	return func(row *table.Row, args []string) (string, error) {
		t, err := parseTimeFunc(row, args)
		if err != nil {
			return "", fmt.Errorf("error in parseTimeFunc: %w", err)
		}
		return format(t), nil
	}
}

func RegisterFunctions() {
	Functions["toDay"] = timeFunc(func(t time.Time) string {
		return fmt.Sprint(t.Day())
	})
	Functions["toMonth"] = timeFunc(func(t time.Time) string {
		return fmt.Sprint(t.Month())
	})
	Functions["toYear"] = timeFunc(func(t time.Time) string {
		return fmt.Sprint(t.Year())
	})
	Functions["toYearDay"] = timeFunc(func(t time.Time) string {
		return fmt.Sprint(t.YearDay())
	})
	Functions["toYearWeek"] = timeFunc(func(t time.Time) string {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-%d", year, week)
	})
	Functions["toWeekDay"] = timeFunc(func(t time.Time) string {
		return fmt.Sprint(t.Weekday())
	})
	Functions["toDate"] = timeFunc(func(t time.Time) string {
		return civil.DateOf(t).String()
	})
	// column partitions on the raw value of a scalar column
	Functions["column"] = func(row *table.Row, args []string) (string, error) {
		if len(args) == 0 {
			return "", ErrMissingArgs
		}
		value, exists := row.Get(args[0])
		if !exists || value == nil {
			return "", ErrMissingColumns
		}
		switch value.(type) {
		case *table.Row, []any:
			return "", ErrInvalidColumnType
		}
		return fmt.Sprint(value), nil
	}
}

func GetRowPartition(row *table.Row, partitioners []PartitionPlan) (string, error) {
	var finalParts []string
	for _, partFunc := range partitioners {
		f, ok := Functions[partFunc.Func]
		if !ok {
			return "", fmt.Errorf("%s: %w", partFunc.Func, ErrFuncNotFound)
		}

		s, err := f(row, partFunc.Args)
		if err != nil {
			return "", fmt.Errorf("error processing partition function %s: %w", partFunc.Func, err)
		}
		finalParts = append(finalParts, fmt.Sprintf("%s=%s", partFunc.As, s))
	}
	return strings.Join(finalParts, "/"), nil
}

// parseTimeFunc reads the time held by the column named in args[0]. Warehouse
// rows carry timestamps as whole epoch seconds and dates or datetimes as text.
func parseTimeFunc(row *table.Row, args []string) (t time.Time, err error) {
	if len(args) == 0 {
		err = ErrMissingArgs
		return
	}

	key := args[0]
	if key == "now()" {
		return time.Now().UTC(), nil
	}

	value, exists := row.Get(key)
	if !exists || value == nil {
		err = ErrMissingColumns
		return
	}

	switch val := value.(type) {
	case int64:
		t = time.Unix(val, 0).UTC()
	case float64:
		// milliseconds from JSON input
		t = time.UnixMilli(int64(val)).UTC()
	case time.Time:
		t = val.UTC()
	case string:
		t, err = parseTimeString(val)
	default:
		err = ErrInvalidColumnType
	}
	return
}

func parseTimeString(s string) (time.Time, error) {
	if d, err := civil.ParseDate(s); err == nil {
		return d.In(time.UTC), nil
	}
	if dt, err := civil.ParseDateTime(s); err == nil {
		return dt.In(time.UTC), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("error in time.Parse for string: %w", err)
	}
	return t.UTC(), nil
}
