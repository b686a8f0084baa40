package avro_projector

import (
	"math/big"
	"reflect"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/danthegoodman1/rowbridge/table"
)

var (
	epochDate = civil.Date{Year: 1970, Month: time.January, Day: 1}
	dayLength = 24 * time.Hour
)

// ToTableRow converts a decoded Avro record into a warehouse row shaped like
// ToTableSchema(s). Fields whose converted value is nil are left out.
func ToTableRow(s *RecordSchema, record map[string]any) (*table.Row, error) {
	return s.tableRow(record)
}

func (s *RecordSchema) tableRow(record map[string]any) (*table.Row, error) {
	row := table.NewRow()
	for _, f := range s.Fields {
		v, err := f.Schema.tableValue(record[f.Name])
		if err != nil {
			return nil, errors.Wrapf(err, "field %q of %q", f.Name, s.FullName())
		}
		if v == nil {
			continue
		}
		row.Set(f.Name, v)
	}
	return row, nil
}

func (s *RecordSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(s, v)
	}
	return s.tableRow(m)
}

func (s *PrimitiveSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch s.Type {
	case Null:
		return nil, nil
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(s, v)
		}
		return b, nil
	case Int:
		switch s.LogicalName() {
		case LogicalDate:
			return dateValue(s, v)
		case LogicalTimeMillis:
			return timeOfDayValue(s, v, time.Millisecond)
		}
		n, ok := integer(v)
		if !ok {
			return nil, mismatch(s, v)
		}
		return n, nil
	case Long:
		switch s.LogicalName() {
		case LogicalTimestampMillis:
			return timestampValue(s, v, 1_000)
		case LogicalTimestampMicros:
			return timestampValue(s, v, 1_000_000)
		case LogicalTimeMicros:
			return timeOfDayValue(s, v, time.Microsecond)
		case LogicalLocalTimestampMillis:
			return localTimestampValue(s, v, time.Millisecond)
		case LogicalLocalTimestampMicros:
			return localTimestampValue(s, v, time.Microsecond)
		}
		n, ok := integer(v)
		if !ok {
			return nil, mismatch(s, v)
		}
		return n, nil
	case Float, Double:
		switch f := v.(type) {
		case float32:
			return float64(f), nil
		case float64:
			return f, nil
		}
		return nil, mismatch(s, v)
	case Bytes:
		return bytesValue(s, s.Logical, v)
	case String:
		switch str := v.(type) {
		case string:
			return str, nil
		case []byte:
			return string(str), nil
		}
		return nil, mismatch(s, v)
	}
	return nil, mismatch(s, v)
}

func (s *FixedSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return bytesValue(s, s.Logical, v)
}

func (s *EnumSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	str, ok := v.(string)
	if !ok {
		return nil, mismatch(s, v)
	}
	return str, nil
}

// Map entries come out as {key, value} rows sorted by key.
func (s *MapSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(s, v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]any, 0, len(keys))
	for _, k := range keys {
		val, err := s.Values.tableValue(m[k])
		if err != nil {
			return nil, errors.Wrapf(err, "map key %q", k)
		}
		entry := table.NewRow().Set("key", k)
		if val != nil {
			entry.Set("value", val)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// goavro hands union values over as a single entry map keyed by the branch
// name. Plain values are accepted too.
func (s *UnionSchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	alt, ok := s.NonNull()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedShape, "union of %d types", len(s.Types))
	}
	if wrapped, ok := v.(map[string]any); ok && len(wrapped) == 1 {
		for key, inner := range wrapped {
			switch alt.(type) {
			case *RecordSchema, *MapSchema:
				if key == alt.unionKey() || key == nameOnly(alt) {
					v = inner
				}
			default:
				v = inner
			}
		}
		if v == nil {
			return nil, nil
		}
	}
	return alt.tableValue(v)
}

// Null elements are dropped, the rest keep their order.
func (s *ArraySchema) tableValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if inner, ok := s.repeatedItems(); ok {
		return nil, errors.Wrapf(ErrUnsupportedShape, "array of %s", inner.TypeName())
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, mismatch(s, v)
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := s.Items.tableValue(rv.Index(i).Interface())
		if err != nil {
			return nil, errors.Wrapf(err, "array index %d", i)
		}
		if elem == nil {
			continue
		}
		out = append(out, elem)
	}
	return out, nil
}

func nameOnly(s Schema) string {
	if r, ok := s.(*RecordSchema); ok {
		return r.Name
	}
	return s.unionKey()
}

func mismatch(s Schema, v any) error {
	return errors.Wrapf(ErrValueMismatch, "expected %s, got %T", s.TypeName(), v)
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	}
	return 0, false
}

// dateValue renders days since the epoch, or goavro's time.Time, as YYYY-MM-DD.
func dateValue(s Schema, v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return civil.DateOf(t.UTC()).String(), nil
	}
	days, ok := integer(v)
	if !ok {
		return nil, mismatch(s, v)
	}
	return epochDate.AddDays(int(days)).String(), nil
}

func timeOfDayValue(s Schema, v any, unit time.Duration) (any, error) {
	var d time.Duration
	switch n := v.(type) {
	case time.Duration:
		d = n
	default:
		count, ok := integer(v)
		if !ok {
			return nil, mismatch(s, v)
		}
		if count < 0 || count >= int64(dayLength/unit) {
			return nil, errors.Wrapf(ErrValueMismatch, "time of day %d%s out of range", count, unitSuffix(unit))
		}
		d = time.Duration(count) * unit
	}
	if d < 0 || d >= dayLength {
		return nil, errors.Wrapf(ErrValueMismatch, "time of day %s out of range", d)
	}
	return civil.TimeOf(time.Unix(0, 0).UTC().Add(d)).String(), nil
}

func unitSuffix(unit time.Duration) string {
	if unit == time.Millisecond {
		return "ms"
	}
	return "us"
}

// timestampValue returns whole seconds since the epoch, truncated toward zero.
func timestampValue(s Schema, v any, perSecond int64) (any, error) {
	if t, ok := v.(time.Time); ok {
		if perSecond == 1_000 {
			return t.UnixMilli() / perSecond, nil
		}
		return t.UnixMicro() / perSecond, nil
	}
	n, ok := integer(v)
	if !ok {
		return nil, mismatch(s, v)
	}
	return n / perSecond, nil
}

func localTimestampValue(s Schema, v any, unit time.Duration) (any, error) {
	if t, ok := v.(time.Time); ok {
		return civil.DateTimeOf(t.UTC()).String(), nil
	}
	n, ok := integer(v)
	if !ok {
		return nil, mismatch(s, v)
	}
	var t time.Time
	if unit == time.Millisecond {
		t = time.UnixMilli(n)
	} else {
		t = time.UnixMicro(n)
	}
	return civil.DateTimeOf(t.UTC()).String(), nil
}

func bytesValue(s Schema, l *LogicalType, v any) (any, error) {
	if logicalName(l) == LogicalDecimal {
		return decimalValue(s, v, l.Scale)
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, mismatch(s, v)
}

// decimalValue reads a big-endian two's complement unscaled integer, or
// goavro's *big.Rat, at the given scale. Empty bytes are zero.
func decimalValue(s Schema, v any, scale int) (*apd.Decimal, error) {
	var unscaled *big.Int
	switch d := v.(type) {
	case []byte:
		unscaled = fromTwosComplement(d)
	case string:
		unscaled = fromTwosComplement([]byte(d))
	case *big.Rat:
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
		unscaled = new(big.Int).Mul(d.Num(), pow)
		unscaled.Quo(unscaled, d.Denom())
	default:
		return nil, mismatch(s, v)
	}
	return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(unscaled), -int32(scale)), nil
}

func fromTwosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
