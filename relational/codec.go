package relational

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// Wire format, one object per field:
//
//	{"name": "id", "type": {"code": "INT64"}, "value": "42"}
//
// INT64 travels as a decimal string (numbers are accepted too), BYTES as std
// base64, DATE as YYYY-MM-DD, TIMESTAMP as RFC 3339, STRUCT as a list of fields
// and ARRAY as a list of element payloads. Kinds the converters do not
// interpret keep their raw text.

type wireField struct {
	Name  string          `json:"name"`
	Type  Type            `json:"type"`
	Value json.RawMessage `json:"value"`
}

var ErrInvalidValue = errors.New("invalid value")

func (f Field) MarshalJSON() ([]byte, error) {
	payload, err := encodePayload(f.Value)
	if err != nil {
		return nil, fmt.Errorf("error encoding field %s: %w", f.Name, err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error in json.Marshal of field %s: %w", f.Name, err)
	}
	return json.Marshal(wireField{Name: f.Name, Type: f.Value.Type(), Value: raw})
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var wf wireField
	if err := json.Unmarshal(b, &wf); err != nil {
		return fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	if wf.Type.Code == "" {
		return fmt.Errorf("%w: field %s has no type code", ErrInvalidValue, wf.Name)
	}
	v, err := decodeValue(wf.Type, wf.Value)
	if err != nil {
		return fmt.Errorf("error decoding field %s: %w", wf.Name, err)
	}
	f.Name = wf.Name
	f.Value = v
	return nil
}

func (r *Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// UnmarshalJSON rejects duplicate field names the same way NewRow does.
func (r *Row) UnmarshalJSON(b []byte) error {
	var fields []Field
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	row, err := NewRow(fields...)
	if err != nil {
		return err
	}
	*r = *row
	return nil
}

func encodePayload(v Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type().Code {
	case TypeCodeInt64:
		i, _ := v.AsInt64()
		return strconv.FormatInt(i, 10), nil
	case TypeCodeFloat64:
		f, _ := v.AsFloat64()
		switch {
		case math.IsNaN(f):
			return "NaN", nil
		case math.IsInf(f, 1):
			return "Infinity", nil
		case math.IsInf(f, -1):
			return "-Infinity", nil
		}
		return f, nil
	case TypeCodeBytes:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b), nil
	case TypeCodeDate:
		d, _ := v.AsDate()
		return d.String(), nil
	case TypeCodeTimestamp:
		t, _ := v.AsTimestamp()
		return t.UTC().Format(time.RFC3339Nano), nil
	case TypeCodeArray:
		elems, _ := v.AsArray()
		out := make([]any, len(elems))
		for i, e := range elems {
			p, err := encodePayload(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	default:
		return v.Interface(), nil
	}
}

func decodeValue(t Type, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return NullValue(t), nil
	}
	switch t.Code {
	case TypeCodeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return BoolValue(b), nil
	case TypeCodeInt64:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return Int64Value(i), nil
	case TypeCodeFloat64:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
			}
			return Float64Value(f), nil
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return Float64Value(f), nil
	case TypeCodeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return StringValue(s), nil
	case TypeCodeBytes:
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return BytesValue(b), nil
	case TypeCodeDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		d, err := civil.ParseDate(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return DateValue(d), nil
	case TypeCodeTimestamp:
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		return TimestampValue(ts), nil
	case TypeCodeStruct:
		row := &Row{}
		if err := json.Unmarshal(raw, row); err != nil {
			return Value{}, err
		}
		return StructValue(row), nil
	case TypeCodeArray:
		if t.ArrayElementType == nil {
			return Value{}, fmt.Errorf("%w: ARRAY without element type", ErrInvalidValue)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrInvalidValue, err)
		}
		elems := make([]Value, len(items))
		for i, item := range items {
			e, err := decodeValue(*t.ArrayElementType, item)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = e
		}
		return ArrayValue(*t.ArrayElementType, elems), nil
	default:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return RawValue(t, s), nil
		}
		return RawValue(t, string(raw)), nil
	}
}
