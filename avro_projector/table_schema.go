package avro_projector

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/danthegoodman1/rowbridge/utils"
)

var (
	// ErrUnsupportedShape is returned for schemas that have no table layout.
	// Retrying with the same schema fails the same way.
	ErrUnsupportedShape = utils.PermError("unsupported avro shape")

	ErrValueMismatch = errors.New("value does not match avro schema")
)

// ToTableSchema converts a record schema into the warehouse table layout. Every
// top level field is REQUIRED unless its own shape says otherwise.
func ToTableSchema(s Schema) (*table.Schema, error) {
	r, ok := s.(*RecordSchema)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedShape, "top level schema must be a record, got %s", s.TypeName())
	}
	fields, err := r.tableFields()
	if err != nil {
		return nil, err
	}
	return &table.Schema{Fields: fields}, nil
}

// TableSchemaJSON is ToTableSchema rendered as the JSON handed to the warehouse.
func TableSchemaJSON(s Schema) (string, error) {
	ts, err := ToTableSchema(s)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(ts)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	logger.Debug().Str("tableSchema", string(b)).Msg("converted avro schema")
	return string(b), nil
}

func (s *RecordSchema) tableFields() ([]*table.FieldSchema, error) {
	fields := make([]*table.FieldSchema, 0, len(s.Fields))
	for _, f := range s.Fields {
		fs, err := f.Schema.tableField(f.Name, table.Required)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q of %q", f.Name, s.FullName())
		}
		fields = append(fields, fs)
	}
	return fields, nil
}

func (s *PrimitiveSchema) tableField(name string, mode table.FieldMode) (*table.FieldSchema, error) {
	var t table.FieldType
	switch s.Type {
	case Null:
		return nil, errors.Wrapf(ErrUnsupportedShape, "field %q is a bare null", name)
	case Boolean:
		t = table.Bool
	case Int:
		switch s.LogicalName() {
		case LogicalDate:
			t = table.Date
		case LogicalTimeMillis:
			t = table.Time
		default:
			t = table.Int64
		}
	case Long:
		switch s.LogicalName() {
		case LogicalTimestampMillis, LogicalTimestampMicros:
			t = table.Timestamp
		case LogicalTimeMicros:
			t = table.Time
		case LogicalLocalTimestampMillis, LogicalLocalTimestampMicros:
			t = table.DateTime
		default:
			t = table.Int64
		}
	case Float, Double:
		t = table.Float64
	case Bytes:
		t = bytesType(s.Logical)
	case String:
		t = table.String
	default:
		return nil, errors.Wrapf(ErrUnsupportedShape, "field %q has unknown primitive %q", name, s.Type)
	}
	return &table.FieldSchema{Name: name, Type: t, Mode: mode}, nil
}

func (s *FixedSchema) tableField(name string, mode table.FieldMode) (*table.FieldSchema, error) {
	return &table.FieldSchema{Name: name, Type: bytesType(s.Logical), Mode: mode}, nil
}

func (s *EnumSchema) tableField(name string, mode table.FieldMode) (*table.FieldSchema, error) {
	return &table.FieldSchema{Name: name, Type: table.String, Mode: mode}, nil
}

func (s *RecordSchema) tableField(name string, mode table.FieldMode) (*table.FieldSchema, error) {
	fields, err := s.tableFields()
	if err != nil {
		return nil, err
	}
	return &table.FieldSchema{Name: name, Type: table.Struct, Mode: mode, Fields: fields}, nil
}

// A map becomes a repeated key/value struct whatever mode the parent asked for.
func (s *MapSchema) tableField(name string, _ table.FieldMode) (*table.FieldSchema, error) {
	value, err := s.Values.tableField("value", table.Required)
	if err != nil {
		return nil, errors.Wrapf(err, "values of map %q", name)
	}
	return &table.FieldSchema{
		Name: name,
		Type: table.Struct,
		Mode: table.Repeated,
		Fields: []*table.FieldSchema{
			{Name: "key", Type: table.String, Mode: table.Required},
			value,
		},
	}, nil
}

func (s *UnionSchema) tableField(name string, _ table.FieldMode) (*table.FieldSchema, error) {
	alt, ok := s.NonNull()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedShape, "field %q: only unions of null and one other type are supported", name)
	}
	return alt.tableField(name, table.Nullable)
}

func (s *ArraySchema) tableField(name string, _ table.FieldMode) (*table.FieldSchema, error) {
	if inner, ok := s.repeatedItems(); ok {
		return nil, errors.Wrapf(ErrUnsupportedShape, "field %q: array of %s", name, inner.TypeName())
	}
	elem, err := s.Items.tableField(name, table.Required)
	if err != nil {
		return nil, err
	}
	return elem.WithMode(table.Repeated), nil
}

// repeatedItems returns the items schema, seen through a nullable union, when
// it is itself repeated.
func (s *ArraySchema) repeatedItems() (Schema, bool) {
	items := s.Items
	if u, ok := items.(*UnionSchema); ok {
		if alt, ok := u.NonNull(); ok {
			items = alt
		}
	}
	switch items.(type) {
	case *ArraySchema, *MapSchema:
		return items, true
	}
	return nil, false
}

func bytesType(l *LogicalType) table.FieldType {
	if logicalName(l) == LogicalDecimal {
		return table.Numeric
	}
	return table.Bytes
}

func (s *PrimitiveSchema) unionKey() string {
	if s.Logical != nil {
		return string(s.Type) + "." + s.Logical.Name
	}
	return string(s.Type)
}

func (s *FixedSchema) unionKey() string  { return s.FullName() }
func (s *EnumSchema) unionKey() string   { return s.FullName() }
func (s *RecordSchema) unionKey() string { return s.FullName() }
func (s *ArraySchema) unionKey() string  { return "array" }
func (s *MapSchema) unionKey() string    { return "map" }
func (s *UnionSchema) unionKey() string  { return "union" }
