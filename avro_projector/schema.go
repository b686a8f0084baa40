package avro_projector

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/linkedin/goavro/v2"
)

type (
	// Schema is one node of a parsed Avro schema tree. The set of node types is
	// closed: each one knows how to become a table field and how to convert a
	// value of its shape.
	Schema interface {
		// TypeName is the Avro type name of the node, "record", "long", "fixed" etc.
		TypeName() string

		unionKey() string
		tableField(name string, mode table.FieldMode) (*table.FieldSchema, error)
		tableValue(v any) (any, error)
	}

	PrimitiveType string

	LogicalType struct {
		Name      string
		Precision int
		Scale     int
	}

	PrimitiveSchema struct {
		Type    PrimitiveType
		Logical *LogicalType
	}

	FixedSchema struct {
		Name      string
		Namespace string
		Size      int
		Logical   *LogicalType
	}

	EnumSchema struct {
		Name      string
		Namespace string
		Symbols   []string
	}

	RecordSchema struct {
		Name      string
		Namespace string
		Fields    []*Field
	}

	Field struct {
		Name   string
		Schema Schema
	}

	ArraySchema struct {
		Items Schema
	}

	MapSchema struct {
		Values Schema
	}

	UnionSchema struct {
		Types []Schema
	}
)

const (
	Null    PrimitiveType = "null"
	Boolean PrimitiveType = "boolean"
	Int     PrimitiveType = "int"
	Long    PrimitiveType = "long"
	Float   PrimitiveType = "float"
	Double  PrimitiveType = "double"
	Bytes   PrimitiveType = "bytes"
	String  PrimitiveType = "string"
)

const (
	LogicalDecimal              = "decimal"
	LogicalDate                 = "date"
	LogicalTimeMillis           = "time-millis"
	LogicalTimeMicros           = "time-micros"
	LogicalTimestampMillis      = "timestamp-millis"
	LogicalTimestampMicros      = "timestamp-micros"
	LogicalLocalTimestampMillis = "local-timestamp-millis"
	LogicalLocalTimestampMicros = "local-timestamp-micros"
)

var (
	ErrInvalidSchema = errors.New("invalid avro schema")

	// logical types honoured per physical type, anything else is read as the plain type
	validLogical = map[PrimitiveType][]string{
		Int:   {LogicalDate, LogicalTimeMillis},
		Long:  {LogicalTimeMicros, LogicalTimestampMillis, LogicalTimestampMicros, LogicalLocalTimestampMillis, LogicalLocalTimestampMicros},
		Bytes: {LogicalDecimal},
	}
)

func (s *PrimitiveSchema) TypeName() string { return string(s.Type) }
func (s *FixedSchema) TypeName() string     { return "fixed" }
func (s *EnumSchema) TypeName() string      { return "enum" }
func (s *RecordSchema) TypeName() string    { return "record" }
func (s *ArraySchema) TypeName() string     { return "array" }
func (s *MapSchema) TypeName() string       { return "map" }
func (s *UnionSchema) TypeName() string     { return "union" }

func (s *PrimitiveSchema) LogicalName() string { return logicalName(s.Logical) }
func (s *FixedSchema) LogicalName() string     { return logicalName(s.Logical) }

func (s *FixedSchema) FullName() string  { return fullName(s.Namespace, s.Name) }
func (s *EnumSchema) FullName() string   { return fullName(s.Namespace, s.Name) }
func (s *RecordSchema) FullName() string { return fullName(s.Namespace, s.Name) }

// Field returns the record field with the given name.
func (s *RecordSchema) Field(name string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// NonNull returns the single non-null branch of a {null, T} union.
func (s *UnionSchema) NonNull() (Schema, bool) {
	if len(s.Types) != 2 {
		return nil, false
	}
	var alt Schema
	nulls := 0
	for _, t := range s.Types {
		if p, ok := t.(*PrimitiveSchema); ok && p.Type == Null {
			nulls++
			continue
		}
		alt = t
	}
	if nulls != 1 {
		return nil, false
	}
	return alt, true
}

func logicalName(l *LogicalType) string {
	if l == nil {
		return ""
	}
	return l.Name
}

func fullName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// ParseSchema validates schemaJSON with goavro and builds the schema tree.
// Named type references are resolved to the node they name. A record that
// contains itself is rejected since it has no finite table layout.
func ParseSchema(schemaJSON string) (Schema, error) {
	s, _, err := parseSchema(schemaJSON)
	return s, err
}

func parseSchema(schemaJSON string) (Schema, *goavro.Codec, error) {
	codec, err := goavro.NewCodec(schemaJSON)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidSchema, "error in goavro.NewCodec: %s", err)
	}

	var tree any
	if err := json.Unmarshal([]byte(schemaJSON), &tree); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidSchema, "error in json.Unmarshal: %s", err)
	}

	p := &parser{
		named:    map[string]Schema{},
		building: map[string]bool{},
	}
	s, err := p.parse(tree, "")
	if err != nil {
		return nil, nil, err
	}
	return s, codec, nil
}

type parser struct {
	named map[string]Schema
	// records whose fields are still being parsed
	building map[string]bool
}

func (p *parser) parse(node any, namespace string) (Schema, error) {
	switch n := node.(type) {
	case string:
		return p.parseName(n, namespace)
	case []any:
		u := &UnionSchema{Types: make([]Schema, 0, len(n))}
		for _, branch := range n {
			s, err := p.parse(branch, namespace)
			if err != nil {
				return nil, err
			}
			u.Types = append(u.Types, s)
		}
		return u, nil
	case map[string]any:
		return p.parseObject(n, namespace)
	default:
		return nil, errors.Wrapf(ErrInvalidSchema, "unexpected schema node %T", node)
	}
}

func (p *parser) parseName(name, namespace string) (Schema, error) {
	if isPrimitive(name) {
		return &PrimitiveSchema{Type: PrimitiveType(name)}, nil
	}
	candidates := []string{name}
	if namespace != "" && !strings.Contains(name, ".") {
		candidates = []string{namespace + "." + name, name}
	}
	for _, c := range candidates {
		if p.building[c] {
			return nil, errors.Wrapf(ErrUnsupportedShape, "record %q refers to itself", c)
		}
		if s, ok := p.named[c]; ok {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidSchema, "unknown type %q", name)
}

func (p *parser) parseObject(n map[string]any, namespace string) (Schema, error) {
	switch t := n["type"].(type) {
	case map[string]any, []any:
		return p.parse(t, namespace)
	case string:
		switch t {
		case "record", "error":
			return p.parseRecord(n, namespace)
		case "enum":
			name, ns := nameOf(n, namespace)
			e := &EnumSchema{Name: name, Namespace: ns}
			if symbols, ok := n["symbols"].([]any); ok {
				for _, sym := range symbols {
					if str, ok := sym.(string); ok {
						e.Symbols = append(e.Symbols, str)
					}
				}
			}
			p.named[e.FullName()] = e
			return e, nil
		case "fixed":
			name, ns := nameOf(n, namespace)
			f := &FixedSchema{Name: name, Namespace: ns, Size: intOf(n["size"])}
			if lt, _ := n["logicalType"].(string); lt == LogicalDecimal {
				f.Logical = decimalOf(n)
			}
			p.named[f.FullName()] = f
			return f, nil
		case "array":
			items, err := p.parse(n["items"], namespace)
			if err != nil {
				return nil, err
			}
			return &ArraySchema{Items: items}, nil
		case "map":
			values, err := p.parse(n["values"], namespace)
			if err != nil {
				return nil, err
			}
			return &MapSchema{Values: values}, nil
		}
		if !isPrimitive(t) {
			return p.parseName(t, namespace)
		}
		ps := &PrimitiveSchema{Type: PrimitiveType(t)}
		if lt, ok := n["logicalType"].(string); ok {
			for _, valid := range validLogical[ps.Type] {
				if valid != lt {
					continue
				}
				if lt == LogicalDecimal {
					ps.Logical = decimalOf(n)
				} else {
					ps.Logical = &LogicalType{Name: lt}
				}
			}
		}
		return ps, nil
	default:
		return nil, errors.Wrapf(ErrInvalidSchema, "schema object has no usable type: %v", n["type"])
	}
}

func (p *parser) parseRecord(n map[string]any, namespace string) (Schema, error) {
	name, ns := nameOf(n, namespace)
	r := &RecordSchema{Name: name, Namespace: ns}
	full := r.FullName()
	p.building[full] = true
	defer delete(p.building, full)

	fields, _ := n["fields"].([]any)
	for _, raw := range fields {
		fm, ok := raw.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidSchema, "record %q has a malformed field", full)
		}
		fieldName, _ := fm["name"].(string)
		fs, err := p.parse(fm["type"], ns)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q of %q", fieldName, full)
		}
		r.Fields = append(r.Fields, &Field{Name: fieldName, Schema: fs})
	}
	p.named[full] = r
	return r, nil
}

func nameOf(n map[string]any, enclosing string) (name, namespace string) {
	name, _ = n["name"].(string)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:], name[:i]
	}
	if ns, ok := n["namespace"].(string); ok {
		return name, ns
	}
	return name, enclosing
}

func decimalOf(n map[string]any) *LogicalType {
	return &LogicalType{
		Name:      LogicalDecimal,
		Precision: intOf(n["precision"]),
		Scale:     intOf(n["scale"]),
	}
}

func intOf(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func isPrimitive(name string) bool {
	switch PrimitiveType(name) {
	case Null, Boolean, Int, Long, Float, Double, Bytes, String:
		return true
	}
	return false
}
