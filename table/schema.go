package table

type (
	FieldType string
	FieldMode string

	// Schema is the destination table layout handed to the warehouse writer.
	Schema struct {
		Fields []*FieldSchema `json:"fields"`
	}

	FieldSchema struct {
		Name string    `json:"name"`
		Type FieldType `json:"type"`
		Mode FieldMode `json:"mode"`
		// Fields is only set for STRUCT
		Fields []*FieldSchema `json:"fields,omitempty"`
	}
)

const (
	String    FieldType = "STRING"
	Bytes     FieldType = "BYTES"
	Int64     FieldType = "INT64"
	Float64   FieldType = "FLOAT64"
	Numeric   FieldType = "NUMERIC"
	Bool      FieldType = "BOOL"
	Date      FieldType = "DATE"
	Time      FieldType = "TIME"
	DateTime  FieldType = "DATETIME"
	Timestamp FieldType = "TIMESTAMP"
	Geography FieldType = "GEOGRAPHY"
	Array     FieldType = "ARRAY"
	Struct    FieldType = "STRUCT"
)

const (
	Required FieldMode = "REQUIRED"
	Nullable FieldMode = "NULLABLE"
	Repeated FieldMode = "REPEATED"
)

// Field returns the top level field with the given name.
func (s *Schema) Field(name string) (*FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (fs *FieldSchema) Field(name string) (*FieldSchema, bool) {
	for _, f := range fs.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// WithMode returns a shallow copy of the field with the mode replaced.
func (fs *FieldSchema) WithMode(mode FieldMode) *FieldSchema {
	c := *fs
	c.Mode = mode
	return &c
}
