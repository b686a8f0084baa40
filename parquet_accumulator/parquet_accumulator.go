package parquet_accumulator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danthegoodman1/rowbridge/gologger"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/danthegoodman1/rowbridge/utils"
	"github.com/xitongsys/parquet-go/writer"
)

type (
	// ParquetAccumulator collects warehouse rows for one table schema and
	// encodes them as a single parquet file.
	ParquetAccumulator struct {
		tableSchema *table.Schema
		columns     []*ParquetSchema
		rows        []string
	}

	ParquetSchema struct {
		TagStructs SchemaTag
		Fields     []*ParquetSchema
	}

	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string
		Type           string
		ConvertedType  string
		RepetitionType RepetitionType
		Encoding       string
	}

	RepetitionType string
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"

	logger = gologger.NewComponentLogger("parquet_accumulator")
)

const rootTag = "name=parquet_go_root, repetitiontype=REQUIRED"

func NewParquetAccumulator(ts *table.Schema) *ParquetAccumulator {
	pa := &ParquetAccumulator{tableSchema: ts}
	for _, f := range ts.Fields {
		pa.columns = append(pa.columns, getParquetSchema(f.Name, f))
	}
	return pa
}

// getParquetSchema maps a table field to its parquet column. Every column is
// OPTIONAL so rows that leave a field out still encode.
func getParquetSchema(name string, f *table.FieldSchema) *ParquetSchema {
	schema := &ParquetSchema{
		TagStructs: SchemaTag{
			Name:           name,
			RepetitionType: Optional,
		},
	}
	if f.Mode == table.Repeated {
		schema.TagStructs.Type = "LIST"
		schema.Fields = append(schema.Fields, getParquetSchema("Element", f.WithMode(table.Nullable)))
		return schema
	}

	switch f.Type {
	case table.Int64, table.Timestamp:
		schema.TagStructs.Type = "INT64"
	case table.Float64:
		schema.TagStructs.Type = "DOUBLE"
	case table.Bool:
		schema.TagStructs.Type = "BOOLEAN"
	case table.Struct:
		// groups have no type
		for _, child := range f.Fields {
			schema.Fields = append(schema.Fields, getParquetSchema(child.Name, child))
		}
	default:
		// strings, dates, times, decimals and base64 bytes are all written as text
		schema.TagStructs.Type = "BYTE_ARRAY"
		schema.TagStructs.ConvertedType = "UTF8"
		schema.TagStructs.Encoding = "PLAIN"
	}
	return schema
}

// WriteRow buffers a row. Keys that are not in the table schema are ignored by
// the encoder.
func (pa *ParquetAccumulator) WriteRow(row *table.Row) error {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}
	pa.rows = append(pa.rows, string(b))
	return nil
}

func (pa *ParquetAccumulator) NumRows() int {
	return len(pa.rows)
}

func (pa *ParquetAccumulator) GetColumnNames() []string {
	var cols []string
	for _, field := range pa.columns {
		cols = append(cols, field.TagStructs.Name)
	}
	return cols
}

func (ps *ParquetSchema) GetType() string {
	switch ps.TagStructs.Type {
	case "BYTE_ARRAY":
		return "string"
	case "INT64":
		return "int"
	case "DOUBLE":
		return "float"
	case "BOOLEAN":
		return "bool"
	case "LIST":
		return fmt.Sprintf("list(%s)", ps.Fields[0].GetType())
	case "":
		var inner []string
		for _, f := range ps.Fields {
			inner = append(inner, f.TagStructs.Name+" "+f.GetType())
		}
		return fmt.Sprintf("struct(%s)", strings.Join(inner, ", "))
	default:
		return ps.TagStructs.Type
	}
}

// GetColumnTypes returns the column types in column order: `string`, `int`,
// `float`, `bool`, `list(x)` or `struct(name x, ...)`
func (pa *ParquetAccumulator) GetColumnTypes() []string {
	var cols []string
	for _, field := range pa.columns {
		cols = append(cols, field.GetType())
	}
	return cols
}

// ToParquetJSONSchema recursively converts
func (ps *ParquetSchema) ToParquetJSONSchema() *ParquetJSONSchema {
	var tagArr []string
	if ps.TagStructs.Type != "" {
		tagArr = append(tagArr, "type="+ps.TagStructs.Type)
	}
	if ps.TagStructs.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+ps.TagStructs.ConvertedType)
	}
	if ps.TagStructs.Encoding != "" {
		tagArr = append(tagArr, "encoding="+ps.TagStructs.Encoding)
	}
	if ps.TagStructs.Name != "" {
		tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	}
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	var fields []*ParquetJSONSchema
	for _, field := range ps.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	return &ParquetJSONSchema{
		Tag:    strings.Join(tagArr, ", "),
		Fields: fields,
	}
}

// GetSchemaString returns the JSON formatted schema string
func (pa *ParquetAccumulator) GetSchemaString() (string, error) {
	var fields []*ParquetJSONSchema
	for _, field := range pa.columns {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	pjs := ParquetJSONSchema{
		Tag:    rootTag,
		Fields: fields,
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// Encode writes every buffered row to w as one parquet file.
func (pa *ParquetAccumulator) Encode(w io.Writer) error {
	schemaStr, err := pa.GetSchemaString()
	if err != nil {
		return fmt.Errorf("error in GetSchemaString: %w", err)
	}

	pw, err := writer.NewJSONWriterFromWriter(schemaStr, w, int64(utils.PARQUET_PARALLELISM))
	if err != nil {
		return fmt.Errorf("error in writer.NewJSONWriterFromWriter: %w", err)
	}
	for i, row := range pa.rows {
		if err = pw.Write(row); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", i, err)
		}
	}
	if err = pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	logger.Debug().Int("rows", len(pa.rows)).Int("columns", len(pa.columns)).Msg("encoded parquet")
	return nil
}

// Bytes is Encode into memory.
func (pa *ParquetAccumulator) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := pa.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
