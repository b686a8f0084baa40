package avro_projector

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/danthegoodman1/rowbridge/gologger"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/linkedin/goavro/v2"
)

var logger = gologger.NewComponentLogger("avro_projector")

// Projector holds a parsed record schema with its goavro codec, so encoded
// records can be turned straight into warehouse rows. It is safe for
// concurrent use.
type Projector struct {
	schema      *RecordSchema
	codec       *goavro.Codec
	tableSchema *table.Schema
}

func NewProjector(schemaJSON string) (*Projector, error) {
	s, codec, err := parseSchema(schemaJSON)
	if err != nil {
		return nil, err
	}
	ts, err := ToTableSchema(s)
	if err != nil {
		return nil, err
	}
	return &Projector{
		schema:      s.(*RecordSchema),
		codec:       codec,
		tableSchema: ts,
	}, nil
}

func (p *Projector) Schema() *RecordSchema {
	return p.schema
}

func (p *Projector) TableSchema() *table.Schema {
	return p.tableSchema
}

func (p *Projector) TableSchemaJSON() (string, error) {
	return TableSchemaJSON(p.schema)
}

// RowFromNative converts a value in goavro's native form.
func (p *Projector) RowFromNative(native any) (*table.Row, error) {
	m, ok := native.(map[string]any)
	if !ok {
		return nil, mismatch(p.schema, native)
	}
	return ToTableRow(p.schema, m)
}

// RowFromBinary decodes one binary encoded record. Trailing bytes are an error.
func (p *Projector) RowFromBinary(buf []byte) (*table.Row, error) {
	native, rest, err := p.codec.NativeFromBinary(buf)
	if err != nil {
		return nil, errors.Wrapf(ErrValueMismatch, "error in NativeFromBinary: %s", err)
	}
	if len(rest) > 0 {
		return nil, errors.Wrapf(ErrValueMismatch, "%d trailing bytes after record", len(rest))
	}
	return p.RowFromNative(native)
}

// RowFromTextual decodes one record in Avro JSON encoding. Anything but
// whitespace after the record is an error.
func (p *Projector) RowFromTextual(buf []byte) (*table.Row, error) {
	native, rest, err := p.codec.NativeFromTextual(buf)
	if err != nil {
		return nil, errors.Wrapf(ErrValueMismatch, "error in NativeFromTextual: %s", err)
	}
	if rest = bytes.TrimSpace(rest); len(rest) > 0 {
		return nil, errors.Wrapf(ErrValueMismatch, "%d trailing bytes after record", len(rest))
	}
	return p.RowFromNative(native)
}

// ReadOCF reads an object container file, building a Projector from the
// writer schema in its header and calling fn for every record in order.
// It stops at the first error from fn.
func ReadOCF(r io.Reader, fn func(p *Projector, row *table.Row) error) error {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return fmt.Errorf("error in goavro.NewOCFReader: %w", err)
	}
	p, err := NewProjector(ocf.Codec().Schema())
	if err != nil {
		return fmt.Errorf("error in NewProjector: %w", err)
	}

	count := 0
	for ocf.Scan() {
		native, err := ocf.Read()
		if err != nil {
			return fmt.Errorf("error in ocf.Read: %w", err)
		}
		row, err := p.RowFromNative(native)
		if err != nil {
			return fmt.Errorf("error in RowFromNative for record %d: %w", count, err)
		}
		if err := fn(p, row); err != nil {
			return err
		}
		count++
	}
	if err := ocf.Err(); err != nil {
		return fmt.Errorf("error scanning ocf: %w", err)
	}
	logger.Debug().Int("records", count).Msg("read ocf")
	return nil
}
