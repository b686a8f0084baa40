package http_server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/danthegoodman1/rowbridge/avro_projector"
	"github.com/danthegoodman1/rowbridge/parquet_accumulator"
	"github.com/danthegoodman1/rowbridge/partitioner"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/danthegoodman1/rowbridge/utils"
	"github.com/rs/zerolog"
)

type (
	TableSchemaReqBody struct {
		// The Avro record schema, either inline JSON or a JSON string holding it
		Schema json.RawMessage `validate:"required"`
	}

	TableRowsReqBody struct {
		Schema json.RawMessage `validate:"required"`
		// Records in Avro JSON encoding
		Rows []json.RawMessage
		// Records in Avro binary encoding, base64 in the request
		BinaryRows [][]byte
	}

	TableRowsResBody struct {
		Schema *table.Schema
		Rows   []*table.Row
	}

	ParquetReqBody struct {
		TableRowsReqBody
		Partitioner []partitioner.PartitionPlan `validate:"dive"`
	}

	ParquetFile struct {
		Partition string
		FileName  string
		NumRows   int64
		Bytes     int64
		// base64 in the response
		Data []byte
	}

	ParquetStats struct {
		NumRows      int64
		NumFiles     int64
		BytesWritten int64
		TimeMS       int64
	}

	ParquetResBody struct {
		ExportID string
		Columns  []string
		Types    []string
		Files    []ParquetFile
		Stats    ParquetStats
	}
)

func (s *HTTPServer) TableSchemaHandler(c *CustomContext) error {
	var reqBody TableSchemaReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	p, err := avro_projector.NewProjector(schemaText(reqBody.Schema))
	if err != nil {
		return c.ConversionError(err, "error in NewProjector")
	}
	return c.JSON(http.StatusOK, p.TableSchema())
}

func (s *HTTPServer) TableRowsHandler(c *CustomContext) error {
	var reqBody TableRowsReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	p, rows, err := projectRows(reqBody)
	if err != nil {
		return c.ConversionError(err, "error projecting rows")
	}
	return c.JSON(http.StatusOK, TableRowsResBody{
		Schema: p.TableSchema(),
		Rows:   utils.ArrayOrEmpty(rows),
	})
}

// ParquetHandler converts the records, splits them by partition and answers
// with one parquet file per partition.
func (s *HTTPServer) ParquetHandler(c *CustomContext) error {
	logger := zerolog.Ctx(c.Request().Context())
	start := time.Now()

	var reqBody ParquetReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	p, rows, err := projectRows(reqBody.TableRowsReqBody)
	if err != nil {
		return c.ConversionError(err, "error projecting rows")
	}
	if len(rows) == 0 {
		return c.String(http.StatusBadRequest, "no rows found")
	}

	parts := make(map[string]*parquet_accumulator.ParquetAccumulator)
	for i, row := range rows {
		part, err := partitioner.GetRowPartition(row, reqBody.Partitioner)
		if err != nil {
			return c.String(http.StatusBadRequest, fmt.Sprintf("error getting partition for row %d: %s", i, err))
		}

		if _, exists := parts[part]; !exists {
			parts[part] = parquet_accumulator.NewParquetAccumulator(p.TableSchema())
		}
		if err := parts[part].WriteRow(row); err != nil {
			return c.InternalError(err, "error in WriteRow")
		}
	}

	partIDs := make([]string, 0, len(parts))
	for partID := range parts {
		partIDs = append(partIDs, partID)
	}
	sort.Strings(partIDs)

	res := ParquetResBody{
		ExportID: utils.GenRandomID("exp_"),
	}
	for _, partID := range partIDs {
		acc := parts[partID]
		b, err := acc.Bytes()
		if err != nil {
			return c.InternalError(err, "error encoding parquet")
		}
		res.Files = append(res.Files, ParquetFile{
			Partition: partID,
			FileName:  fmt.Sprintf("%s.parquet", utils.GenKSortedID("")),
			NumRows:   int64(acc.NumRows()),
			Bytes:     int64(len(b)),
			Data:      b,
		})
		res.Stats.NumRows += int64(acc.NumRows())
		res.Stats.BytesWritten += int64(len(b))
		res.Columns = acc.GetColumnNames()
		res.Types = acc.GetColumnTypes()
	}
	res.Stats.NumFiles = int64(len(res.Files))
	res.Stats.TimeMS = time.Since(start).Milliseconds()

	logger.Debug().Str("exportID", res.ExportID).Int64("files", res.Stats.NumFiles).Int64("rows", res.Stats.NumRows).Msg("built parquet export")
	return c.JSON(http.StatusOK, res)
}

func projectRows(reqBody TableRowsReqBody) (*avro_projector.Projector, []*table.Row, error) {
	p, err := avro_projector.NewProjector(schemaText(reqBody.Schema))
	if err != nil {
		return nil, nil, fmt.Errorf("error in NewProjector: %w", err)
	}

	total := len(reqBody.Rows) + len(reqBody.BinaryRows)
	if int64(total) > utils.MAX_ROWS_PER_REQUEST {
		return nil, nil, utils.PermError(fmt.Sprintf("too many rows: %d > %d", total, utils.MAX_ROWS_PER_REQUEST))
	}

	rows := make([]*table.Row, 0, total)
	for i, raw := range reqBody.Rows {
		row, err := p.RowFromTextual(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("error in RowFromTextual for row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	for i, buf := range reqBody.BinaryRows {
		row, err := p.RowFromBinary(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("error in RowFromBinary for binary row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return p, rows, nil
}

// schemaText accepts an Avro schema sent inline or wrapped in a JSON string.
func schemaText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
