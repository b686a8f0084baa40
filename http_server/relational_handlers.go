package http_server

import (
	"fmt"
	"net/http"

	"github.com/danthegoodman1/rowbridge/mutation_replayer"
	"github.com/danthegoodman1/rowbridge/relational"
	"github.com/danthegoodman1/rowbridge/row_flattener"
	"github.com/danthegoodman1/rowbridge/table"
	"github.com/danthegoodman1/rowbridge/utils"
)

type (
	FlattenReqBody struct {
		Rows []*relational.Row `validate:"required,min=1"`
		// Flat collapses nested structs into dotted keys
		Flat bool
	}

	FlattenResBody struct {
		Rows []any
	}

	ReplayReqBody struct {
		Groups []relational.MutationGroup `validate:"required,min=1,dive"`
	}

	ReplayResBody struct {
		// One entry per group, rows in apply order
		Groups [][]*table.Row
	}
)

func (s *HTTPServer) FlattenHandler(c *CustomContext) error {
	var reqBody FlattenReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if int64(len(reqBody.Rows)) > utils.MAX_ROWS_PER_REQUEST {
		return c.String(http.StatusBadRequest, fmt.Sprintf("too many rows: %d > %d", len(reqBody.Rows), utils.MAX_ROWS_PER_REQUEST))
	}

	res := FlattenResBody{Rows: make([]any, 0, len(reqBody.Rows))}
	for i, row := range reqBody.Rows {
		if row == nil {
			return c.String(http.StatusBadRequest, fmt.Sprintf("row %d is null", i))
		}
		if !reqBody.Flat {
			res.Rows = append(res.Rows, row_flattener.ToMap(row))
			continue
		}
		flat, err := row_flattener.Flatten(row)
		if err != nil {
			return c.InternalError(err, "error in row_flattener.Flatten")
		}
		res.Rows = append(res.Rows, flat)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) ReplayHandler(c *CustomContext) error {
	var reqBody ReplayReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	res := ReplayResBody{Groups: make([][]*table.Row, 0, len(reqBody.Groups))}
	for i, g := range reqBody.Groups {
		rows, err := mutation_replayer.ToRows(g)
		if err != nil {
			return c.ConversionError(fmt.Errorf("error in ToRows for group %d: %w", i, err), "error replaying mutation group")
		}
		flattened := make([]*table.Row, 0, len(rows))
		for _, row := range rows {
			flattened = append(flattened, row_flattener.ToMap(row))
		}
		res.Groups = append(res.Groups, flattened)
	}
	return c.JSON(http.StatusOK, res)
}
