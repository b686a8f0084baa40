package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/rowbridge/avro_projector"
	"github.com/danthegoodman1/rowbridge/gologger"
	"github.com/danthegoodman1/rowbridge/relational"
	"github.com/danthegoodman1/rowbridge/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		c.Response().Header().Set(echo.HeaderXRequestID, reqID)
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// ConversionError answers 400 when the caller sent something that cannot be
// converted, and falls back to InternalError otherwise.
func (c *CustomContext) ConversionError(err error, msg string) error {
	if isUserError(err) {
		zerolog.Ctx(c.Request().Context()).Debug().Err(err).Msg(msg)
		return c.String(http.StatusBadRequest, err.Error())
	}
	return c.InternalError(err, msg)
}

func isUserError(err error) bool {
	return utils.IsPermanent(err) ||
		errors.Is(err, avro_projector.ErrInvalidSchema) ||
		errors.Is(err, avro_projector.ErrValueMismatch) ||
		errors.Is(err, relational.ErrDuplicateField) ||
		errors.Is(err, relational.ErrEmptyFieldName)
}
