package api

import (
	"context"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"salesboard/internal/chat"
	"salesboard/internal/engine"
)

// ErrorHandler turns every error a page can produce into a JSON message
// with a matching status, so no failure ends the process.
func ErrorHandler(logger log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			level.Error(logger).Log("msg", "request failed", "path", c.Path(), "status", status, "err", err)
		} else {
			level.Debug(logger).Log("msg", "request rejected", "path", c.Path(), "status", status, "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, map[string]string{"error": msg})
		}
		if err != nil {
			level.Error(logger).Log("msg", "failed to write error response", "err", err)
		}
	}
}

func classify(err error) (int, string) {
	var (
		he          *echo.HTTPError
		parseErr    *engine.ParseError
		schemaErr   *engine.SchemaError
		insuffErr   *engine.InsufficientDataError
		externalErr *chat.ExternalServiceError
	)
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, parseErr.Error()
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, schemaErr.Error()
	case errors.As(err, &insuffErr):
		return http.StatusUnprocessableEntity, insuffErr.Error()
	case errors.Is(err, chat.ErrNoAPIKey):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &externalErr):
		return http.StatusBadGateway, externalErr.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	}
	return http.StatusInternalServerError, "internal error"
}
