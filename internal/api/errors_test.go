package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"salesboard/internal/chat"
	"salesboard/internal/engine"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{echo.NewHTTPError(http.StatusNotFound, "gone"), http.StatusNotFound},
		{&engine.ParseError{File: "a.txt", Reason: "bad"}, http.StatusBadRequest},
		{errors.Wrap(&engine.SchemaError{Page: "sales", Missing: []string{"VALOR"}}, "bind"), http.StatusUnprocessableEntity},
		{&engine.InsufficientDataError{Have: 1, Need: 30}, http.StatusUnprocessableEntity},
		{errors.Wrap(chat.ErrNoAPIKey, "ask"), http.StatusServiceUnavailable},
		{&chat.ExternalServiceError{Service: "chat", Err: errors.New("refused")}, http.StatusBadGateway},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	} {
		status, msg := classify(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
		assert.NotEmpty(t, msg)
	}

	_, msg := classify(errors.New("disk on fire"))
	assert.Equal(t, "internal error", msg)
}
