package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"salesboard/internal/models"
)

func (h *Handler) PostChat(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question must not be empty")
	}
	answer, truncated, err := h.chat.Ask(c.Request().Context(), d.Table, req.Question)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ChatAnswer{Answer: answer, Truncated: truncated})
}
