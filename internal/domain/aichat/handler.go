package aichat

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	files.POST("/ai-chat", h.Chat)
}

type chatRequestBody struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) Chat(c echo.Context) error {
	owner, err := record.Owner(c)
	if err != nil {
		return err
	}
	var req chatRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	answer, err := h.svc.Ask(c.Request().Context(), owner, req.Prompt)
	if errors.Is(err, ErrEmptyPrompt) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"response": answer})
}
