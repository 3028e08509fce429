package messaging

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	files.GET("/conversation", h.ListConversations)
	files.POST("/conversation", h.CreateConversation)
	files.GET("/conversation/:id", h.GetConversation)
	files.GET("/conversation/:id/messages", h.ListMessages)
	files.POST("/conversation/:id/messages", h.SendMessage)
}

type createConversationRequest struct {
	Doctor uuid.UUID `json:"doctor"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) CreateConversation(c echo.Context) error {
	caller, err := record.Owner(c)
	if err != nil {
		return err
	}
	var req createConversationRequest
	if err := record.Bind(c, &req); err != nil {
		return err
	}
	conv, err := h.svc.StartConversation(c.Request().Context(), caller, req.Doctor)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, ConversationView{Conversation: conv, Messages: []*Message{}})
}

func (h *Handler) ListConversations(c echo.Context) error {
	caller, err := record.Owner(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListConversations(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetConversation(c echo.Context) error {
	caller, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.svc.Conversation(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListMessages(c echo.Context) error {
	caller, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Messages(c.Request().Context(), caller, id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SendMessage(c echo.Context) error {
	caller, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := record.Bind(c, &req); err != nil {
		return err
	}
	m, err := h.svc.Send(c.Request().Context(), caller, id, req.Content)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}
