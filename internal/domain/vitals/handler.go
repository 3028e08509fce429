package vitals

import (
	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
)

type Handler struct {
	snapshots *record.Handler[Snapshot]
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		snapshots: record.NewHandler(svc.Service, "/user-files",
			record.WithDefaults(NewSnapshot),
			record.WithPresenter[Snapshot](Present),
		),
	}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	h.snapshots.RegisterRoutes(files)
}
