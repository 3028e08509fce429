package immunization

import (
	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
)

type Handler struct {
	vaccinations *record.Handler[Vaccination]
}

func NewHandler(repo record.Repository[Vaccination]) *Handler {
	svc := record.NewService(repo, VaccinationTable.Base, ValidateVaccination)
	return &Handler{vaccinations: record.NewHandler(svc, "/vaccinations")}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	h.vaccinations.RegisterRoutes(files)
}
