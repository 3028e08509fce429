package clinical

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
)

type Handler struct {
	allergies *record.Handler[Allergy]
	problems  *record.Handler[HealthProblem]
}

func NewHandler(allergies record.Repository[Allergy], problems record.Repository[HealthProblem], now func() time.Time) *Handler {
	return &Handler{
		allergies: record.NewHandler(
			record.NewService(allergies, AllergyTable.Base, ValidateAllergy),
			"/allergies",
			record.WithPresenter(PresentAllergy(now)),
		),
		problems: record.NewHandler(
			record.NewService(problems, HealthProblemTable.Base, ValidateHealthProblem),
			"/health-problems",
		),
	}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	h.allergies.RegisterRoutes(files)
	h.problems.RegisterRoutes(files)
}
