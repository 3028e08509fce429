package medication

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/domain/record"
)

type Handler struct {
	medications []*record.Handler[Medication]
	reminders   *record.Handler[Reminder]
}

// NewHandler serves medications under both /medications and /medications2;
// the two paths share one collection.
func NewHandler(meds record.Repository[Medication], reminders record.Repository[Reminder], now func() time.Time) *Handler {
	svc := record.NewService(meds, MedicationTable.Base, ValidateMedication)
	h := &Handler{
		reminders: record.NewHandler(
			record.NewService(reminders, ReminderTable.Base, ValidateReminder(meds)),
			"/medication-reminders",
			record.WithDefaults(NewReminder),
		),
	}
	for _, path := range []string{"/medications", "/medications2"} {
		h.medications = append(h.medications,
			record.NewHandler(svc, path, record.WithPresenter(PresentMedication(now))))
	}
	return h
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	for _, m := range h.medications {
		m.RegisterRoutes(files)
	}
	h.reminders.RegisterRoutes(files)
}
