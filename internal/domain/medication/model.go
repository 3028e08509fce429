package medication

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clim-up/wikaya/internal/domain/record"
)

// Medication is a medication the user takes or took. IsPassed overrides the
// date-based status when set.
type Medication struct {
	record.Base
	Name      string      `json:"name"`
	Dosage    *string     `json:"dosage"`
	StartDate pgtype.Date `json:"start_date"`
	EndDate   pgtype.Date `json:"end_date"`
	Reason    *string     `json:"reason"`
	IsPassed  *bool       `json:"is_passed"`
}

// CalculatedIsPassed is true when the course ended before today or has not
// started yet.
func (m *Medication) CalculatedIsPassed(now time.Time) bool {
	return record.BeforeDay(m.EndDate, now) || record.AfterDay(m.StartDate, now)
}

func (m *Medication) Derived(now time.Time) record.DerivedStatus {
	return record.Derive(m.IsPassed, m.CalculatedIsPassed(now))
}

// Reminder fires at ReminderTime on DaysOfWeek (0 = Sunday); no days means
// every day.
type Reminder struct {
	record.Base
	MedicationID uuid.UUID `json:"medication"`
	ReminderTime string    `json:"reminder_time"`
	DaysOfWeek   []int     `json:"days_of_week"`
	IsActive     bool      `json:"is_active"`
}

func NewReminder() *Reminder {
	return &Reminder{IsActive: true, DaysOfWeek: []int{}}
}

var MedicationTable = record.Table[Medication]{
	Name:    "medications",
	Columns: []string{"name", "dosage", "start_date", "end_date", "reason", "is_passed"},
	Fields: func(m *Medication) []any {
		return []any{&m.Name, &m.Dosage, &m.StartDate, &m.EndDate, &m.Reason, &m.IsPassed}
	},
	Base: func(m *Medication) *record.Base { return &m.Base },
}

var ReminderTable = record.Table[Reminder]{
	Name:    "medication_reminders",
	Columns: []string{"medication_id", "reminder_time", "days_of_week", "is_active"},
	Fields: func(r *Reminder) []any {
		return []any{&r.MedicationID, &r.ReminderTime, &r.DaysOfWeek, &r.IsActive}
	},
	Base: func(r *Reminder) *record.Base { return &r.Base },
}
