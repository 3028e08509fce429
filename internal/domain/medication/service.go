package medication

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

func ValidateMedication(_ context.Context, m *Medication) error {
	fe := apperr.FieldErrors{}
	record.Required(fe, "name", m.Name)
	record.MaxLen(fe, "name", m.Name, 100)
	record.MaxLenPtr(fe, "dosage", m.Dosage, 50)
	if m.StartDate.Valid && m.EndDate.Valid && !record.Before(m.StartDate, m.EndDate) {
		fe.Add(apperr.NonFieldErrors, "End date must be after start date")
	}
	return fe.Err()
}

var reminderTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateReminder checks the reminder fields and that the medication it
// points at belongs to the reminder's owner.
func ValidateReminder(meds record.Repository[Medication]) record.Validator[Reminder] {
	return func(ctx context.Context, r *Reminder) error {
		fe := apperr.FieldErrors{}
		if !reminderTime.MatchString(r.ReminderTime) {
			fe.Add("reminder_time", "Time has wrong format. Use HH:MM.")
		}
		if r.DaysOfWeek == nil {
			r.DaysOfWeek = []int{}
		}
		seen := map[int]bool{}
		for _, d := range r.DaysOfWeek {
			if d < 0 || d > 6 {
				fe.Add("days_of_week", fmt.Sprintf("%d is not a valid day; use 0 (Sunday) to 6.", d))
			} else if seen[d] {
				fe.Add("days_of_week", fmt.Sprintf("Day %d is listed twice.", d))
			}
			seen[d] = true
		}

		if r.MedicationID == uuid.Nil {
			fe.Add("medication", record.MsgRequired)
		} else if _, err := meds.Get(ctx, r.UserID, r.MedicationID); err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			fe.Add("medication", fmt.Sprintf("Invalid pk %q - object does not exist.", r.MedicationID))
		}
		return fe.Err()
	}
}

// MedicationView is the response body of a medication.
type MedicationView struct {
	*Medication
	record.DerivedStatus
}

func PresentMedication(now func() time.Time) record.Presenter[Medication] {
	return func(_ context.Context, _ uuid.UUID, m *Medication) (any, error) {
		return MedicationView{Medication: m, DerivedStatus: m.Derived(now())}, nil
	}
}
