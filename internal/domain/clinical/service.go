package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

func ValidateAllergy(_ context.Context, a *Allergy) error {
	fe := apperr.FieldErrors{}
	record.Required(fe, "title", a.Title)
	record.MaxLen(fe, "title", a.Title, 100)
	if record.Before(a.EndDate, a.StartDate) {
		fe.Add(apperr.NonFieldErrors, "End date must be after start date")
	}
	return fe.Err()
}

func ValidateHealthProblem(_ context.Context, p *HealthProblem) error {
	fe := apperr.FieldErrors{}
	record.Required(fe, "title", p.Title)
	record.MaxLen(fe, "title", p.Title, 100)
	return fe.Err()
}

// AllergyView is the response body of an allergy.
type AllergyView struct {
	*Allergy
	record.DerivedStatus
}

// PresentAllergy evaluates the derived status against now on every read.
func PresentAllergy(now func() time.Time) record.Presenter[Allergy] {
	return func(_ context.Context, _ uuid.UUID, a *Allergy) (any, error) {
		return AllergyView{Allergy: a, DerivedStatus: a.Derived(now())}, nil
	}
}
