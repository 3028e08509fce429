package vitals

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

var bloodPressure = regexp.MustCompile(`^\d{1,3}/\d{1,3}$`)

func Validate(_ context.Context, s *Snapshot) error {
	fe := apperr.FieldErrors{}
	if s.BloodPressure != nil && *s.BloodPressure != "" && !bloodPressure.MatchString(*s.BloodPressure) {
		fe.Add("blood_pressure", "Blood pressure must be in format '120/80'")
	}
	nonNegative(fe, "heart_rate", s.HeartRate)
	nonNegative(fe, "blood_sugar", s.BloodSugar)
	nonNegative(fe, "respiratory_rate", s.RespiratoryRate)
	if s.OxygenSaturation < 0 || s.OxygenSaturation > 100 {
		fe.Add("oxygen_saturation", "Ensure this value is between 0 and 100.")
	}
	if w, h, ok := s.measurements(); ok {
		if h < 50 || h > 300 {
			fe.Add(apperr.NonFieldErrors, "Height must be between 50-300 cm")
		}
		if w < 2 || w > 500 {
			fe.Add(apperr.NonFieldErrors, "Weight must be between 2-500 kg")
		}
	}
	return fe.Err()
}

func nonNegative(fe apperr.FieldErrors, field string, v int) {
	if v < 0 {
		fe.Add(field, "Ensure this value is greater than or equal to 0.")
	}
}

// View is the response body of a snapshot.
type View struct {
	*Snapshot
	BodyMassIndex   *float64 `json:"body_mass_index"`
	BodySurfaceArea *float64 `json:"body_surface_area"`
}

func Present(_ context.Context, _ uuid.UUID, s *Snapshot) (any, error) {
	return View{Snapshot: s, BodyMassIndex: s.BodyMassIndex(), BodySurfaceArea: s.BodySurfaceArea()}, nil
}

// Service exposes the snapshot operations other packages need.
type Service struct {
	*record.Service[Snapshot]
}

func NewService(repo record.Repository[Snapshot]) *Service {
	return &Service{Service: record.NewService(repo, SnapshotTable.Base, Validate)}
}

// Latest returns the owner's most recent snapshot.
func (s *Service) Latest(ctx context.Context, owner uuid.UUID) (*Snapshot, error) {
	items, _, err := s.List(ctx, owner, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(nil)
	}
	return items[0], nil
}
