// Package vitals keeps each user's single vitals snapshot ("user-files") and
// derives body metrics from it.
package vitals

import (
	"math"

	"github.com/clim-up/wikaya/internal/domain/record"
)

// Snapshot is the one vitals record a user may hold.
type Snapshot struct {
	record.Base
	HeartRate        int      `json:"heart_rate"`
	BloodPressure    *string  `json:"blood_pressure"`
	WeightKg         *float64 `json:"weight_kg"`
	HeightCm         *float64 `json:"height_cm"`
	BloodSugar       int      `json:"blood_sugar"`
	OxygenSaturation int      `json:"oxygen_saturation"`
	RespiratoryRate  int      `json:"respiratory_rate"`
	Notes            *string  `json:"notes"`
}

// NewSnapshot returns a snapshot carrying typical resting values.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		HeartRate:        72,
		BloodSugar:       90,
		OxygenSaturation: 98,
		RespiratoryRate:  16,
	}
}

// BodyMassIndex is weight / height(m)^2 rounded to one decimal, or nil unless
// both measurements are present.
func (s *Snapshot) BodyMassIndex() *float64 {
	w, h, ok := s.measurements()
	if !ok {
		return nil
	}
	m := h / 100
	return round(w/(m*m), 1)
}

// BodySurfaceArea uses the Mosteller formula, rounded to two decimals.
func (s *Snapshot) BodySurfaceArea() *float64 {
	w, h, ok := s.measurements()
	if !ok {
		return nil
	}
	return round(math.Sqrt(h*w/3600), 2)
}

func (s *Snapshot) measurements() (weight, height float64, ok bool) {
	if s.WeightKg == nil || s.HeightCm == nil || *s.WeightKg == 0 || *s.HeightCm == 0 {
		return 0, 0, false
	}
	return *s.WeightKg, *s.HeightCm, true
}

func round(v float64, places int) *float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	return &r
}

// SnapshotTable orders newest first, so the first row is the latest.
var SnapshotTable = record.Table[Snapshot]{
	Name: "user_files",
	Columns: []string{
		"heart_rate", "blood_pressure", "weight_kg", "height_cm",
		"blood_sugar", "oxygen_saturation", "respiratory_rate", "notes",
	},
	Fields: func(s *Snapshot) []any {
		return []any{
			&s.HeartRate, &s.BloodPressure, &s.WeightKg, &s.HeightCm,
			&s.BloodSugar, &s.OxygenSaturation, &s.RespiratoryRate, &s.Notes,
		}
	},
	Base:    func(s *Snapshot) *record.Base { return &s.Base },
	OrderBy: "created_at DESC, id DESC",
}

// OnePerOwner is the memory-store twin of the user_files_user_id_key
// constraint.
func OnePerOwner(existing, candidate *Snapshot) bool {
	return existing.UserID == candidate.UserID
}
