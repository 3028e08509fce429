package clinical

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clim-up/wikaya/internal/domain/record"
)

// Allergy is a known allergy. IsPassed is the manual override of the
// date-based status; null means "work it out from the dates".
type Allergy struct {
	record.Base
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	StartDate   pgtype.Date `json:"start_date"`
	EndDate     pgtype.Date `json:"end_date"`
	IsPassed    *bool       `json:"is_passed"`
}

// CalculatedIsPassed reports whether the allergy ended before today.
func (a *Allergy) CalculatedIsPassed(now time.Time) bool {
	return record.BeforeDay(a.EndDate, now)
}

func (a *Allergy) Derived(now time.Time) record.DerivedStatus {
	return record.Derive(a.IsPassed, a.CalculatedIsPassed(now))
}

type HealthProblem struct {
	record.Base
	Title         string      `json:"title"`
	DiagnosisDate pgtype.Date `json:"diagnosis_date"`
	Resolved      bool        `json:"resolved"`
	Description   *string     `json:"description"`
}

var AllergyTable = record.Table[Allergy]{
	Name:    "allergies",
	Columns: []string{"title", "description", "start_date", "end_date", "is_passed"},
	Fields: func(a *Allergy) []any {
		return []any{&a.Title, &a.Description, &a.StartDate, &a.EndDate, &a.IsPassed}
	},
	Base: func(a *Allergy) *record.Base { return &a.Base },
}

var HealthProblemTable = record.Table[HealthProblem]{
	Name:    "health_problems",
	Columns: []string{"title", "diagnosis_date", "resolved", "description"},
	Fields: func(p *HealthProblem) []any {
		return []any{&p.Title, &p.DiagnosisDate, &p.Resolved, &p.Description}
	},
	Base: func(p *HealthProblem) *record.Base { return &p.Base },
}
