package immunization

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clim-up/wikaya/internal/domain/record"
)

type Vaccination struct {
	record.Base
	Name             string      `json:"name"`
	DateAdministered pgtype.Date `json:"date_administered"`
	Manufacturer     *string     `json:"manufacturer"`
	LotNumber        *string     `json:"lot_number"`
	NextDoseDate     pgtype.Date `json:"next_dose_date"`
	Notes            *string     `json:"notes"`
}

// VaccinationTable lists newest records first.
var VaccinationTable = record.Table[Vaccination]{
	Name: "vaccinations",
	Columns: []string{
		"name", "date_administered", "manufacturer", "lot_number", "next_dose_date", "notes",
	},
	Fields: func(v *Vaccination) []any {
		return []any{&v.Name, &v.DateAdministered, &v.Manufacturer, &v.LotNumber, &v.NextDoseDate, &v.Notes}
	},
	Base:    func(v *Vaccination) *record.Base { return &v.Base },
	OrderBy: "created_at DESC, id DESC",
}
