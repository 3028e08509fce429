package immunization

import (
	"context"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

func ValidateVaccination(_ context.Context, v *Vaccination) error {
	fe := apperr.FieldErrors{}
	record.Required(fe, "name", v.Name)
	record.MaxLen(fe, "name", v.Name, 100)
	record.MaxLenPtr(fe, "manufacturer", v.Manufacturer, 100)
	record.MaxLenPtr(fe, "lot_number", v.LotNumber, 50)
	if !v.DateAdministered.Valid {
		fe.Add("date_administered", record.MsgRequired)
	}
	return fe.Err()
}
