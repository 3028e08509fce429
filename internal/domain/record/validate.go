package record

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
)

// Required records a message when value is blank.
func Required(fe apperr.FieldErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		fe.Add(field, MsgBlank)
	}
}

// MaxLen records a message when value is longer than n characters.
func MaxLen(fe apperr.FieldErrors, field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		fe.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", n))
	}
}

// MaxLenPtr is MaxLen for nullable columns.
func MaxLenPtr(fe apperr.FieldErrors, field string, value *string, n int) {
	if value != nil {
		MaxLen(fe, field, *value, n)
	}
}
