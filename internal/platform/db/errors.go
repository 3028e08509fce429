package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

// SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidTextRep      = "22P02"
)

// Classify maps driver errors onto the application taxonomy. Errors that are
// already classified, or that are not recognised, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return apperr.Conflict(conflictMessage(pgErr.ConstraintName), err)
	case codeForeignKeyViolation:
		e := apperr.Invalid(apperr.NonFieldErrors, "referenced record does not exist")
		e.Cause = err
		return e
	case codeCheckViolation:
		e := apperr.Invalid(apperr.NonFieldErrors, checkMessage(pgErr.ConstraintName))
		e.Cause = err
		return e
	case codeInvalidTextRep:
		e := apperr.Invalid(apperr.NonFieldErrors, "malformed value")
		e.Cause = err
		return e
	}
	return err
}

var constraintMessages = map[string]string{
	"user_files_user_id_key":                 "health data already exists for this user",
	"conversations_patient_id_doctor_id_key": "conversation between these participants already exists",
	"medications_end_after_start":            "end_date must be after start_date",
	"allergies_end_not_before_start":         "end_date must not be before start_date",
	"conversations_distinct_participants":    "patient and doctor must be different users",
}

func conflictMessage(constraint string) string {
	if msg, ok := constraintMessages[constraint]; ok {
		return msg
	}
	return "record already exists"
}

func checkMessage(constraint string) string {
	if msg, ok := constraintMessages[constraint]; ok {
		return msg
	}
	return "constraint violated"
}
