// Package record holds what every owned health record shares: the embedded
// Base columns and the generic owner-scoped repository, service and HTTP
// handler that the record types are built from.
package record

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Base is embedded by value in every owned record.
type Base struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Today returns the UTC calendar date of now.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a valid calendar date.
func Date(year int, month time.Month, day int) pgtype.Date {
	return pgtype.Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// Before reports a < b on calendar dates; false when either is null.
func Before(a, b pgtype.Date) bool {
	return a.Valid && b.Valid && dayOf(a.Time).Before(dayOf(b.Time))
}

// BeforeDay reports whether d is set and falls before day.
func BeforeDay(d pgtype.Date, day time.Time) bool {
	return d.Valid && dayOf(d.Time).Before(Today(day))
}

// AfterDay reports whether d is set and falls after day.
func AfterDay(d pgtype.Date, day time.Time) bool {
	return d.Valid && dayOf(d.Time).After(Today(day))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
