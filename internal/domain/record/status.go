package record

const (
	StatusCurrent = "current"
	StatusPast    = "past"
)

// DerivedStatus is the current/past flag of a record whose activity window
// is given by dates and an optional manual override.
type DerivedStatus struct {
	CalculatedIsPassed bool   `json:"calculated_is_passed"`
	EffectiveIsPassed  bool   `json:"effective_is_passed"`
	Status             string `json:"status"`
}

// Derive combines the date-based calculation with the manual override: a
// non-nil override wins.
func Derive(override *bool, calculated bool) DerivedStatus {
	effective := calculated
	if override != nil {
		effective = *override
	}
	status := StatusCurrent
	if effective {
		status = StatusPast
	}
	return DerivedStatus{CalculatedIsPassed: calculated, EffectiveIsPassed: effective, Status: status}
}
