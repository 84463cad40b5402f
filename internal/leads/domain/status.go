package domain

import "strings"

// Status is the sales pipeline state of a lead.
type Status string

const (
	StatusLead           Status = "LEAD"
	StatusAppointmentSet Status = "APPOINTMENT_SET"
	StatusSold           Status = "SOLD"
	StatusNotSold        Status = "NOT_SOLD"
	StatusComplete       Status = "COMPLETE"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusLead,
	StatusAppointmentSet,
	StatusSold,
	StatusNotSold,
	StatusComplete,
}

var knownStatuses = map[Status]struct{}{
	StatusLead:           {},
	StatusAppointmentSet: {},
	StatusSold:           {},
	StatusNotSold:        {},
	StatusComplete:       {},
}

// IsKnownStatus reports whether s is one of the pipeline statuses.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, IsKnownStatus(s)
}

// IsTerminal reports whether no transition may leave s.
func IsTerminal(s Status) bool {
	return s == StatusComplete
}

// InstallEditable reports whether install date and tentative flag may be
// edited while a lead is in status s.
func InstallEditable(s Status) bool {
	return s == StatusSold || s == StatusComplete
}
