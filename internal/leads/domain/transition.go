package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransitionErrorKind classifies a refused transition or field edit.
type TransitionErrorKind string

const (
	ErrKindInvalidTransition  TransitionErrorKind = "InvalidTransition"
	ErrKindMissingAppointment TransitionErrorKind = "MissingAppointment"
	ErrKindMissingReason      TransitionErrorKind = "MissingReason"
	ErrKindInstallNotAllowed  TransitionErrorKind = "InstallNotAllowed"
	ErrKindUnknownStatus      TransitionErrorKind = "UnknownStatus"
)

// TransitionError is a structured refusal the UI can act on: Missing names
// the inputs that would make the request acceptable.
type TransitionError struct {
	Kind    TransitionErrorKind
	From    Status
	To      Status
	Missing []string
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ErrKindMissingAppointment:
		return fmt.Sprintf("transition %s -> %s requires an appointment date or time", e.From, e.To)
	case ErrKindMissingReason:
		return fmt.Sprintf("transition %s -> %s requires a reason", e.From, e.To)
	case ErrKindInstallNotAllowed:
		return fmt.Sprintf("install date can only be edited in %s or %s, lead is %s", StatusSold, StatusComplete, e.From)
	case ErrKindUnknownStatus:
		return fmt.Sprintf("unknown status %q", e.To)
	default:
		return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
	}
}

// TransitionRequest is a requested status change plus the data some
// transitions need.
type TransitionRequest struct {
	To              Status
	AppointmentDate *time.Time
	AppointmentTime *string
	Reason          *string
}

// TransitionPlan is the outcome of a legal transition.
type TransitionPlan struct {
	From        Status
	To          Status
	NoOp        bool
	Assignments []Assignment
	Reason      string
}

// transitionRule describes one allowed edge of the pipeline.
type transitionRule struct {
	requiresAppointment bool
	requiresReason      bool
}

var transitionTable = map[Status]map[Status]transitionRule{
	StatusLead: {
		StatusAppointmentSet: {requiresAppointment: true},
	},
	StatusAppointmentSet: {
		StatusSold:    {},
		StatusNotSold: {requiresReason: true},
	},
	StatusNotSold: {
		StatusSold: {},
	},
	StatusSold: {
		StatusComplete: {},
	},
}

// CanTransition reports whether from -> to is an edge of the pipeline
// (or a same-state no-op), ignoring data requirements.
func CanTransition(from, to Status) bool {
	if !IsKnownStatus(from) || !IsKnownStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	_, ok := transitionTable[from][to]
	return ok
}

// PlanTransition validates req against current and returns the field
// assignments the transition implies. It never mutates current.
func PlanTransition(current Lead, req TransitionRequest) (TransitionPlan, error) {
	from, to := current.Status, req.To
	if !IsKnownStatus(to) {
		return TransitionPlan{}, &TransitionError{Kind: ErrKindUnknownStatus, From: from, To: to}
	}

	if from == to {
		return TransitionPlan{From: from, To: to, NoOp: true}, nil
	}

	rule, ok := transitionTable[from][to]
	if !ok {
		return TransitionPlan{}, &TransitionError{Kind: ErrKindInvalidTransition, From: from, To: to}
	}

	plan := TransitionPlan{From: from, To: to}
	plan.Assignments = append(plan.Assignments, Set(FieldStatus, to))

	if rule.requiresAppointment {
		suppliedTime := ""
		if req.AppointmentTime != nil {
			suppliedTime = strings.TrimSpace(*req.AppointmentTime)
		}
		if req.AppointmentDate == nil && suppliedTime == "" && !current.HasAppointment() {
			return TransitionPlan{}, &TransitionError{
				Kind:    ErrKindMissingAppointment,
				From:    from,
				To:      to,
				Missing: []string{"appointmentDate", "appointmentTime"},
			}
		}
		if req.AppointmentDate != nil {
			date := truncateToDate(*req.AppointmentDate)
			plan.Assignments = append(plan.Assignments, Set(FieldAppointmentDate, &date))
		}
		if suppliedTime != "" {
			plan.Assignments = append(plan.Assignments, Set(FieldAppointmentTime, suppliedTime))
		}
	}

	if rule.requiresReason {
		reason := ""
		if req.Reason != nil {
			reason = strings.TrimSpace(*req.Reason)
		}
		if reason == "" {
			return TransitionPlan{}, &TransitionError{
				Kind:    ErrKindMissingReason,
				From:    from,
				To:      to,
				Missing: []string{"reason"},
			}
		}
		plan.Reason = reason
		plan.Assignments = append(plan.Assignments, Set(FieldNotSoldReason, reason))
	} else if current.NotSoldReason != "" {
		// Reason only lives while NOT_SOLD.
		plan.Assignments = append(plan.Assignments, Set(FieldNotSoldReason, ""))
	}

	return plan, nil
}

// InstallEdit is a requested change to the install fields. ClearDate wins
// over Date.
type InstallEdit struct {
	Date      *time.Time
	ClearDate bool
	Tentative *bool
}

// PlanInstallEdit validates an install edit against current and returns
// its assignments. Clearing the date always clears the tentative flag.
func PlanInstallEdit(current Lead, edit InstallEdit) ([]Assignment, error) {
	if edit.Date == nil && !edit.ClearDate && edit.Tentative == nil {
		return nil, nil
	}
	if !InstallEditable(current.Status) {
		return nil, &TransitionError{Kind: ErrKindInstallNotAllowed, From: current.Status, To: current.Status}
	}

	var out []Assignment
	switch {
	case edit.ClearDate:
		out = append(out, Set(FieldInstallDate, (*time.Time)(nil)), Set(FieldInstallTentative, false))
		return out, nil
	case edit.Date != nil:
		date := truncateToDate(*edit.Date)
		out = append(out, Set(FieldInstallDate, &date))
	}

	if edit.Tentative != nil {
		hasDate := current.InstallDate != nil || edit.Date != nil
		out = append(out, Set(FieldInstallTentative, *edit.Tentative && hasDate))
	}
	return out, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
