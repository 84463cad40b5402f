// Package domain provides core business rules for the leads bounded context.
// Everything here is pure: no I/O, no clocks, no persistence.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncSource records which channel wrote a lead last.
type SyncSource string

const (
	SyncSourceUI       SyncSource = "UI"
	SyncSourceExternal SyncSource = "EXTERNAL"
)

// Lead is one prospective customer record owned by exactly one company.
type Lead struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	ExternalContactID *string

	Name    string
	Phone   string // digits only, no country code
	Email   string
	Address string
	City    string
	State   string
	Zip     string

	BuyerType   string
	CompanyName string
	ProjectType string

	// Provenance; write-once through this service.
	ReferralSource string
	LeadSource     string

	Notes              string
	ContractPriceCents *int64
	NotSoldReason      string

	Status           Status
	AppointmentDate  *time.Time
	AppointmentTime  string
	InstallDate      *time.Time
	InstallTentative bool

	SyncSource   SyncSource
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAppointment reports whether a date or a time is already recorded.
func (l Lead) HasAppointment() bool {
	return l.AppointmentDate != nil || l.AppointmentTime != ""
}

// IncomingContact is a normalized inbound contact. Nil pointers mean the
// source did not provide the field.
type IncomingContact struct {
	ExternalContactID *string
	Name              string
	Phone             string
	Email             string
	Address           *string
	City              *string
	State             *string
	Zip               *string
	ReferralSource    *string
	LeadSource        *string
	ProjectType       *string
	Notes             *string
}
