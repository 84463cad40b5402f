package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name               string `json:"name" validate:"required,min=1,max=200"`
	Phone              string `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	Email              string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Address            string `json:"address,omitempty" validate:"max=300"`
	City               string `json:"city,omitempty" validate:"max=100"`
	State              string `json:"state,omitempty" validate:"max=100"`
	Zip                string `json:"zip,omitempty" validate:"max=20"`
	BuyerType          string `json:"buyerType,omitempty" validate:"max=100"`
	CompanyName        string `json:"companyName,omitempty" validate:"max=200"`
	ProjectType        string `json:"projectType,omitempty" validate:"max=200"`
	ReferralSource     string `json:"referralSource,omitempty" validate:"max=200"`
	LeadSource         string `json:"leadSource,omitempty" validate:"max=200"`
	Notes              string `json:"notes,omitempty" validate:"max=5000"`
	ContractPriceCents *int64 `json:"contractPriceCents,omitempty" validate:"omitempty,min=0"`
}

// UpdateLeadRequest is a partial edit. A status different from the stored
// one is applied as a pipeline transition in the same transaction.
type UpdateLeadRequest struct {
	Name               *string       `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone              *string       `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email              *string       `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Address            *string       `json:"address,omitempty" validate:"omitempty,max=300"`
	City               *string       `json:"city,omitempty" validate:"omitempty,max=100"`
	State              *string       `json:"state,omitempty" validate:"omitempty,max=100"`
	Zip                *string       `json:"zip,omitempty" validate:"omitempty,max=20"`
	BuyerType          *string       `json:"buyerType,omitempty" validate:"omitempty,max=100"`
	CompanyName        *string       `json:"companyName,omitempty" validate:"omitempty,max=200"`
	ProjectType        *string       `json:"projectType,omitempty" validate:"omitempty,max=200"`
	ReferralSource     *string       `json:"referralSource,omitempty" validate:"omitempty,max=200"`
	LeadSource         *string       `json:"leadSource,omitempty" validate:"omitempty,max=200"`
	Notes              *string       `json:"notes,omitempty" validate:"omitempty,max=5000"`
	ContractPriceCents OptionalInt64 `json:"contractPriceCents,omitempty" validate:"-"`
	Status             *string       `json:"status,omitempty" validate:"omitempty,oneof=LEAD APPOINTMENT_SET SOLD NOT_SOLD COMPLETE"`
	AppointmentDate    OptionalDate  `json:"appointmentDate,omitempty" validate:"-"`
	AppointmentTime    *string       `json:"appointmentTime,omitempty" validate:"omitempty,max=20"`
	NotSoldReason      *string       `json:"notSoldReason,omitempty" validate:"omitempty,max=500"`
	InstallDate        OptionalDate  `json:"installDate,omitempty" validate:"-"`
	InstallTentative   *bool         `json:"installTentative,omitempty"`
}

type TransitionRequest struct {
	To              string  `json:"to" validate:"required,oneof=LEAD APPOINTMENT_SET SOLD NOT_SOLD COMPLETE"`
	AppointmentDate *string `json:"appointmentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AppointmentTime *string `json:"appointmentTime,omitempty" validate:"omitempty,max=20"`
	Reason          *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ListLeadsRequest struct {
	Status    *string `form:"status" validate:"omitempty,oneof=LEAD APPOINTMENT_SET SOLD NOT_SOLD COMPLETE"`
	Search    string  `form:"search" validate:"max=100"`
	Page      int     `form:"page" validate:"omitempty,min=1"`
	PageSize  int     `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy    string  `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt name status city appointmentDate"`
	SortOrder string  `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Response DTOs
type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CompanyID          uuid.UUID  `json:"companyId"`
	ExternalContactID  *string    `json:"externalContactId"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	State              string     `json:"state"`
	Zip                string     `json:"zip"`
	BuyerType          string     `json:"buyerType"`
	CompanyName        string     `json:"companyName"`
	ProjectType        string     `json:"projectType"`
	ReferralSource     string     `json:"referralSource"`
	LeadSource         string     `json:"leadSource"`
	Notes              string     `json:"notes"`
	ContractPriceCents *int64     `json:"contractPriceCents"`
	NotSoldReason      string     `json:"notSoldReason"`
	Status             string     `json:"status"`
	AppointmentDate    *string    `json:"appointmentDate"`
	AppointmentTime    string     `json:"appointmentTime"`
	InstallDate        *string    `json:"installDate"`
	InstallTentative   bool       `json:"installTentative"`
	SyncSource         string     `json:"syncSource"`
	LastSyncedAt       *time.Time `json:"lastSyncedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type StatusHistoryResponse struct {
	ID         uuid.UUID  `json:"id"`
	FromStatus string     `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	Reason     string     `json:"reason,omitempty"`
	Source     string     `json:"source"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
	ChangedAt  time.Time  `json:"changedAt"`
}

type StatusHistoryListResponse struct {
	Items []StatusHistoryResponse `json:"items"`
}

// TransitionErrorResponse lets the UI prompt for the missing inputs.
type TransitionErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Missing []string `json:"missing,omitempty"`
}
