package management

import (
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
)

func ToLeadResponse(lead domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 lead.ID,
		CompanyID:          lead.CompanyID,
		ExternalContactID:  lead.ExternalContactID,
		Name:               lead.Name,
		Phone:              lead.Phone,
		Email:              lead.Email,
		Address:            lead.Address,
		City:               lead.City,
		State:              lead.State,
		Zip:                lead.Zip,
		BuyerType:          lead.BuyerType,
		CompanyName:        lead.CompanyName,
		ProjectType:        lead.ProjectType,
		ReferralSource:     lead.ReferralSource,
		LeadSource:         lead.LeadSource,
		Notes:              lead.Notes,
		ContractPriceCents: lead.ContractPriceCents,
		NotSoldReason:      lead.NotSoldReason,
		Status:             string(lead.Status),
		AppointmentDate:    formatDate(lead.AppointmentDate),
		AppointmentTime:    lead.AppointmentTime,
		InstallDate:        formatDate(lead.InstallDate),
		InstallTentative:   lead.InstallTentative,
		SyncSource:         string(lead.SyncSource),
		LastSyncedAt:       lead.LastSyncedAt,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func ToStatusHistoryResponse(entry repository.StatusHistoryEntry) transport.StatusHistoryResponse {
	return transport.StatusHistoryResponse{
		ID:         entry.ID,
		FromStatus: string(entry.FromStatus),
		ToStatus:   string(entry.ToStatus),
		Reason:     entry.Reason,
		Source:     entry.Source,
		ActorID:    entry.ActorID,
		ChangedAt:  entry.ChangedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(transport.DateLayout)
	return &s
}
