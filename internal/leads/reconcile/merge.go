package reconcile

import (
	"time"

	"leadflow_backend/internal/leads/domain"
)

// Plan is the outcome of merging an inbound contact. Exactly one of Create
// and Assignments is set.
type Plan struct {
	Create      *domain.Lead
	Assignments []domain.Assignment
}

// Merge computes the writes for in against existing (nil when unmatched).
// It is pure; now stamps the bookkeeping fields.
func Merge(existing *domain.Lead, in domain.IncomingContact, now time.Time) Plan {
	if existing == nil {
		stamp := now
		return Plan{Create: &domain.Lead{
			ExternalContactID: copyString(in.ExternalContactID),
			Name:              in.Name,
			Phone:             in.Phone,
			Email:             in.Email,
			Address:           valueOrEmpty(in.Address),
			City:              valueOrEmpty(in.City),
			State:             valueOrEmpty(in.State),
			Zip:               valueOrEmpty(in.Zip),
			ProjectType:       valueOrEmpty(in.ProjectType),
			ReferralSource:    valueOrEmpty(in.ReferralSource),
			LeadSource:        valueOrEmpty(in.LeadSource),
			Notes:             valueOrEmpty(in.Notes),
			Status:            domain.StatusLead,
			SyncSource:        domain.SyncSourceExternal,
			LastSyncedAt:      &stamp,
			CreatedAt:         now,
			UpdatedAt:         now,
		}}
	}

	// External data is authoritative for these, even when blank.
	assignments := []domain.Assignment{
		domain.Set(domain.FieldExternalContactID, copyString(in.ExternalContactID)),
		domain.Set(domain.FieldName, in.Name),
		domain.Set(domain.FieldPhone, in.Phone),
		domain.Set(domain.FieldEmail, in.Email),
		domain.Set(domain.FieldAddress, valueOrEmpty(in.Address)),
		domain.Set(domain.FieldCity, valueOrEmpty(in.City)),
		domain.Set(domain.FieldState, valueOrEmpty(in.State)),
		domain.Set(domain.FieldZip, valueOrEmpty(in.Zip)),
		domain.Set(domain.FieldProjectType, valueOrEmpty(in.ProjectType)),
		domain.Set(domain.FieldNotes, valueOrEmpty(in.Notes)),
	}

	stamp := now
	assignments = append(assignments,
		domain.Set(domain.FieldSyncSource, domain.SyncSourceExternal),
		domain.Set(domain.FieldLastSyncedAt, &stamp),
		domain.Set(domain.FieldUpdatedAt, &stamp),
	)

	if existing.ReferralSource == "" && valueOrEmpty(in.ReferralSource) != "" {
		assignments = append(assignments, domain.Set(domain.FieldReferralSource, *in.ReferralSource))
	}
	if existing.LeadSource == "" && valueOrEmpty(in.LeadSource) != "" {
		assignments = append(assignments, domain.Set(domain.FieldLeadSource, *in.LeadSource))
	}

	return Plan{Assignments: assignments}
}

func valueOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
