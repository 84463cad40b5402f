// Package reconcile decides whether an inbound contact creates a lead or
// updates an existing one, and which fields the write may touch.
package reconcile

import (
	"context"
	"errors"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// MatchKey names the identity key that found a lead.
type MatchKey string

const (
	MatchNone       MatchKey = "none"
	MatchExternalID MatchKey = "external_id"
	MatchPhone      MatchKey = "phone"
	MatchEmail      MatchKey = "email"
)

// FindMatch looks up at most one lead for in within companyID, trying
// external contact id, then phone, then email. Empty keys are skipped and
// a key with no hit falls through to the next one.
func FindMatch(ctx context.Context, finder repository.LeadFinder, companyID uuid.UUID, in domain.IncomingContact) (*domain.Lead, MatchKey, error) {
	type lookup struct {
		key   MatchKey
		value string
		find  func(context.Context, uuid.UUID, string) (domain.Lead, error)
	}

	externalID := ""
	if in.ExternalContactID != nil {
		externalID = *in.ExternalContactID
	}

	lookups := []lookup{
		{MatchExternalID, externalID, finder.FindByExternalID},
		{MatchPhone, in.Phone, finder.FindByPhone},
		{MatchEmail, in.Email, finder.FindByEmail},
	}

	for _, p := range lookups {
		if p.value == "" {
			continue
		}
		lead, err := p.find(ctx, companyID, p.value)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, MatchNone, err
		}
		return &lead, p.key, nil
	}

	return nil, MatchNone, nil
}
