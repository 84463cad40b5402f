// Package webhook provides the inbound CRM webhook bounded context.
// It normalizes arbitrary contact payloads, resolves the owning company and
// hands the contact to the lead reconciler.
package webhook

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/companies"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/reconcile"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
)

// ErrUnknownCompany means the payload's scope matched no company.
var ErrUnknownCompany = errors.New("unknown company")

const (
	outcomeCreated        = "created"
	outcomeUpdated        = "updated"
	outcomeMissingScope   = "missing_scope"
	outcomeUnknownCompany = "unknown_company"
	outcomeFailed         = "failed"
)

// CompanyResolver finds the company owning a tenant scope key.
type CompanyResolver interface {
	ResolveByScope(ctx context.Context, scopeKey string) (companies.Company, error)
}

// ContactReconciler applies a normalized contact to a company's leads.
// Satisfied by reconcile.Reconciler.
type ContactReconciler interface {
	Reconcile(ctx context.Context, companyID uuid.UUID, in domain.IncomingContact) (reconcile.Result, error)
}

// Result is the outcome of one webhook delivery.
type Result struct {
	LeadID    uuid.UUID
	CompanyID uuid.UUID
	Created   bool
	MatchedBy reconcile.MatchKey
}

// Service handles inbound CRM contacts.
type Service struct {
	normalizer *Normalizer
	companies  CompanyResolver
	reconciler ContactReconciler
	eventBus   events.Bus
	log        *logger.Logger
}

// NewService creates a new webhook service.
func NewService(normalizer *Normalizer, companies CompanyResolver, reconciler ContactReconciler, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		companies:  companies,
		reconciler: reconciler,
		eventBus:   eventBus,
		log:        log,
	}
}

// ProcessContact normalizes payload and reconciles it. raw is the request
// body as received and is only used for archiving. Once started the work is
// not cancelled by ctx; a disconnecting caller must not leave a half-applied
// delivery behind.
func (s *Service) ProcessContact(ctx context.Context, payload map[string]any, raw []byte) (Result, error) {
	ctx = context.WithoutCancel(ctx)

	normalized, err := s.normalizer.Normalize(payload)
	if err != nil {
		metrics.RecordWebhookOutcome(outcomeMissingScope, string(reconcile.MatchNone))
		return Result{}, err
	}

	company, err := s.companies.ResolveByScope(ctx, normalized.ScopeKey)
	if errors.Is(err, companies.ErrNotFound) {
		metrics.RecordWebhookOutcome(outcomeUnknownCompany, string(reconcile.MatchNone))
		s.log.Warn("webhook: unknown company", "scope_key", normalized.ScopeKey)
		return Result{}, ErrUnknownCompany
	}
	if err != nil {
		metrics.RecordWebhookOutcome(outcomeFailed, string(reconcile.MatchNone))
		s.log.DatabaseError("resolve company", err)
		return Result{}, fmt.Errorf("resolve company: %w", err)
	}

	res, err := s.reconciler.Reconcile(ctx, company.ID, normalized.Contact)
	if err != nil {
		metrics.RecordWebhookOutcome(outcomeFailed, string(reconcile.MatchNone))
		s.log.DatabaseError("reconcile webhook contact", err)
		return Result{}, fmt.Errorf("reconcile contact: %w", err)
	}

	outcome := outcomeUpdated
	if res.Created {
		outcome = outcomeCreated
	}
	metrics.RecordWebhookOutcome(outcome, string(res.MatchedBy))
	s.log.WebhookOutcome(company.ID.String(), res.Lead.ID.String(), outcome, string(res.MatchedBy))

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.WebhookContactReceived{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    res.Lead.ID,
			CompanyID: company.ID,
			Created:   res.Created,
			Payload:   raw,
		})
	}

	return Result{
		LeadID:    res.Lead.ID,
		CompanyID: company.ID,
		Created:   res.Created,
		MatchedBy: res.MatchedBy,
	}, nil
}
