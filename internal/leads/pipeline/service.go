// Package pipeline applies lead status transitions against the store.
// Legality lives in domain; this package owns the transaction, the
// optimistic status guard, history and after-commit notifications.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	resultApplied  = "applied"
	resultNoOp     = "noop"
	resultRejected = "rejected"
)

// Actor identifies who requested a transition.
type Actor struct {
	UserID *uuid.UUID
	Source string
}

// UIActor is a transition requested by a signed-in user.
func UIActor(userID uuid.UUID) Actor {
	return Actor{UserID: &userID, Source: repository.HistorySourceUI}
}

// Outcome is a committed transition.
type Outcome struct {
	Lead domain.Lead
	Plan domain.TransitionPlan
}

// Apply validates req against current and persists it through tx, which
// must hold the row lock on current. It returns *domain.TransitionError for
// refused requests and leaves the lead untouched.
func Apply(ctx context.Context, tx repository.LeadStore, current domain.Lead, req domain.TransitionRequest, actor Actor) (Outcome, error) {
	plan, err := domain.PlanTransition(current, req)
	if err != nil {
		return Outcome{}, err
	}
	if plan.NoOp {
		return Outcome{Lead: current, Plan: plan}, nil
	}

	assignments := append(plan.Assignments, domain.Set(domain.FieldSyncSource, domain.SyncSourceUI))
	expected := plan.From
	updated, err := tx.UpdateLead(ctx, current.ID, current.CompanyID, assignments, &expected)
	if errors.Is(err, repository.ErrStatusMismatch) {
		return Outcome{}, &domain.TransitionError{Kind: domain.ErrKindInvalidTransition, From: plan.From, To: plan.To}
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("update lead status: %w", err)
	}

	if _, err := tx.InsertStatusHistory(ctx, repository.InsertStatusHistoryParams{
		LeadID:     current.ID,
		CompanyID:  current.CompanyID,
		FromStatus: plan.From,
		ToStatus:   plan.To,
		Reason:     plan.Reason,
		Source:     actor.Source,
		ActorID:    actor.UserID,
	}); err != nil {
		return Outcome{}, fmt.Errorf("record status history: %w", err)
	}

	return Outcome{Lead: updated, Plan: plan}, nil
}

// Service runs standalone transitions.
type Service struct {
	store repository.Transactor
	sync  ports.SyncDispatcher
	bus   events.Bus
	log   *logger.Logger
}

func New(store repository.Transactor, sync ports.SyncDispatcher, bus events.Bus, log *logger.Logger) *Service {
	if sync == nil {
		sync = ports.NoopSyncDispatcher{}
	}
	return &Service{store: store, sync: sync, bus: bus, log: log}
}

// Transition moves a lead to req.To in one transaction.
func (s *Service) Transition(ctx context.Context, leadID, companyID uuid.UUID, req domain.TransitionRequest, actor Actor) (domain.Lead, error) {
	var out Outcome
	err := s.store.WithTx(ctx, func(tx repository.LeadStore) error {
		current, err := tx.LockByID(ctx, leadID, companyID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		if err != nil {
			return fmt.Errorf("lock lead: %w", err)
		}

		out, err = Apply(ctx, tx, current, req, actor)
		return err
	})
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			s.Rejected(leadID, te)
		}
		return domain.Lead{}, err
	}

	s.Committed(ctx, out)
	return out.Lead, nil
}

// Committed emits the after-commit effects of a transition.
func (s *Service) Committed(ctx context.Context, out Outcome) {
	if out.Plan.NoOp {
		metrics.RecordTransition(string(out.Plan.From), string(out.Plan.To), resultNoOp)
		return
	}
	metrics.RecordTransition(string(out.Plan.From), string(out.Plan.To), resultApplied)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     out.Lead.ID,
			CompanyID:  out.Lead.CompanyID,
			FromStatus: string(out.Plan.From),
			ToStatus:   string(out.Plan.To),
		})
	}

	s.sync.Dispatch(ctx, ports.SyncNotification{
		LeadID:        out.Lead.ID,
		CompanyID:     out.Lead.CompanyID,
		ChangeSummary: fmt.Sprintf("status: %s -> %s", out.Plan.From, out.Plan.To),
	})
}

// Rejected logs and counts a refused transition.
func (s *Service) Rejected(leadID uuid.UUID, te *domain.TransitionError) {
	metrics.RecordTransition(string(te.From), string(te.To), resultRejected)
	s.log.TransitionRejected(leadID.String(), string(te.From), string(te.To), string(te.Kind))
}
