package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is what the reconciler needs from persistence.
type Store interface {
	repository.Transactor
}

// Result describes a committed reconcile.
type Result struct {
	Lead      domain.Lead
	Created   bool
	MatchedBy MatchKey
	Changed   []domain.Field
}

// Reconciler applies inbound contacts to the lead store.
type Reconciler struct {
	store Store
	sync  ports.SyncDispatcher
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates a Reconciler. sync and bus may be nil; log may not.
func New(store Store, sync ports.SyncDispatcher, bus events.Bus, log *logger.Logger) *Reconciler {
	if sync == nil {
		sync = ports.NoopSyncDispatcher{}
	}
	return &Reconciler{store: store, sync: sync, bus: bus, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile matches in against companyID's leads and creates or updates one
// lead in a single transaction. Nothing is written when it fails.
func (r *Reconciler) Reconcile(ctx context.Context, companyID uuid.UUID, in domain.IncomingContact) (Result, error) {
	res, err := r.reconcileOnce(ctx, companyID, in)
	if errors.Is(err, repository.ErrDuplicateExternalID) {
		// A concurrent delivery created the lead first; the retry matches it.
		r.log.Info("external contact id taken concurrently, retrying reconcile", "company_id", companyID.String())
		res, err = r.reconcileOnce(ctx, companyID, in)
	}
	if err != nil {
		return Result{}, err
	}

	r.afterCommit(ctx, res)
	return res, nil
}

func (r *Reconciler) reconcileOnce(ctx context.Context, companyID uuid.UUID, in domain.IncomingContact) (Result, error) {
	var res Result
	err := r.store.WithTx(ctx, func(tx repository.LeadStore) error {
		match, key, err := FindMatch(ctx, tx, companyID, in)
		if err != nil {
			return fmt.Errorf("match lead: %w", err)
		}

		var existing *domain.Lead
		if match != nil {
			locked, err := tx.LockByID(ctx, match.ID, companyID)
			if err != nil {
				return fmt.Errorf("lock lead: %w", err)
			}
			existing = &locked
		}

		plan := Merge(existing, in, r.now())

		if plan.Create != nil {
			plan.Create.CompanyID = companyID
			created, err := tx.CreateLead(ctx, *plan.Create)
			if err != nil {
				return fmt.Errorf("create lead: %w", err)
			}
			res = Result{Lead: created, Created: true, MatchedBy: MatchNone}
			return nil
		}

		updated, err := tx.UpdateLead(ctx, existing.ID, companyID, plan.Assignments, nil)
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		res = Result{
			Lead:      updated,
			MatchedBy: key,
			Changed:   domain.Changed(*existing, plan.Assignments),
		}
		return nil
	})
	return res, err
}

func (r *Reconciler) afterCommit(ctx context.Context, res Result) {
	if r.bus != nil {
		if res.Created {
			r.bus.Publish(ctx, events.LeadCreated{
				BaseEvent:  events.NewBaseEvent(),
				LeadID:     res.Lead.ID,
				CompanyID:  res.Lead.CompanyID,
				SyncSource: string(domain.SyncSourceExternal),
			})
		} else {
			r.bus.Publish(ctx, events.LeadUpdated{
				BaseEvent:     events.NewBaseEvent(),
				LeadID:        res.Lead.ID,
				CompanyID:     res.Lead.CompanyID,
				SyncSource:    string(domain.SyncSourceExternal),
				ChangedFields: fieldNames(res.Changed),
			})
		}
	}

	r.sync.Dispatch(ctx, ports.SyncNotification{
		LeadID:        res.Lead.ID,
		CompanyID:     res.Lead.CompanyID,
		ChangeSummary: ChangeSummary(res.Created, res.Changed),
	})
}

// ChangeSummary renders a short human-readable description of a write.
func ChangeSummary(created bool, changed []domain.Field) string {
	if created {
		return "created"
	}
	if len(changed) == 0 {
		return "updated: no field changes"
	}
	return "updated: " + strings.Join(fieldNames(changed), ", ")
}

func fieldNames(fields []domain.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
