package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/broker"
	"leadflow_backend/internal/crmsync"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	sinkCRM    = "crm"
	sinkBroker = "broker"
)

// LeadSyncStore is the slice of the lead repository the sync worker needs.
type LeadSyncStore interface {
	GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error)
	repository.SyncBookkeeper
}

// ContactPusher upserts a contact in the external CRM and returns its ID.
type ContactPusher interface {
	UpsertContact(ctx context.Context, contact crmsync.Contact) (string, error)
}

// LeadSyncHandler pushes one committed lead change to the external CRM and
// announces it on the broker.
type LeadSyncHandler struct {
	repo      LeadSyncStore
	crm       ContactPusher
	publisher broker.LeadSyncedPublisher
	region    string
	now       func() time.Time
	log       *logger.Logger
}

// NewLeadSyncHandler builds the handler. crm and publisher may be nil, in
// which case that sink is skipped.
func NewLeadSyncHandler(repo LeadSyncStore, crm ContactPusher, publisher broker.LeadSyncedPublisher, region string, log *logger.Logger) *LeadSyncHandler {
	return &LeadSyncHandler{
		repo:      repo,
		crm:       crm,
		publisher: publisher,
		region:    region,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// ProcessTask implements asynq.Handler.
func (h *LeadSyncHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadSyncPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return h.Sync(ctx, payload)
}

// Sync loads the lead, pushes it unless the change came from the CRM
// itself, then records the sync time.
func (h *LeadSyncHandler) Sync(ctx context.Context, payload LeadSyncPayload) error {
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("lead id: %v: %w", err, asynq.SkipRetry)
	}
	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("company id: %v: %w", err, asynq.SkipRetry)
	}

	lead, err := h.repo.GetByID(ctx, leadID, companyID)
	if errors.Is(err, repository.ErrNotFound) {
		h.log.Warn("lead sync: lead no longer exists", "lead_id", leadID, "company_id", companyID)
		return nil
	}
	if err != nil {
		return err
	}

	if isEcho(lead) {
		metrics.RecordSyncPush(sinkCRM, "skipped")
		h.log.Debug("lead sync: skipping unchanged external write", "lead_id", leadID)
		return nil
	}

	externalID := ""
	if h.crm != nil {
		externalID, err = h.crm.UpsertContact(ctx, crmsync.ContactFromLead(lead, h.region))
		if err != nil {
			if errors.Is(err, crmsync.ErrRejected) {
				metrics.RecordSyncPush(sinkCRM, "rejected")
				h.log.Error("lead sync: crm rejected contact", "lead_id", leadID, "error", err)
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			metrics.RecordSyncPush(sinkCRM, "error")
			return err
		}
		metrics.RecordSyncPush(sinkCRM, "ok")
	}

	syncedAt := h.now()
	if err := h.repo.MarkSynced(ctx, leadID, companyID, syncedAt, externalID); err != nil {
		h.log.DatabaseError("mark_lead_synced", err)
		return err
	}

	h.announce(ctx, lead, externalID, payload.ChangeSummary, syncedAt)
	return nil
}

// announce publishes lead.synced. Broker failures do not fail the task so
// the CRM push is not repeated for them.
func (h *LeadSyncHandler) announce(ctx context.Context, lead domain.Lead, externalID, summary string, syncedAt time.Time) {
	if h.publisher == nil {
		return
	}
	if externalID == "" && lead.ExternalContactID != nil {
		externalID = *lead.ExternalContactID
	}

	err := h.publisher.PublishLeadSynced(ctx, broker.LeadSyncedMessage{
		LeadID:            lead.ID.String(),
		CompanyID:         lead.CompanyID.String(),
		ExternalContactID: externalID,
		Name:              lead.Name,
		Email:             lead.Email,
		Phone:             lead.Phone,
		Status:            string(lead.Status),
		ChangeSummary:     summary,
		SyncedAt:          syncedAt,
	})
	if err != nil {
		metrics.RecordSyncPush(sinkBroker, "error")
		h.log.Error("lead sync: broker publish failed", "lead_id", lead.ID, "error", err)
		return
	}
	metrics.RecordSyncPush(sinkBroker, "ok")
}

// isEcho reports a lead whose last write came from the CRM and which has
// not changed since it was last pushed.
func isEcho(lead domain.Lead) bool {
	return lead.SyncSource == domain.SyncSourceExternal &&
		lead.LastSyncedAt != nil &&
		!lead.UpdatedAt.After(*lead.LastSyncedAt)
}
