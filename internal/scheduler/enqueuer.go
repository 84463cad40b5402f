package scheduler

import (
	"context"

	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"
)

// SyncEnqueuer moves sync requests from the in-process bus onto the task
// queue. Failures are logged and counted; the write that caused them has
// already committed.
type SyncEnqueuer struct {
	queue LeadSyncEnqueuer
	log   *logger.Logger
}

func NewSyncEnqueuer(queue LeadSyncEnqueuer, log *logger.Logger) *SyncEnqueuer {
	return &SyncEnqueuer{queue: queue, log: log}
}

// RegisterHandlers subscribes the enqueuer to sync requests.
func (e *SyncEnqueuer) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadSyncRequested{}.EventName(), e)
}

// Handle implements events.Handler.
func (e *SyncEnqueuer) Handle(ctx context.Context, event events.Event) error {
	req, ok := event.(events.LeadSyncRequested)
	if !ok {
		return nil
	}

	err := e.queue.EnqueueLeadSync(ctx, LeadSyncPayload{
		LeadID:        req.LeadID.String(),
		CompanyID:     req.CompanyID.String(),
		ChangeSummary: req.ChangeSummary,
	})
	if err != nil {
		metrics.RecordSyncDispatchFailure("enqueue")
		e.log.SyncDispatchFailed(req.LeadID.String(), req.CompanyID.String(), err)
	}
	return nil
}
