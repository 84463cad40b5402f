package adapters

import (
	"context"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/ports"
)

// LeadSyncDispatcher adapts the event bus to the leads SyncDispatcher port.
// The bus delivers asynchronously, so Dispatch never waits on the push.
type LeadSyncDispatcher struct {
	bus events.Bus
}

// NewLeadSyncDispatcher creates a new lead sync dispatcher adapter.
func NewLeadSyncDispatcher(bus events.Bus) *LeadSyncDispatcher {
	return &LeadSyncDispatcher{bus: bus}
}

// Dispatch publishes a LeadSyncRequested event.
func (a *LeadSyncDispatcher) Dispatch(ctx context.Context, n ports.SyncNotification) {
	a.bus.Publish(ctx, events.LeadSyncRequested{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        n.LeadID,
		CompanyID:     n.CompanyID,
		ChangeSummary: n.ChangeSummary,
	})
}

// Compile-time check.
var _ ports.SyncDispatcher = (*LeadSyncDispatcher)(nil)
