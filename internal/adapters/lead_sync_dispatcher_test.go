package adapters

import (
	"context"
	"testing"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

func TestLeadSyncDispatcherPublishesRequest(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Discard())
	var got []events.LeadSyncRequested
	bus.Subscribe(events.LeadSyncRequested{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.LeadSyncRequested))
		return nil
	}))

	leadID, companyID := uuid.New(), uuid.New()
	NewLeadSyncDispatcher(bus).Dispatch(context.Background(), ports.SyncNotification{
		LeadID:        leadID,
		CompanyID:     companyID,
		ChangeSummary: "created",
	})
	bus.Wait()

	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	if got[0].LeadID != leadID || got[0].CompanyID != companyID || got[0].ChangeSummary != "created" {
		t.Fatalf("unexpected request %+v", got[0])
	}
	if got[0].OccurredAt().IsZero() {
		t.Fatal("expected timestamp set")
	}
}
