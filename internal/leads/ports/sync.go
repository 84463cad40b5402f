// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the Leads domain based on what it needs,
// rather than what other domains choose to offer.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// SyncNotification tells the outbound side that a lead changed.
type SyncNotification struct {
	LeadID        uuid.UUID
	CompanyID     uuid.UUID
	ChangeSummary string
}

// SyncDispatcher hands a committed change to the outbound push mechanism.
// Dispatch must not block on the push itself and has no failure mode the
// caller can act on; implementations report their own failures.
type SyncDispatcher interface {
	Dispatch(ctx context.Context, n SyncNotification)
}

// NoopSyncDispatcher drops notifications.
type NoopSyncDispatcher struct{}

func (NoopSyncDispatcher) Dispatch(context.Context, SyncNotification) {}
