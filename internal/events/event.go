// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead row is committed for the first time.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CompanyID  uuid.UUID `json:"companyId"`
	SyncSource string    `json:"syncSource"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published after an existing lead's fields are committed.
type LeadUpdated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	CompanyID     uuid.UUID `json:"companyId"`
	SyncSource    string    `json:"syncSource"`
	ChangedFields []string  `json:"changedFields"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadStatusChanged is published after a pipeline transition commits.
type LeadStatusChanged struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CompanyID  uuid.UUID `json:"companyId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadSyncRequested carries a sync notification from a committed write to
// the outbound dispatcher.
type LeadSyncRequested struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	CompanyID     uuid.UUID `json:"companyId"`
	ChangeSummary string    `json:"changeSummary"`
}

func (e LeadSyncRequested) EventName() string { return "leads.sync.requested" }

// WebhookContactReceived is published after an inbound contact has been
// reconciled, carrying the raw payload for archiving.
type WebhookContactReceived struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CompanyID uuid.UUID `json:"companyId"`
	Created   bool      `json:"created"`
	Payload   []byte    `json:"-"`
}

func (e WebhookContactReceived) EventName() string { return "webhook.contact.received" }
