package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadSyncedMessage announces that a lead reached the external CRM.
type LeadSyncedMessage struct {
	LeadID            string    `json:"lead_id"`
	CompanyID         string    `json:"company_id"`
	ExternalContactID string    `json:"external_contact_id,omitempty"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Status            string    `json:"status"`
	ChangeSummary     string    `json:"change_summary"`
	SyncedAt          time.Time `json:"synced_at"`
}

// LeadSyncedPublisher is implemented by *Publisher.
type LeadSyncedPublisher interface {
	PublishLeadSynced(ctx context.Context, msg LeadSyncedMessage) error
}

var _ LeadSyncedPublisher = (*Publisher)(nil)

// PublishLeadSynced sends msg persistently on the lead.synced routing key.
// A nil publisher drops the message.
func (p *Publisher) PublishLeadSynced(ctx context.Context, msg LeadSyncedMessage) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal lead.synced: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKeySynced,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.LeadID + ":" + msg.SyncedAt.UTC().Format(time.RFC3339Nano),
			Timestamp:    msg.SyncedAt,
			Type:         RoutingKeySynced,
			Body:         body,
		},
	)
}
