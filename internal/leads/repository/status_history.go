package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// History sources.
const (
	HistorySourceUI      = "UI"
	HistorySourceWebhook = "WEBHOOK"
)

type StatusHistoryEntry struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	CompanyID  uuid.UUID
	FromStatus domain.Status
	ToStatus   domain.Status
	Reason     string
	Source     string
	ActorID    *uuid.UUID
	ChangedAt  time.Time
}

type InsertStatusHistoryParams struct {
	LeadID     uuid.UUID
	CompanyID  uuid.UUID
	FromStatus domain.Status
	ToStatus   domain.Status
	Reason     string
	Source     string
	ActorID    *uuid.UUID
}

func (r *Repository) InsertStatusHistory(ctx context.Context, params InsertStatusHistoryParams) (StatusHistoryEntry, error) {
	var (
		entry    StatusHistoryEntry
		from, to string
	)
	err := r.q.QueryRow(ctx, `
		INSERT INTO lead_status_history (lead_id, company_id, from_status, to_status, reason, source, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, lead_id, company_id, from_status, to_status, reason, source, actor_id, changed_at
	`,
		params.LeadID, params.CompanyID, string(params.FromStatus), string(params.ToStatus),
		params.Reason, params.Source, params.ActorID,
	).Scan(
		&entry.ID, &entry.LeadID, &entry.CompanyID, &from, &to,
		&entry.Reason, &entry.Source, &entry.ActorID, &entry.ChangedAt,
	)
	entry.FromStatus = domain.Status(from)
	entry.ToStatus = domain.Status(to)
	return entry, err
}

// ListStatusHistory returns the transitions of a lead, newest first.
func (r *Repository) ListStatusHistory(ctx context.Context, leadID uuid.UUID, companyID uuid.UUID) ([]StatusHistoryEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, lead_id, company_id, from_status, to_status, reason, source, actor_id, changed_at
		FROM lead_status_history
		WHERE lead_id = $1 AND company_id = $2
		ORDER BY changed_at DESC, id
	`, leadID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]StatusHistoryEntry, 0)
	for rows.Next() {
		var (
			entry    StatusHistoryEntry
			from, to string
		)
		if err := rows.Scan(
			&entry.ID, &entry.LeadID, &entry.CompanyID, &from, &to,
			&entry.Reason, &entry.Source, &entry.ActorID, &entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		entry.FromStatus = domain.Status(from)
		entry.ToStatus = domain.Status(to)
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}
