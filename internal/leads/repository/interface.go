package repository

import (
	"context"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadFinder looks a lead up by one identity key within a company.
// Each finder returns ErrNotFound when the key matches nothing.
type LeadFinder interface {
	FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (domain.Lead, error)
	FindByPhone(ctx context.Context, companyID uuid.UUID, phone string) (domain.Lead, error)
	FindByEmail(ctx context.Context, companyID uuid.UUID, email string) (domain.Lead, error)
}

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
}

// LeadWriter provides the write contract used by reconcile and pipeline.
type LeadWriter interface {
	// LockByID reads the lead and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error)
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	// UpdateLead applies assignments in one statement. A non-nil
	// expectedStatus makes the write conditional on the stored status and
	// yields ErrStatusMismatch when it differs.
	UpdateLead(ctx context.Context, id uuid.UUID, companyID uuid.UUID, assignments []domain.Assignment, expectedStatus *domain.Status) (domain.Lead, error)
}

// StatusHistoryStore records and lists pipeline transitions.
type StatusHistoryStore interface {
	InsertStatusHistory(ctx context.Context, params InsertStatusHistoryParams) (StatusHistoryEntry, error)
	ListStatusHistory(ctx context.Context, leadID uuid.UUID, companyID uuid.UUID) ([]StatusHistoryEntry, error)
}

// SyncBookkeeper records outbound sync completion. A non-empty
// externalContactID is stored only when the lead has none yet.
type SyncBookkeeper interface {
	MarkSynced(ctx context.Context, id uuid.UUID, companyID uuid.UUID, at time.Time, externalContactID string) error
}

// LeadStore is everything a write path needs inside one transaction.
type LeadStore interface {
	LeadFinder
	LeadReader
	LeadWriter
	StatusHistoryStore
}

// Transactor runs fn against a transaction-scoped LeadStore. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx LeadStore) error) error
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadStore
	Transactor
	SyncBookkeeper
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
