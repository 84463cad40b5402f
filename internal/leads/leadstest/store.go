// Package leadstest provides an in-memory lead store for tests of the
// services built on the leads repository contract.
package leadstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store is an in-memory repository.LeadsRepository. WithTx holds one
// store-wide lock for the whole transaction and restores the previous
// state when fn fails.
type Store struct {
	txMu    sync.Mutex
	mu      sync.Mutex
	leads   map[uuid.UUID]domain.Lead
	history []repository.StatusHistoryEntry
	now     func() time.Time

	// FailCreate, when set, is returned by the next CreateLead and cleared.
	FailCreate error
	// FailUpdate, when set, is returned by every UpdateLead.
	FailUpdate error
	// BeforeUpdate, when set, runs inside UpdateLead before the write.
	BeforeUpdate func(id uuid.UUID)

	Creates int
	Updates int
	Commits int
}

var _ repository.LeadsRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		leads: make(map[uuid.UUID]domain.Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Seed stores lead as is, assigning an ID and timestamps when missing.
func (s *Store) Seed(lead domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	if lead.Status == "" {
		lead.Status = domain.StatusLead
	}
	s.leads[lead.ID] = lead
	return lead
}

// Get returns the stored lead.
func (s *Store) Get(id uuid.UUID) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	return lead, ok
}

// Count returns the number of stored leads.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// History returns every recorded transition in insertion order.
func (s *Store) History() []repository.StatusHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.StatusHistoryEntry(nil), s.history...)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.LeadStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	leads := make(map[uuid.UUID]domain.Lead, len(s.leads))
	for id, l := range s.leads {
		leads[id] = l
	}
	history := append([]repository.StatusHistoryEntry(nil), s.history...)
	s.mu.Unlock()

	if err := fn(txStore{s}); err != nil {
		s.mu.Lock()
		s.leads = leads
		s.history = history
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

// txStore is the transaction view; nested WithTx joins the outer one.
type txStore struct{ *Store }

func (t txStore) WithTx(ctx context.Context, fn func(tx repository.LeadStore) error) error {
	return fn(t)
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.CompanyID != companyID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *Store) LockByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error) {
	return s.GetByID(ctx, id, companyID)
}

func (s *Store) FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (domain.Lead, error) {
	return s.findLatest(companyID, func(l domain.Lead) bool {
		return l.ExternalContactID != nil && *l.ExternalContactID == externalID
	})
}

func (s *Store) FindByPhone(ctx context.Context, companyID uuid.UUID, phone string) (domain.Lead, error) {
	return s.findLatest(companyID, func(l domain.Lead) bool { return l.Phone == phone })
}

func (s *Store) FindByEmail(ctx context.Context, companyID uuid.UUID, email string) (domain.Lead, error) {
	return s.findLatest(companyID, func(l domain.Lead) bool { return l.Email == email })
}

func (s *Store) findLatest(companyID uuid.UUID, match func(domain.Lead) bool) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  domain.Lead
		found bool
	)
	for _, l := range s.leads {
		if l.CompanyID != companyID || !match(l) {
			continue
		}
		if !found || l.CreatedAt.After(best.CreatedAt) {
			best, found = l, true
		}
	}
	if !found {
		return domain.Lead{}, repository.ErrNotFound
	}
	return best, nil
}

func (s *Store) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		err := s.FailCreate
		s.FailCreate = nil
		return domain.Lead{}, err
	}
	if lead.ExternalContactID != nil {
		for _, l := range s.leads {
			if l.CompanyID == lead.CompanyID && l.ExternalContactID != nil && *l.ExternalContactID == *lead.ExternalContactID {
				return domain.Lead{}, repository.ErrDuplicateExternalID
			}
		}
	}
	lead.ID = uuid.New()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	s.leads[lead.ID] = lead
	s.Creates++
	return lead, nil
}

func (s *Store) UpdateLead(ctx context.Context, id uuid.UUID, companyID uuid.UUID, assignments []domain.Assignment, expectedStatus *domain.Status) (domain.Lead, error) {
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return domain.Lead{}, s.FailUpdate
	}
	lead, ok := s.leads[id]
	if !ok || lead.CompanyID != companyID {
		return domain.Lead{}, repository.ErrNotFound
	}
	if expectedStatus != nil && lead.Status != *expectedStatus {
		return domain.Lead{}, repository.ErrStatusMismatch
	}

	updated := domain.Apply(lead, assignments)
	if !hasField(assignments, domain.FieldUpdatedAt) {
		updated.UpdatedAt = s.now()
	}
	if updated.ExternalContactID != nil {
		for otherID, l := range s.leads {
			if otherID != id && l.CompanyID == companyID && l.ExternalContactID != nil && *l.ExternalContactID == *updated.ExternalContactID {
				return domain.Lead{}, repository.ErrDuplicateExternalID
			}
		}
	}
	s.leads[id] = updated
	s.Updates++
	return updated, nil
}

func (s *Store) MarkSynced(ctx context.Context, id uuid.UUID, companyID uuid.UUID, at time.Time, externalContactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.CompanyID != companyID {
		return repository.ErrNotFound
	}
	lead.LastSyncedAt = &at
	if lead.ExternalContactID == nil && externalContactID != "" {
		lead.ExternalContactID = &externalContactID
	}
	s.leads[id] = lead
	return nil
}

func (s *Store) List(ctx context.Context, params repository.ListParams) ([]domain.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(params.Search)
	out := make([]domain.Lead, 0)
	for _, l := range s.leads {
		if l.CompanyID != params.CompanyID {
			continue
		}
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(l.Name+" "+l.Phone+" "+l.Email+" "+l.City), search) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return out[start:end], total, nil
}

func (s *Store) InsertStatusHistory(ctx context.Context, params repository.InsertStatusHistoryParams) (repository.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := repository.StatusHistoryEntry{
		ID:         uuid.New(),
		LeadID:     params.LeadID,
		CompanyID:  params.CompanyID,
		FromStatus: params.FromStatus,
		ToStatus:   params.ToStatus,
		Reason:     params.Reason,
		Source:     params.Source,
		ActorID:    params.ActorID,
		ChangedAt:  s.now(),
	}
	s.history = append(s.history, entry)
	return entry, nil
}

func (s *Store) ListStatusHistory(ctx context.Context, leadID uuid.UUID, companyID uuid.UUID) ([]repository.StatusHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.StatusHistoryEntry, 0)
	for i := len(s.history) - 1; i >= 0; i-- {
		if e := s.history[i]; e.LeadID == leadID && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func hasField(assignments []domain.Assignment, f domain.Field) bool {
	for _, a := range assignments {
		if a.Field == f {
			return true
		}
	}
	return false
}
