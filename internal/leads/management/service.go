// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing service logic
// for creating, reading, and editing leads from the UI.
package management

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/reconcile"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgLeadNotFound = "lead not found"

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadStore
	repository.Transactor
}

// Service handles lead management operations.
type Service struct {
	repo        Repository
	transitions *pipeline.Service
	sync        ports.SyncDispatcher
	bus         events.Bus
	phoneRegion string
}

// New creates a new lead management service.
func New(repo Repository, transitions *pipeline.Service, sync ports.SyncDispatcher, bus events.Bus, phoneRegion string) *Service {
	if sync == nil {
		sync = ports.NoopSyncDispatcher{}
	}
	return &Service{repo: repo, transitions: transitions, sync: sync, bus: bus, phoneRegion: phoneRegion}
}

// Create creates a new lead in LEAD with the UI as last writer.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead := domain.Lead{
		CompanyID:          companyID,
		Name:               sanitize.Line(req.Name),
		Phone:              phone.NationalDigits(req.Phone, s.phoneRegion),
		Email:              normalizeEmail(req.Email),
		Address:            sanitize.Line(req.Address),
		City:               sanitize.Line(req.City),
		State:              sanitize.Line(req.State),
		Zip:                sanitize.Line(req.Zip),
		BuyerType:          sanitize.Line(req.BuyerType),
		CompanyName:        sanitize.Line(req.CompanyName),
		ProjectType:        sanitize.Line(req.ProjectType),
		ReferralSource:     sanitize.Line(req.ReferralSource),
		LeadSource:         sanitize.Line(req.LeadSource),
		Notes:              sanitize.Text(req.Notes),
		ContractPriceCents: req.ContractPriceCents,
		Status:             domain.StatusLead,
		SyncSource:         domain.SyncSourceUI,
	}

	created, err := s.repo.CreateLead(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     created.ID,
			CompanyID:  created.CompanyID,
			SyncSource: string(domain.SyncSourceUI),
		})
	}
	s.sync.Dispatch(ctx, ports.SyncNotification{
		LeadID:        created.ID,
		CompanyID:     created.CompanyID,
		ChangeSummary: reconcile.ChangeSummary(true, nil),
	})

	return ToLeadResponse(created), nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id, companyID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.LeadResponse{}, err
	}

	return ToLeadResponse(lead), nil
}

// List returns a page of the company's leads.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	params := repository.ListParams{
		CompanyID: companyID,
		Search:    strings.TrimSpace(req.Search),
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown status")
		}
		params.Status = &status
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Update applies a partial edit. A requested status change goes through the
// state machine inside the same transaction as the field edits, and a
// refused transition aborts the whole edit.
func (s *Service) Update(ctx context.Context, id, companyID uuid.UUID, req transport.UpdateLeadRequest, actor pipeline.Actor) (transport.LeadResponse, error) {
	var (
		transition   *pipeline.Outcome
		fieldChanges []domain.Field
		result       domain.Lead
	)

	err := s.repo.WithTx(ctx, func(tx repository.LeadStore) error {
		current, err := tx.LockByID(ctx, id, companyID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgLeadNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock lead: %w", err)
		}

		if req.Status != nil {
			to, ok := domain.ParseStatus(*req.Status)
			if !ok {
				return apperr.Validation("unknown status")
			}
			if to != current.Status {
				out, err := pipeline.Apply(ctx, tx, current, domain.TransitionRequest{
					To:              to,
					AppointmentDate: req.AppointmentDate.Value,
					AppointmentTime: req.AppointmentTime,
					Reason:          req.NotSoldReason,
				}, actor)
				if err != nil {
					return err
				}
				transition = &out
				current = out.Lead
			}
		}

		assignments, err := s.fieldAssignments(current, req, transition != nil)
		if err != nil {
			return err
		}

		result = current
		if len(assignments) == 0 {
			return nil
		}

		assignments = append(assignments, domain.Set(domain.FieldSyncSource, domain.SyncSourceUI))
		fieldChanges = domain.Changed(current, assignments)
		result, err = tx.UpdateLead(ctx, id, companyID, assignments, nil)
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		return nil
	})
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) && te.Kind != domain.ErrKindInstallNotAllowed {
			s.transitions.Rejected(id, te)
		}
		return transport.LeadResponse{}, err
	}

	if transition != nil {
		s.transitions.Committed(ctx, *transition)
	}
	if len(fieldChanges) > 0 {
		if s.bus != nil {
			names := make([]string, len(fieldChanges))
			for i, f := range fieldChanges {
				names[i] = string(f)
			}
			s.bus.Publish(ctx, events.LeadUpdated{
				BaseEvent:     events.NewBaseEvent(),
				LeadID:        result.ID,
				CompanyID:     result.CompanyID,
				SyncSource:    string(domain.SyncSourceUI),
				ChangedFields: names,
			})
		}
		s.sync.Dispatch(ctx, ports.SyncNotification{
			LeadID:        result.ID,
			CompanyID:     result.CompanyID,
			ChangeSummary: reconcile.ChangeSummary(false, fieldChanges),
		})
	}

	return ToLeadResponse(result), nil
}

// fieldAssignments turns the non-status parts of req into assignments
// against current, which already reflects any transition. Appointment and
// reason inputs were consumed by the transition when one ran.
func (s *Service) fieldAssignments(current domain.Lead, req transport.UpdateLeadRequest, transitioned bool) ([]domain.Assignment, error) {
	var out []domain.Assignment

	text := []struct {
		field domain.Field
		value *string
	}{
		{domain.FieldName, req.Name},
		{domain.FieldAddress, req.Address},
		{domain.FieldCity, req.City},
		{domain.FieldState, req.State},
		{domain.FieldZip, req.Zip},
		{domain.FieldBuyerType, req.BuyerType},
		{domain.FieldCompanyName, req.CompanyName},
		{domain.FieldProjectType, req.ProjectType},
		// Write-once; dropped by the store once set.
		{domain.FieldReferralSource, req.ReferralSource},
		{domain.FieldLeadSource, req.LeadSource},
	}
	for _, t := range text {
		if t.value != nil {
			out = append(out, domain.Set(t.field, sanitize.Line(*t.value)))
		}
	}

	if req.Notes != nil {
		out = append(out, domain.Set(domain.FieldNotes, sanitize.Text(*req.Notes)))
	}
	if req.Phone != nil {
		out = append(out, domain.Set(domain.FieldPhone, phone.NationalDigits(*req.Phone, s.phoneRegion)))
	}
	if req.Email != nil {
		out = append(out, domain.Set(domain.FieldEmail, normalizeEmail(*req.Email)))
	}
	if req.ContractPriceCents.Set {
		if v := req.ContractPriceCents.Value; v != nil && *v < 0 {
			return nil, apperr.Validation("contractPriceCents must not be negative")
		}
		out = append(out, domain.Set(domain.FieldContractPriceCents, req.ContractPriceCents.Value))
	}

	if !transitioned {
		if req.AppointmentDate.Set {
			out = append(out, domain.Set(domain.FieldAppointmentDate, req.AppointmentDate.Value))
		}
		if req.AppointmentTime != nil {
			out = append(out, domain.Set(domain.FieldAppointmentTime, strings.TrimSpace(*req.AppointmentTime)))
		}
		if req.NotSoldReason != nil {
			reason := strings.TrimSpace(*req.NotSoldReason)
			if current.Status != domain.StatusNotSold {
				return nil, apperr.Conflict("notSoldReason can only be edited while NOT_SOLD")
			}
			if reason == "" {
				return nil, apperr.Unprocessable("notSoldReason cannot be empty while NOT_SOLD")
			}
			out = append(out, domain.Set(domain.FieldNotSoldReason, reason))
		}
	}

	install, err := domain.PlanInstallEdit(current, domain.InstallEdit{
		Date:      req.InstallDate.Value,
		ClearDate: req.InstallDate.Set && req.InstallDate.Value == nil,
		Tentative: req.InstallTentative,
	})
	if err != nil {
		return nil, err
	}
	out = append(out, install...)

	return out, nil
}

// Transition moves a lead through the pipeline.
func (s *Service) Transition(ctx context.Context, id, companyID uuid.UUID, req transport.TransitionRequest, actor pipeline.Actor) (transport.LeadResponse, error) {
	to, ok := domain.ParseStatus(req.To)
	if !ok {
		return transport.LeadResponse{}, apperr.Validation("unknown status")
	}

	treq := domain.TransitionRequest{
		To:              to,
		AppointmentTime: req.AppointmentTime,
		Reason:          req.Reason,
	}
	if req.AppointmentDate != nil && *req.AppointmentDate != "" {
		date, err := transport.ParseDate(*req.AppointmentDate)
		if err != nil {
			return transport.LeadResponse{}, apperr.Wrap(apperr.KindValidation, "appointmentDate must be YYYY-MM-DD", err)
		}
		treq.AppointmentDate = &date
	}

	lead, err := s.transitions.Transition(ctx, id, companyID, treq, actor)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// History lists a lead's status transitions, newest first.
func (s *Service) History(ctx context.Context, id, companyID uuid.UUID) (transport.StatusHistoryListResponse, error) {
	if _, err := s.repo.GetByID(ctx, id, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.StatusHistoryListResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.StatusHistoryListResponse{}, err
	}

	entries, err := s.repo.ListStatusHistory(ctx, id, companyID)
	if err != nil {
		return transport.StatusHistoryListResponse{}, err
	}

	items := make([]transport.StatusHistoryResponse, len(entries))
	for i, e := range entries {
		items[i] = ToStatusHistoryResponse(e)
	}
	return transport.StatusHistoryListResponse{Items: items}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
