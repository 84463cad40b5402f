package management

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	fmtUnexpectedErr = "unexpected error: %v"
	fmtExpectedKind  = "expected kind %v, got %v"
)

func str(s string) *string { return &s }

func newTestService(store *leadstest.Store, rec *leadstest.SyncRecorder) *Service {
	transitions := pipeline.New(store, rec, nil, logger.Discard())
	return New(store, transitions, rec, nil, "US")
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateNormalizesContactFields(t *testing.T) {
	store := leadstest.NewStore()
	rec := &leadstest.SyncRecorder{}
	companyID := uuid.New()

	resp, err := newTestService(store, rec).Create(context.Background(), companyID, transport.CreateLeadRequest{
		Name:  "  Jane   Doe ",
		Phone: "+1 (555) 123-4567",
		Email: " Jane@Example.COM ",
	})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.Name != "Jane Doe" || resp.Phone != "5551234567" || resp.Email != "jane@example.com" {
		t.Fatalf("unexpected normalized lead %+v", resp)
	}
	if resp.Status != string(domain.StatusLead) || resp.SyncSource != string(domain.SyncSourceUI) {
		t.Fatalf("expected LEAD written by UI, got %s/%s", resp.Status, resp.SyncSource)
	}
	if notes := rec.Notifications(); len(notes) != 1 || notes[0].ChangeSummary != "created" {
		t.Fatalf("unexpected sync notifications %+v", notes)
	}
}

func TestGetByIDIsTenantScoped(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Name: "Jane", Status: domain.StatusLead})
	svc := newTestService(store, &leadstest.SyncRecorder{})

	if _, err := svc.GetByID(context.Background(), lead.ID, lead.CompanyID); err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if _, err := svc.GetByID(context.Background(), lead.ID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf(fmtExpectedKind, apperr.KindNotFound, err)
	}
}

func TestListPaginates(t *testing.T) {
	store := leadstest.NewStore()
	companyID := uuid.New()
	for i := 0; i < 5; i++ {
		store.Seed(domain.Lead{CompanyID: companyID, Name: "Lead", Status: domain.StatusLead})
	}
	store.Seed(domain.Lead{CompanyID: uuid.New(), Name: "Other", Status: domain.StatusLead})

	resp, err := newTestService(store, &leadstest.SyncRecorder{}).List(context.Background(), companyID,
		transport.ListLeadsRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.Total != 5 || resp.TotalPages != 3 || len(resp.Items) != 2 {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestUpdateKeepsWriteOnceFields(t *testing.T) {
	store := leadstest.NewStore()
	rec := &leadstest.SyncRecorder{}
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Name: "Jane", ReferralSource: "Google", Status: domain.StatusLead})

	resp, err := newTestService(store, rec).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{ReferralSource: str("Facebook"), City: str("Austin")}, pipeline.UIActor(uuid.New()))
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.ReferralSource != "Google" || resp.City != "Austin" {
		t.Fatalf("expected referral kept and city set, got %q/%q", resp.ReferralSource, resp.City)
	}
	notes := rec.Notifications()
	if len(notes) != 1 || notes[0].ChangeSummary != "updated: city" {
		t.Fatalf("unexpected sync notifications %+v", notes)
	}
}

func TestUpdateWithStatusRunsTransition(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusLead})
	date := transport.OptionalDate{Value: day(2026, time.March, 3), Set: true}

	resp, err := newTestService(store, &leadstest.SyncRecorder{}).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{
			Status:          str("APPOINTMENT_SET"),
			AppointmentDate: date,
			AppointmentTime: str("10:00"),
			Notes:           str("call first"),
		}, pipeline.UIActor(uuid.New()))
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.Status != string(domain.StatusAppointmentSet) || resp.AppointmentDate == nil || *resp.AppointmentDate != "2026-03-03" {
		t.Fatalf("unexpected lead after transition %+v", resp)
	}
	if resp.Notes != "call first" {
		t.Fatalf("expected notes edited alongside transition, got %q", resp.Notes)
	}
	if len(store.History()) != 1 {
		t.Fatalf("expected one history entry, got %d", len(store.History()))
	}
}

func TestUpdateRejectedTransitionDiscardsFieldEdits(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), City: "Austin", Status: domain.StatusLead})

	_, err := newTestService(store, &leadstest.SyncRecorder{}).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{Status: str("SOLD"), City: str("Dallas")}, pipeline.UIActor(uuid.New()))
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.Kind != domain.ErrKindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	stored, _ := store.Get(lead.ID)
	if stored.City != "Austin" || stored.Status != domain.StatusLead {
		t.Fatalf("expected lead untouched, got %s/%s", stored.City, stored.Status)
	}
}

func TestUpdateNotSoldReasonOutsideNotSold(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusSold})

	_, err := newTestService(store, &leadstest.SyncRecorder{}).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{NotSoldReason: str("price")}, pipeline.UIActor(uuid.New()))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf(fmtExpectedKind, apperr.KindConflict, err)
	}
}

func TestUpdateBlankNotSoldReasonWhileNotSold(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusNotSold, NotSoldReason: "price"})

	_, err := newTestService(store, &leadstest.SyncRecorder{}).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{NotSoldReason: str("   ")}, pipeline.UIActor(uuid.New()))
	if !apperr.Is(err, apperr.KindUnprocessable) {
		t.Fatalf(fmtExpectedKind, apperr.KindUnprocessable, err)
	}

	stored, _ := store.Get(lead.ID)
	if stored.NotSoldReason != "price" {
		t.Fatalf("expected reason kept, got %q", stored.NotSoldReason)
	}
}

func TestTransitionRejectsMalformedAppointmentDate(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusLead})

	_, err := newTestService(store, &leadstest.SyncRecorder{}).Transition(context.Background(), lead.ID, lead.CompanyID,
		transport.TransitionRequest{To: string(domain.StatusAppointmentSet), AppointmentDate: str("01/05/2026")}, pipeline.UIActor(uuid.New()))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf(fmtExpectedKind, apperr.KindValidation, err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Err == nil {
		t.Fatalf("expected the parse failure wrapped, got %v", err)
	}
}

func TestUpdateInstallDateOnlyWhenSold(t *testing.T) {
	store := leadstest.NewStore()
	svc := newTestService(store, &leadstest.SyncRecorder{})
	actor := pipeline.UIActor(uuid.New())
	install := transport.OptionalDate{Value: day(2026, time.May, 1), Set: true}

	open := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusLead})
	_, err := svc.Update(context.Background(), open.ID, open.CompanyID,
		transport.UpdateLeadRequest{InstallDate: install}, actor)
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.Kind != domain.ErrKindInstallNotAllowed {
		t.Fatalf("expected install not allowed, got %v", err)
	}

	sold := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusSold})
	tentative := true
	resp, err := svc.Update(context.Background(), sold.ID, sold.CompanyID,
		transport.UpdateLeadRequest{InstallDate: install, InstallTentative: &tentative}, actor)
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.InstallDate == nil || *resp.InstallDate != "2026-05-01" || !resp.InstallTentative {
		t.Fatalf("unexpected install fields %+v", resp)
	}

	resp, err = svc.Update(context.Background(), sold.ID, sold.CompanyID,
		transport.UpdateLeadRequest{InstallDate: transport.OptionalDate{Set: true}}, actor)
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.InstallDate != nil || resp.InstallTentative {
		t.Fatal("expected clearing the install date to clear tentative")
	}
}

func TestUpdateWithoutChangesDispatchesNothing(t *testing.T) {
	store := leadstest.NewStore()
	rec := &leadstest.SyncRecorder{}
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), City: "Austin", Status: domain.StatusLead})

	_, err := newTestService(store, rec).Update(context.Background(), lead.ID, lead.CompanyID,
		transport.UpdateLeadRequest{City: str("Austin")}, pipeline.UIActor(uuid.New()))
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if len(rec.Notifications()) != 0 {
		t.Fatalf("expected no sync for an unchanged lead, got %+v", rec.Notifications())
	}
}

func TestTransitionParsesAppointmentDate(t *testing.T) {
	store := leadstest.NewStore()
	lead := store.Seed(domain.Lead{CompanyID: uuid.New(), Status: domain.StatusLead})
	svc := newTestService(store, &leadstest.SyncRecorder{})

	resp, err := svc.Transition(context.Background(), lead.ID, lead.CompanyID, transport.TransitionRequest{
		To:              "APPOINTMENT_SET",
		AppointmentDate: str("2026-03-03"),
	}, pipeline.UIActor(uuid.New()))
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if resp.Status != string(domain.StatusAppointmentSet) {
		t.Fatalf("expected APPOINTMENT_SET, got %s", resp.Status)
	}

	history, err := svc.History(context.Background(), lead.ID, lead.CompanyID)
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if len(history.Items) != 1 || history.Items[0].ToStatus != string(domain.StatusAppointmentSet) {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestHistoryUnknownLead(t *testing.T) {
	store := leadstest.NewStore()
	_, err := newTestService(store, &leadstest.SyncRecorder{}).History(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf(fmtExpectedKind, apperr.KindNotFound, err)
	}
}
