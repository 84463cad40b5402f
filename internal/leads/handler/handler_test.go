package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/management"
	"leadflow_backend/internal/leads/pipeline"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const fmtUnexpectedStatus = "expected status %d, got %d: %s"

type testEnv struct {
	router    *gin.Engine
	store     *leadstest.Store
	companyID uuid.UUID
}

func newTestEnv(withTenant bool) testEnv {
	gin.SetMode(gin.TestMode)

	store := leadstest.NewStore()
	rec := &leadstest.SyncRecorder{}
	transitions := pipeline.New(store, rec, nil, logger.Discard())
	svc := management.New(store, transitions, rec, nil, "US")

	companyID := uuid.New()
	router := gin.New()
	group := router.Group("/api/v1/leads", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, []string{"user"})
		if withTenant {
			c.Set(httpkit.ContextTenantIDKey, companyID)
		}
		c.Next()
	})
	New(svc, validator.New()).RegisterRoutes(group)

	return testEnv{router: router, store: store, companyID: companyID}
}

func (e testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateLeadReturnsCreated(t *testing.T) {
	env := newTestEnv(true)

	w := env.do(http.MethodPost, "/api/v1/leads", map[string]any{"name": "Jane Doe", "phone": "555-123-4567"})
	if w.Code != http.StatusCreated {
		t.Fatalf(fmtUnexpectedStatus, http.StatusCreated, w.Code, w.Body.String())
	}

	var resp transport.LeadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CompanyID != env.companyID || resp.Phone != "5551234567" {
		t.Fatalf("unexpected lead %+v", resp)
	}
}

func TestCreateLeadValidationFailure(t *testing.T) {
	env := newTestEnv(true)

	w := env.do(http.MethodPost, "/api/v1/leads", map[string]any{"name": "Jane", "email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf(fmtUnexpectedStatus, http.StatusBadRequest, w.Code, w.Body.String())
	}

	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != msgValidationFailed || resp.Details["email"] != "email" {
		t.Fatalf("expected email rule reported by wire name, got %+v", resp)
	}
}

func TestRequestsWithoutTenantAreForbidden(t *testing.T) {
	env := newTestEnv(false)

	w := env.do(http.MethodGet, "/api/v1/leads", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf(fmtUnexpectedStatus, http.StatusForbidden, w.Code, w.Body.String())
	}
}

func TestGetUnknownLeadIsNotFound(t *testing.T) {
	env := newTestEnv(true)

	w := env.do(http.MethodGet, "/api/v1/leads/"+uuid.New().String(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf(fmtUnexpectedStatus, http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestTransitionMissingAppointmentIsUnprocessable(t *testing.T) {
	env := newTestEnv(true)
	lead := env.store.Seed(domain.Lead{CompanyID: env.companyID, Status: domain.StatusLead})

	w := env.do(http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/transition", map[string]any{"to": "APPOINTMENT_SET"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf(fmtUnexpectedStatus, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}

	var resp transport.TransitionErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != string(domain.ErrKindMissingAppointment) || len(resp.Missing) != 2 {
		t.Fatalf("unexpected error body %+v", resp)
	}
}

func TestIllegalTransitionIsConflict(t *testing.T) {
	env := newTestEnv(true)
	lead := env.store.Seed(domain.Lead{CompanyID: env.companyID, Status: domain.StatusComplete})

	w := env.do(http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/transition", map[string]any{"to": "LEAD"})
	if w.Code != http.StatusConflict {
		t.Fatalf(fmtUnexpectedStatus, http.StatusConflict, w.Code, w.Body.String())
	}
}

func TestUpdateClearsContractPriceWithNull(t *testing.T) {
	env := newTestEnv(true)
	price := int64(1500000)
	lead := env.store.Seed(domain.Lead{CompanyID: env.companyID, Status: domain.StatusSold, ContractPriceCents: &price})

	w := env.do(http.MethodPut, "/api/v1/leads/"+lead.ID.String(), map[string]any{"contractPriceCents": nil})
	if w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}

	stored, _ := env.store.Get(lead.ID)
	if stored.ContractPriceCents != nil {
		t.Fatalf("expected contract price cleared, got %d", *stored.ContractPriceCents)
	}
}

func TestHistoryListsTransitions(t *testing.T) {
	env := newTestEnv(true)
	lead := env.store.Seed(domain.Lead{CompanyID: env.companyID, Status: domain.StatusAppointmentSet})

	w := env.do(http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/transition", map[string]any{"to": "SOLD"})
	if w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/v1/leads/"+lead.ID.String()+"/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}
	var resp transport.StatusHistoryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ToStatus != "SOLD" || resp.Items[0].Source != "UI" {
		t.Fatalf("unexpected history %+v", resp.Items)
	}
}
