package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadflow_backend/internal/companies"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/reconcile"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	webhookPath         = "/api/v1/webhook/crm"
	fmtUnexpectedStatus = "expected status %d, got %d: %s"
	janePayload         = `{"locationId":"loc1","id":"ext-1","firstName":"Jane","lastName":"Doe","phone":"+15551234567","contact.jf_referral_source":"%s"}`
)

type fakeCompanies struct {
	byScope map[string]companies.Company
	err     error
}

func (f fakeCompanies) ResolveByScope(_ context.Context, scopeKey string) (companies.Company, error) {
	if f.err != nil {
		return companies.Company{}, f.err
	}
	c, ok := f.byScope[scopeKey]
	if !ok {
		return companies.Company{}, companies.ErrNotFound
	}
	return c, nil
}

type webhookEnv struct {
	router  *gin.Engine
	store   *leadstest.Store
	sync    *leadstest.SyncRecorder
	company companies.Company
}

func newWebhookEnv(t *testing.T, secret string, resolver CompanyResolver) webhookEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := leadstest.NewStore()
	rec := &leadstest.SyncRecorder{}
	company := companies.Company{ID: uuid.New(), Name: "Acme Roofing", ScopeKey: "loc1"}
	if resolver == nil {
		resolver = fakeCompanies{byScope: map[string]companies.Company{"loc1": company}}
	}

	reconciler := reconcile.New(store, rec, nil, logger.Discard())
	svc := NewService(NewNormalizer(nil, "US"), resolver, reconciler, nil, logger.Discard())

	router := gin.New()
	group := router.Group("/api/v1/webhook", SharedSecretMiddleware(secret))
	group.POST("/crm", NewHandler(svc).HandleCRMContact)

	return webhookEnv{router: router, store: store, sync: rec, company: company}
}

func (e webhookEnv) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeContactResponse(t *testing.T, w *httptest.ResponseRecorder) ContactResponse {
	t.Helper()
	var resp ContactResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func janeBody(referral string) string {
	return strings.Replace(janePayload, "%s", referral, 1)
}

func TestWebhookCreatesThenUpdatesLead(t *testing.T) {
	env := newWebhookEnv(t, "", nil)

	w := env.post(janeBody("Google"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}
	first := decodeContactResponse(t, w)
	if !first.Success || first.Message != msgLeadCreated {
		t.Fatalf("unexpected response %+v", first)
	}

	lead, ok := env.store.Get(first.LeadID)
	if !ok {
		t.Fatal("expected lead persisted")
	}
	if lead.CompanyID != env.company.ID || lead.Phone != "5551234567" || lead.Name != "Jane Doe" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.ReferralSource != "Google" || lead.Status != domain.StatusLead {
		t.Fatalf("unexpected referral/status %q/%s", lead.ReferralSource, lead.Status)
	}

	w = env.post(janeBody("Facebook"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}
	second := decodeContactResponse(t, w)
	if second.Message != msgLeadUpdated || second.LeadID != first.LeadID {
		t.Fatalf("expected update of the same lead, got %+v", second)
	}

	lead, _ = env.store.Get(first.LeadID)
	if lead.ReferralSource != "Google" {
		t.Fatalf("expected referral source kept, got %q", lead.ReferralSource)
	}
	if env.store.Count() != 1 {
		t.Fatalf("expected one lead, got %d", env.store.Count())
	}
}

func TestWebhookMissingScopeIsBadRequest(t *testing.T) {
	env := newWebhookEnv(t, "", nil)

	w := env.post(`{"firstName":"Jane","phone":"5551234567"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf(fmtUnexpectedStatus, http.StatusBadRequest, w.Code, w.Body.String())
	}
	if env.store.Count() != 0 {
		t.Fatal("expected nothing written")
	}
}

func TestWebhookNonObjectBodyIsBadRequest(t *testing.T) {
	env := newWebhookEnv(t, "", nil)

	for _, body := range []string{`[1,2]`, `"text"`, `null`, `{`} {
		w := env.post(body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: "+fmtUnexpectedStatus, body, http.StatusBadRequest, w.Code, w.Body.String())
		}
	}
}

func TestWebhookUnknownCompanyIsNotFound(t *testing.T) {
	env := newWebhookEnv(t, "", nil)

	w := env.post(`{"locationId":"nope","firstName":"Jane"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf(fmtUnexpectedStatus, http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestWebhookStoreFailureIsServerError(t *testing.T) {
	env := newWebhookEnv(t, "", nil)
	env.store.FailCreate = errors.New("connection reset")

	w := env.post(janeBody("Google"), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf(fmtUnexpectedStatus, http.StatusInternalServerError, w.Code, w.Body.String())
	}

	var resp ServerErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("unexpected error body %+v", resp)
	}
	if len(env.sync.Notifications()) != 0 {
		t.Fatal("expected no sync for a failed delivery")
	}
}

func TestWebhookCompanyLookupFailureIsServerError(t *testing.T) {
	env := newWebhookEnv(t, "", fakeCompanies{err: errors.New("db down")})

	w := env.post(janeBody("Google"), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf(fmtUnexpectedStatus, http.StatusInternalServerError, w.Code, w.Body.String())
	}
}

func TestWebhookSharedSecret(t *testing.T) {
	env := newWebhookEnv(t, "s3cret", nil)

	if w := env.post(janeBody("Google"), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf(fmtUnexpectedStatus, http.StatusUnauthorized, w.Code, w.Body.String())
	}
	if w := env.post(janeBody("Google"), map[string]string{SecretHeader: "wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf(fmtUnexpectedStatus, http.StatusUnauthorized, w.Code, w.Body.String())
	}
	if w := env.post(janeBody("Google"), map[string]string{SecretHeader: "s3cret"}); w.Code != http.StatusOK {
		t.Fatalf(fmtUnexpectedStatus, http.StatusOK, w.Code, w.Body.String())
	}
}
