package crmsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/logger"
)

const fmtUnexpectedErr = "unexpected error: %v"

type testConfig struct {
	baseURL string
	token   string
}

func (c testConfig) GetCRMBaseURL() string        { return c.baseURL }
func (c testConfig) GetCRMAPIToken() string       { return c.token }
func (c testConfig) GetCRMTimeout() time.Duration { return time.Second }
func (c testConfig) IsCRMSyncEnabled() bool        { return c.baseURL != "" && c.token != "" }

type recordedRequest struct {
	method, path, auth string
	contact            Contact
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c Contact
		_ = json.NewDecoder(r.Body).Decode(&c)
		seen = append(seen, recordedRequest{r.Method, r.URL.Path, r.Header.Get("Authorization"), c})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestNewClientRequiresEndpointAndToken(t *testing.T) {
	if NewClient(testConfig{baseURL: "http://crm"}, logger.Discard()) != nil {
		t.Fatal("expected nil client without token")
	}
	if NewClient(testConfig{token: "t"}, logger.Discard()) != nil {
		t.Fatal("expected nil client without base url")
	}
}

func TestUpsertContactCreatesWithoutID(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusCreated, `{"contact":{"id":"crm-42"}}`)
	client := NewClient(testConfig{baseURL: srv.URL + "/", token: "tok"}, logger.Discard())

	id, err := client.UpsertContact(context.Background(), Contact{Name: "Jane Doe"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if id != "crm-42" {
		t.Fatalf("expected crm-42, got %q", id)
	}

	got := (*seen)[0]
	if got.method != http.MethodPost || got.path != "/contacts" || got.auth != "Bearer tok" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.contact.Name != "Jane Doe" {
		t.Fatalf("unexpected body %+v", got.contact)
	}
}

func TestUpsertContactUpdatesByID(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(testConfig{baseURL: srv.URL, token: "tok"}, logger.Discard())

	id, err := client.UpsertContact(context.Background(), Contact{ID: "ext-1", Name: "Jane"})
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if id != "ext-1" {
		t.Fatalf("expected existing id kept, got %q", id)
	}
	if got := (*seen)[0]; got.method != http.MethodPut || got.path != "/contacts/ext-1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestUpsertContactClassifiesFailures(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnprocessableEntity, `{"message":"email invalid"}`)
	client := NewClient(testConfig{baseURL: srv.URL, token: "tok"}, logger.Discard())

	_, err := client.UpsertContact(context.Background(), Contact{Name: "Jane"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	srv, _ = newTestServer(t, http.StatusBadGateway, `upstream down`)
	client = NewClient(testConfig{baseURL: srv.URL, token: "tok"}, logger.Discard())

	_, err = client.UpsertContact(context.Background(), Contact{Name: "Jane"})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestUpsertContactOnNilClientIsNoop(t *testing.T) {
	var client *Client
	id, err := client.UpsertContact(context.Background(), Contact{Name: "Jane"})
	if err != nil || id != "" {
		t.Fatalf("expected no-op, got %q, %v", id, err)
	}
}

func TestContactFromLead(t *testing.T) {
	ext := "ext-9"
	price := int64(1234550)
	appt := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	lead := domain.Lead{
		ExternalContactID:  &ext,
		Name:               "Jane Doe",
		Phone:              "5551234567",
		Zip:                "78701",
		ReferralSource:     "Google",
		Status:             domain.StatusAppointmentSet,
		AppointmentDate:    &appt,
		AppointmentTime:    "10:00 AM",
		ContractPriceCents: &price,
	}

	c := ContactFromLead(lead, "US")
	if c.ID != "ext-9" || c.PostalCode != "78701" {
		t.Fatalf("unexpected contact %+v", c)
	}
	if c.Tags[0] != "pipeline:appointment_set" {
		t.Fatalf("unexpected tags %v", c.Tags)
	}

	fields := make(map[string]string)
	for _, f := range c.CustomFields {
		fields[f.Key] = f.Value
	}
	if fields["appointment_date"] != "2025-06-02" || fields["contract_price"] != "12345.50" {
		t.Fatalf("unexpected custom fields %v", fields)
	}
	if fields["referral_source"] != "Google" || fields["pipeline_status"] != "APPOINTMENT_SET" {
		t.Fatalf("unexpected custom fields %v", fields)
	}
	if _, ok := fields["install_date"]; ok {
		t.Fatal("expected absent install date omitted")
	}
}
