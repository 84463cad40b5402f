package webhook

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return out
}

func TestNormalizeFlatPayload(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{
		"locationId": "loc1",
		"id": "ext-1",
		"firstName": "Jane",
		"lastName": "Doe",
		"phone": "+15551234567",
		"contact.jf_referral_source": "Google"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ScopeKey != "loc1" {
		t.Fatalf("expected scope loc1, got %q", got.ScopeKey)
	}
	in := got.Contact
	if in.ExternalContactID == nil || *in.ExternalContactID != "ext-1" {
		t.Fatalf("expected external id ext-1, got %v", in.ExternalContactID)
	}
	if in.Name != "Jane Doe" || in.Phone != "5551234567" {
		t.Fatalf("unexpected name/phone %q/%q", in.Name, in.Phone)
	}
	if in.ReferralSource == nil || *in.ReferralSource != "Google" {
		t.Fatalf("expected referral Google, got %v", in.ReferralSource)
	}
	if in.City != nil || in.Notes != nil {
		t.Fatal("expected absent optional fields to stay nil")
	}
}

func TestNormalizeNestedAndCaseVariants(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{
		"location": {"id": "loc2"},
		"contact": {"id": "c-9", "email": "  Jane@Example.COM ", "jf_referral_source": "Yelp"},
		"customData": {"postalCode": "78701"},
		"full_name": "  Jane   Q  Doe "
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := got.Contact
	if got.ScopeKey != "loc2" || *in.ExternalContactID != "c-9" {
		t.Fatalf("unexpected scope/id %q/%v", got.ScopeKey, in.ExternalContactID)
	}
	if in.Email != "jane@example.com" {
		t.Fatalf("expected lower-cased email, got %q", in.Email)
	}
	if in.Zip == nil || *in.Zip != "78701" {
		t.Fatalf("expected zip from nested customData, got %v", in.Zip)
	}
	if in.Name != "Jane Q Doe" {
		t.Fatalf("expected collapsed full name, got %q", in.Name)
	}
	if *in.ReferralSource != "Yelp" {
		t.Fatalf("expected nested referral source, got %q", *in.ReferralSource)
	}
}

func TestNormalizeExplicitContactIDWinsOverGenericID(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{"locationId": "loc1", "id": "generic", "contact_id": "explicit"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Contact.ExternalContactID != "explicit" {
		t.Fatalf("expected explicit contact id, got %q", *got.Contact.ExternalContactID)
	}
}

func TestNormalizeStringifiesScalars(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{"locationId": 12345678901234567890, "zip": 78701, "phone": "  "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ScopeKey != "12345678901234567890" {
		t.Fatalf("expected large number kept intact, got %q", got.ScopeKey)
	}
	if got.Contact.Zip == nil || *got.Contact.Zip != "78701" {
		t.Fatalf("expected numeric zip stringified, got %v", got.Contact.Zip)
	}
	if got.Contact.Phone != "" {
		t.Fatalf("expected blank phone absent, got %q", got.Contact.Phone)
	}
}

func TestNormalizeMissingScope(t *testing.T) {
	n := NewNormalizer(nil, "US")
	_, err := n.Normalize(decode(t, `{"firstName": "Jane", "locationId": "   "}`))
	if !errors.Is(err, ErrMissingTenantScope) {
		t.Fatalf("expected ErrMissingTenantScope, got %v", err)
	}
}

func TestNormalizeEmptyContactIsNotAnError(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{"locationId": "loc1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Contact.Name != "" || got.Contact.ExternalContactID != nil {
		t.Fatalf("expected empty contact, got %+v", got.Contact)
	}
}

func TestMergeAliasesAppendsPerField(t *testing.T) {
	table, err := mergeAliases(DefaultAliases(), []byte("phone: [cell]\nscope: [account_id]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := NewNormalizer(table, "US")
	got, err := n.Normalize(decode(t, `{"accountId": "acc-1", "cell": "(555) 123-4567"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ScopeKey != "acc-1" || got.Contact.Phone != "5551234567" {
		t.Fatalf("expected custom aliases applied, got %q/%q", got.ScopeKey, got.Contact.Phone)
	}
}

func TestMergeAliasesRejectsUnknownField(t *testing.T) {
	if _, err := mergeAliases(DefaultAliases(), []byte("favouriteColor: [colour]\n")); err == nil {
		t.Fatal("expected unknown field rejected")
	}
}

func TestNormalizeKeepsAngleBracketsInCRMValues(t *testing.T) {
	n := NewNormalizer(nil, "US")
	got, err := n.Normalize(decode(t, `{
		"locationId": "x",
		"full_name": "Tom & <Jerry>",
		"address1": "12 <Unit B>  Main St",
		"notes": "budget < 5k and roof > 20 years\nback door <locked>"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := got.Contact
	if in.Name != "Tom & <Jerry>" {
		t.Fatalf("expected name kept verbatim, got %q", in.Name)
	}
	if in.Address == nil || *in.Address != "12 <Unit B> Main St" {
		t.Fatalf("expected address kept with collapsed spaces, got %v", in.Address)
	}
	if in.Notes == nil || *in.Notes != "budget < 5k and roof > 20 years\nback door <locked>" {
		t.Fatalf("expected notes kept verbatim, got %v", in.Notes)
	}
}
