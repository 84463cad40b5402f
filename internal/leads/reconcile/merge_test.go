package reconcile

import (
	"testing"

	"leadflow_backend/internal/leads/domain"
)

func TestMergeWriteOnceProperty(t *testing.T) {
	stored := []string{"", "Google"}
	incoming := []*string{nil, str(""), str("Google"), str("Facebook")}

	for _, s := range stored {
		for _, in := range incoming {
			existing := domain.Lead{ReferralSource: s, LeadSource: s}
			plan := Merge(&existing, domain.IncomingContact{ReferralSource: in, LeadSource: in}, fixedNow)
			after := domain.Apply(existing, plan.Assignments)

			if s != "" && (after.ReferralSource != s || after.LeadSource != s) {
				t.Fatalf("stored %q, incoming %v: expected write-once fields unchanged, got %q/%q", s, in, after.ReferralSource, after.LeadSource)
			}
			if s == "" && in != nil && *in != "" && after.ReferralSource != *in {
				t.Fatalf("expected empty referral source to take %q, got %q", *in, after.ReferralSource)
			}
		}
	}
}

func TestMergeSkipsWriteOnceAssignmentsWhenStoredValuePresent(t *testing.T) {
	existing := domain.Lead{ReferralSource: "Google"}
	plan := Merge(&existing, domain.IncomingContact{ReferralSource: str("Facebook")}, fixedNow)

	for _, a := range plan.Assignments {
		if a.Field == domain.FieldReferralSource {
			t.Fatal("expected no referral source assignment")
		}
	}
}

func TestMergeAllEmptyContactOnlyStampsBookkeeping(t *testing.T) {
	existing := domain.Lead{Status: domain.StatusSold}
	plan := Merge(&existing, domain.IncomingContact{}, fixedNow)

	if plan.Create != nil {
		t.Fatal("expected update plan")
	}
	if changed := domain.Changed(existing, plan.Assignments); len(changed) != 0 {
		t.Fatalf("expected no changes on blank lead, got %v", changed)
	}
	after := domain.Apply(existing, plan.Assignments)
	if after.SyncSource != domain.SyncSourceExternal || !after.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected bookkeeping stamped, got %s/%v", after.SyncSource, after.UpdatedAt)
	}
	if after.Status != domain.StatusSold {
		t.Fatal("expected status untouched by merge")
	}
}

func TestMergeCreatePlan(t *testing.T) {
	plan := Merge(nil, domain.IncomingContact{Name: "Jane", Zip: str("78701")}, fixedNow)
	if plan.Create == nil || len(plan.Assignments) != 0 {
		t.Fatalf("expected create plan, got %+v", plan)
	}
	if plan.Create.Status != domain.StatusLead || plan.Create.Zip != "78701" || plan.Create.ExternalContactID != nil {
		t.Fatalf("unexpected create plan %+v", plan.Create)
	}
}
