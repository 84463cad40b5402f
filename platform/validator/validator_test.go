package validator

import (
	"errors"
	"testing"
)

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	PageSize int    `form:"pageSize" validate:"omitempty,max=100"`
}

func TestFieldErrorsUseWireNames(t *testing.T) {
	err := New().Struct(sampleRequest{Email: "nope", PageSize: 500})
	if err == nil {
		t.Fatal("expected validation error")
	}

	got := FieldErrors(err)
	want := map[string]string{"name": "required", "email": "email", "pageSize": "max=100"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for field, rule := range want {
		if got[field] != rule {
			t.Fatalf("field %s: expected %q, got %q", field, rule, got[field])
		}
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if FieldErrors(errors.New("boom")) != nil {
		t.Fatal("expected nil for non-validation errors")
	}
	if err := New().Struct(sampleRequest{Name: "Jane"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
