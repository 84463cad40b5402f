package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
		{KindUnprocessable, http.StatusUnprocessableEntity},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := NotFound("company not found")
	wrapped := fmt.Errorf("resolve company: %w", base)

	if !Is(wrapped, KindNotFound) {
		t.Fatalf("expected wrapped error to report KindNotFound, got %d", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to report KindUnknown")
	}
}

func TestErrorIncludesOp(t *testing.T) {
	err := Validation("bad input").WithOp("leads.Create")
	if err.Error() != "leads.Create: bad input" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
