package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeDraftNotFound, http.StatusNotFound},
		{CodeDraftInactive, http.StatusUnprocessableEntity},
		{CodeDraftEmpty, http.StatusUnprocessableEntity},
		{CodeInsufficientStock, http.StatusConflict},
		{CodeBranchNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
	}
	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable {
			t.Fatalf("code %s must not be retryable", tc.code)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "fetch events")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	wrapped := fmt.Errorf("cycle failed: %w", err)
	if typed := As(wrapped); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected typed error through chain, got %v", wrapped)
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", New(CodeInsufficientStock, "p1 short"))
	if !HasCode(err, CodeInsufficientStock) {
		t.Fatal("expected HasCode to match through wrapping")
	}
	if HasCode(err, CodeDraftEmpty) {
		t.Fatal("unexpected code match")
	}
	if HasCode(nil, CodeDraftEmpty) {
		t.Fatal("nil error must not match")
	}
}
