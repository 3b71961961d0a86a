package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_Required(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	vErr.required("date", "2024-01-10")
	if vErr.HasErrors() {
		t.Fatalf("expected no errors for populated field")
	}

	vErr.required("start", "")
	if got := vErr.FieldErrors["start"]; got != "start is required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSchedulingConflictError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("confirm: %w", &SchedulingConflictError{SessionID: 2, ConflictingSessionID: 1, Participant: "alice"})

	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected errors.Is to match ErrSchedulingConflict")
	}
	if errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("conflict must not match unrelated sentinels")
	}
	if !strings.Contains(err.Error(), "session 1") || !strings.Contains(err.Error(), "alice") {
		t.Fatalf("expected message to name the blocking session and user, got %q", err.Error())
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrDuplicateUsername, "duplicate_username"},
		{fmt.Errorf("wrapped: %w", ErrSessionNotFound), "session_not_found"},
		{&SchedulingConflictError{}, "scheduling_conflict"},
		{ErrInvalidTransition, "invalid_transition"},
		{ErrAvailabilitySlotNotFound, "availability_slot_not_found"},
		{&ValidationError{FieldErrors: map[string]string{"a": "b"}}, "validation"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
