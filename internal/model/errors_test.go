package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_ErrorFormat(t *testing.T) {
	err := NewSlotTakenError("2026-01-20", "10:00")
	got := err.Error()
	if !strings.HasPrefix(got, "[SLOT_TAKEN]") {
		t.Errorf("Error() = %q, want prefix %q", got, "[SLOT_TAKEN]")
	}
	if !strings.Contains(got, "2026-01-20 10:00") {
		t.Errorf("Error() = %q, should contain the slot", got)
	}
}

func TestAPIError_UnwrapsThroughErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("booking failed: %w", NewForbiddenError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError")
	}
	if apiErr.Code != ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeForbidden)
	}
}

func TestConstructors_Categories(t *testing.T) {
	tests := []struct {
		err      *APIError
		code     string
		category string
	}{
		{NewInvalidInputError("name"), ErrCodeInvalidInput, "validation"},
		{NewForbiddenError(), ErrCodeForbidden, "auth"},
		{NewMasterNotFoundError("m-1"), ErrCodeMasterNotFound, "booking"},
		{NewSlotTakenError("2026-01-20", "10:00"), ErrCodeSlotTaken, "booking"},
		{NewOwnerConflictError(), ErrCodeOwnerConflict, "system"},
		{NewInternalError(), ErrCodeInternal, "system"},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.code {
			t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
		}
		if tt.err.Category != tt.category {
			t.Errorf("%s: Category = %q, want %q", tt.code, tt.err.Category, tt.category)
		}
		if tt.err.Action == "" {
			t.Errorf("%s: Action should not be empty", tt.code)
		}
	}
}
