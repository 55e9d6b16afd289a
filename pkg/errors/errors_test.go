package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "patient not found"},
			expected: "NOT_FOUND: patient not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Patient"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Patient", "abc"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"conflict", Conflict("dup"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", cause), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Postal lookup"), CodeUnavailable, http.StatusServiceUnavailable},
		{"bad gateway", BadGateway("Postal lookup", cause), CodeUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Patient", "12345")
	if err.Details["id"] != "12345" || err.Details["resource"] != "Patient" {
		t.Errorf("unexpected details: %v", err.Details)
	}
	if err.Message != "Patient not found" {
		t.Errorf("unexpected message: %s", err.Message)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should reach the original error")
	}
}

func TestAppError_ZeroStatusDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: CodeInternal, Message: "x"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.StatusCode())
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("Patient")
	wrapped := fmt.Errorf("transaction failed: %w", Conflict("duplicate"))

	if !IsAppError(appErr) {
		t.Error("IsAppError() should return true for AppError")
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError() should see through wrapping")
	}
	if IsAppError(errors.New("regular error")) {
		t.Error("IsAppError() should return false for regular error")
	}
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("duplicate")
	if got := AsAppError(fmt.Errorf("ctx: %w", conflict)); got != conflict {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	regularErr := errors.New("regular error")
	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	jsonStr := string(NotFoundWithID("Patient", "12345").ToJSON())
	if !strings.Contains(jsonStr, "NOT_FOUND") {
		t.Errorf("ToJSON() should contain error code, got %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"id":"12345"`) {
		t.Errorf("ToJSON() should contain details, got %s", jsonStr)
	}
}
