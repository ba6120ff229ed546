package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestDomainError_ErrorFormat tests the rendered message with and without a wrapped cause
func TestDomainError_ErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "without_cause",
			err:      NewDomainError(ErrorCodeEmptyTimeWindow, "payout has no enriched transactions"),
			expected: "EMPTY_TIME_WINDOW: payout has no enriched transactions",
		},
		{
			name:     "with_cause",
			err:      WrapError(ErrorCodeGatewayUnavailable, "payout retrieval failed", errors.New("connection refused")),
			expected: "GATEWAY_UNAVAILABLE: payout retrieval failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestDomainError_Unwrap tests errors.Is through a wrapped domain error
func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := WrapError(ErrorCodeEnrichmentUnavailable, "transaction info call failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}

	wrapped := fmt.Errorf("reconcile payout: %w", err)
	if !IsDomainError(wrapped, ErrorCodeEnrichmentUnavailable) {
		t.Errorf("IsDomainError through fmt.Errorf wrap = false, want true")
	}
	if GetErrorCode(wrapped) != ErrorCodeEnrichmentUnavailable {
		t.Errorf("GetErrorCode() = %q, want %q", GetErrorCode(wrapped), ErrorCodeEnrichmentUnavailable)
	}
}

// TestDomainError_WithDetail tests detail accumulation
func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorCodeInvalidSchoolReference, "merchant has no gateway key").
		WithDetail("merchant_id", "m-1").
		WithDetail("school_id", "s-1")

	if len(err.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(err.Details))
	}
	if err.Details["merchant_id"] != "m-1" {
		t.Errorf("merchant_id detail = %v, want m-1", err.Details["merchant_id"])
	}

	var nilDetails DomainError
	nilDetails.WithDetail("k", "v")
	if nilDetails.Details["k"] != "v" {
		t.Errorf("WithDetail on zero value did not initialise map")
	}
}

// TestIsUnavailableError tests classification of collaborator failures
func TestIsUnavailableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"gateway", NewDomainError(ErrorCodeGatewayUnavailable, "x"), true},
		{"enrichment", NewDomainError(ErrorCodeEnrichmentUnavailable, "x"), true},
		{"empty_window", NewDomainError(ErrorCodeEmptyTimeWindow, "x"), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailableError(tt.err); got != tt.expected {
				t.Errorf("IsUnavailableError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestErrorCodes_Unique tests that every code renders a distinct string
func TestErrorCodes_Unique(t *testing.T) {
	codes := []ErrorCode{
		ErrorCodeGatewayUnavailable,
		ErrorCodeEnrichmentUnavailable,
		ErrorCodeEmptyTimeWindow,
		ErrorCodeInvalidSchoolReference,
		ErrorCodeValidationFailed,
		ErrorCodeInternalError,
		ErrorCodeDatabaseError,
		ErrorCodeNotFound,
	}

	seen := make(map[string]bool)
	for _, c := range codes {
		s := string(c)
		if seen[s] {
			t.Errorf("duplicate error code %q", s)
		}
		if strings.ToUpper(s) != s {
			t.Errorf("error code %q is not upper case", s)
		}
		seen[s] = true
	}
}
