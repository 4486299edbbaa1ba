package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("AUTHZ_001", "Forbidden", http.StatusForbidden),
			expected: "[AUTHZ_001] Forbidden",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("VAL_001", "test", http.StatusBadRequest).Unwrap())
}

func TestErrorTaxonomy(t *testing.T) {
	inner := fmt.Errorf("boom")

	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Validation", Validation("itemId is required"), "VAL_001", 400},
		{"InvalidAmount", ErrInvalidAmount(), "VAL_002", 400},
		{"MalformedPayload", ErrMalformedPayload(), "VAL_003", 400},
		{"Forbidden", ErrForbidden(), "AUTHZ_001", 403},
		{"PendingApproval", ErrPendingApproval(), "AUTHZ_002", 403},
		{"MissingToken", ErrMissingToken(), "AUTH_001", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"Suspended", ErrAccountSuspended(), "AUTH_004", 403},
		{"Rejected", ErrAccountRejected(), "AUTH_005", 403},
		{"NotFound", ErrNotFound("Transaction"), "NF_001", 404},
		{"CredentialsMissing", ErrCredentialsMissing(), "CRED_001", 422},
		{"CredentialsInvalid", ErrCredentialsInvalid(inner), "CRED_002", 422},
		{"GatewayFailure", ErrGatewayFailure(inner), "GW_001", 502},
		{"GatewayTimeout", ErrGatewayTimeout(inner), "GW_002", 504},
		{"InvalidSignature", ErrInvalidSignature(), "INT_001", 401},
		{"IntegrityFailure", ErrIntegrityFailure(inner), "INT_002", 500},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"Database", ErrDatabaseError(inner), "SYS_001", 500},
		{"Encryption", ErrEncryptionFailure(inner), "SYS_003", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWrappedErrorsDoNotLeakIntoMessage(t *testing.T) {
	err := ErrGatewayFailure(fmt.Errorf(`{"error":"invalid api key sk_live_123"}`))
	assert.NotContains(t, err.Message, "sk_live_123")
	assert.Contains(t, err.Error(), "sk_live_123")
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Item")
	assert.Equal(t, "Item not found", err.Message)
}
