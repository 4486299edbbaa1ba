package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error carrying a client-facing message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrMalformedPayload() *AppError {
	return New("VAL_003", "Malformed payload", http.StatusBadRequest)
}

// ---- Authorization (AUTHZ) ----

func ErrForbidden() *AppError {
	return New("AUTHZ_001", "You do not have permission to perform this action", http.StatusForbidden)
}

func ErrPendingApproval() *AppError {
	return New("AUTHZ_002", "Account is pending approval", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrMissingToken() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountSuspended() *AppError {
	return New("AUTH_004", "Account is suspended", http.StatusForbidden)
}

func ErrAccountRejected() *AppError {
	return New("AUTH_005", "Account registration was rejected", http.StatusForbidden)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Credentials (CRED) ----

func ErrCredentialsMissing() *AppError {
	return New("CRED_001", "Merchant has no active payment configuration", http.StatusUnprocessableEntity)
}

func ErrCredentialsInvalid(err error) *AppError {
	return Wrap("CRED_002", "Merchant payment configuration is unusable", http.StatusUnprocessableEntity, err)
}

// ---- Gateway (GW) ----

func ErrGatewayFailure(err error) *AppError {
	return Wrap("GW_001", "Payment gateway request failed", http.StatusBadGateway, err)
}

func ErrGatewayTimeout(err error) *AppError {
	return Wrap("GW_002", "Payment gateway did not respond in time", http.StatusGatewayTimeout, err)
}

// ---- Integrity (INT) ----

func ErrInvalidSignature() *AppError {
	return New("INT_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrIntegrityFailure(err error) *AppError {
	return Wrap("INT_002", "Stored data failed integrity verification", http.StatusInternalServerError, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
