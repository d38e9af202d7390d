// Package errors provides custom error types for the EkkoScope API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account temporarily locked due to repeated failed logins", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAdminRequired      = &AppError{Code: "ADMIN_REQUIRED", Message: "Administrator access required", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Business errors.
var (
	ErrBusinessNotFound = &AppError{Code: "BUSINESS_NOT_FOUND", Message: "Business not found", StatusCode: http.StatusNotFound}
	ErrTenantNotFound   = &AppError{Code: "TENANT_NOT_FOUND", Message: "Tenant not found", StatusCode: http.StatusNotFound}
)

// Audit errors.
var (
	ErrAuditNotFound      = &AppError{Code: "AUDIT_NOT_FOUND", Message: "Audit not found", StatusCode: http.StatusNotFound}
	ErrAuditNotReady      = &AppError{Code: "AUDIT_NOT_READY", Message: "Audit has not completed yet", StatusCode: http.StatusConflict}
	ErrReportNotGenerated = &AppError{Code: "REPORT_NOT_GENERATED", Message: "No report file exists for this audit", StatusCode: http.StatusNotFound}
	ErrNoProviders        = &AppError{Code: "NO_PROVIDERS", Message: "No AI providers are configured", StatusCode: http.StatusServiceUnavailable}
	ErrMissingAPIKey      = &AppError{Code: "MISSING_API_KEY", Message: "OPENAI_API_KEY is not configured. Add an OpenAI API key to run GEO analysis", StatusCode: http.StatusServiceUnavailable}
)

// Billing errors.
var (
	ErrBillingNotConfigured = &AppError{Code: "BILLING_NOT_CONFIGURED", Message: "Stripe billing is not configured", StatusCode: http.StatusServiceUnavailable}
	ErrEntitlementRequired  = &AppError{Code: "ENTITLEMENT_REQUIRED", Message: "A paid snapshot credit or active subscription is required", StatusCode: http.StatusPaymentRequired}
	ErrPurchaseNotFound     = &AppError{Code: "PURCHASE_NOT_FOUND", Message: "Purchase not found", StatusCode: http.StatusNotFound}
	ErrInvalidWebhook       = &AppError{Code: "INVALID_WEBHOOK", Message: "Webhook signature verification failed", StatusCode: http.StatusBadRequest}
)

// Sherlock errors.
var (
	ErrSherlockDisabled = &AppError{Code: "SHERLOCK_DISABLED", Message: "Sherlock is not configured (missing vector index credentials)", StatusCode: http.StatusServiceUnavailable}
	ErrNoClientContent  = &AppError{Code: "NO_CLIENT_CONTENT", Message: "No client content ingested. Ingest knowledge first", StatusCode: http.StatusConflict}
	ErrMissionNotFound  = &AppError{Code: "MISSION_NOT_FOUND", Message: "Mission not found", StatusCode: http.StatusNotFound}
)
