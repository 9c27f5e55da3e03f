package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "ALREADY_EXISTS"
	ErrCodeInvalid    = "INVALID_INPUT"
	ErrCodeState      = "INVALID_STATE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeTokenExpired   = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid   = "INVALID_TOKEN"
	ErrCodeTokenRevoked   = "TOKEN_REVOKED"
	ErrCodeTenantRequired = "TENANT_REQUIRED"
)

// Billing error codes
const (
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	ErrCodePlanRequired        = "PLAN_REQUIRED"
	ErrCodeInvalidSignature    = "INVALID_SIGNATURE"
	ErrCodeInvalidPayload      = "INVALID_PAYLOAD"
	ErrCodeProviderDisabled    = "PROVIDER_NOT_CONFIGURED"
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,
	ErrCodeInvalid:    http.StatusBadRequest,
	ErrCodeState:      http.StatusUnprocessableEntity,

	ErrCodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeForbidden:      http.StatusForbidden,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	ErrCodeTenantRequired: http.StatusUnauthorized,

	ErrCodeQuotaExceeded:       http.StatusForbidden,
	ErrCodeFeatureNotAvailable: http.StatusForbidden,
	ErrCodePlanRequired:        http.StatusForbidden,
	ErrCodeInvalidSignature:    http.StatusUnauthorized,
	ErrCodeInvalidPayload:      http.StatusBadRequest,
	ErrCodeProviderDisabled:    http.StatusNotFound,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code.
// Domain validation codes (INVALID_*) map to 400; anything else unknown to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if len(code) > len("INVALID_") && code[:len("INVALID_")] == "INVALID_" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
