package dto

import "net/http"

// Error codes returned by the API. Domain error codes map onto these
// via NormalizeErrorCode.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidTransition      = "ERR_INVALID_TRANSITION"
	ErrCodeInsufficientStock      = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInsufficientBalance    = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeCodeExpired            = "ERR_CODE_EXPIRED"
	ErrCodeInvalidCode            = "ERR_INVALID_CODE"
	ErrCodeDuplicatePendingPayout = "ERR_DUPLICATE_PENDING_PAYOUT"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// business rule violations -> 422
	ErrCodeInvalidTransition:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance:    http.StatusUnprocessableEntity,
	ErrCodeCodeExpired:            http.StatusUnprocessableEntity,
	ErrCodeInvalidCode:            http.StatusUnprocessableEntity,
	ErrCodeDuplicatePendingPayout: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting
// to 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping converts the bare domain error codes into the
// API's ERR_-prefixed form.
var domainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"INVALID_INPUT":            ErrCodeValidation,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"UNAUTHORIZED":             ErrCodeUnauthorized,
	"FORBIDDEN":                ErrCodeForbidden,
	"INVALID_TRANSITION":       ErrCodeInvalidTransition,
	"INSUFFICIENT_STOCK":       ErrCodeInsufficientStock,
	"INSUFFICIENT_BALANCE":     ErrCodeInsufficientBalance,
	"CODE_EXPIRED":             ErrCodeCodeExpired,
	"INVALID_CODE":             ErrCodeInvalidCode,
	"DUPLICATE_PENDING_PAYOUT": ErrCodeDuplicatePendingPayout,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown codes, pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
