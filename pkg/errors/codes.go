package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Short aliases used throughout the codebase.
const (
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeUnauthorized  = ErrCodeUnauthorized
	CodeForbidden     = ErrCodeForbidden
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeRateLimit     = ErrCodeTooManyRequests
	CodeTimeout       = ErrCodeTimeout
	CodeDatabaseError = ErrCodeDatabaseError
	CodeUnknown       = ErrorCode("UNKNOWN")
	CodeOK            = ErrorCode("OK")
)

// Engine Module Error Codes
const (
	ErrCodeInvalidInput           ErrorCode = "ENG_001"
	ErrCodeDimensionMismatch      ErrorCode = "ENG_002"
	ErrCodeEmbeddingUnavailable   ErrorCode = "ENG_003"
	ErrCodeExplanationUnavailable ErrorCode = "ENG_004"
	ErrCodeVectorIndexUnavailable ErrorCode = "ENG_005"
	ErrCodeClaimParseFailed       ErrorCode = "ENG_006"
	ErrCodeComparisonFailed       ErrorCode = "ENG_007"
)

// Patent Module Error Codes
const (
	ErrCodePatentNotFound      ErrorCode = "PAT_001"
	ErrCodePatentAlreadyExists ErrorCode = "PAT_002"
	ErrCodePatentNumberInvalid ErrorCode = "PAT_003"
	ErrCodeClaimNotFound       ErrorCode = "PAT_004"
	ErrCodeClaimSetInvalid     ErrorCode = "PAT_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeInvalidInput:           http.StatusBadRequest,
	ErrCodeDimensionMismatch:      http.StatusUnprocessableEntity,
	ErrCodeEmbeddingUnavailable:   http.StatusServiceUnavailable,
	ErrCodeExplanationUnavailable: http.StatusServiceUnavailable,
	ErrCodeVectorIndexUnavailable: http.StatusServiceUnavailable,
	ErrCodeClaimParseFailed:       http.StatusUnprocessableEntity,
	ErrCodeComparisonFailed:       http.StatusInternalServerError,

	ErrCodePatentNotFound:      http.StatusNotFound,
	ErrCodePatentAlreadyExists: http.StatusConflict,
	ErrCodePatentNumberInvalid: http.StatusBadRequest,
	ErrCodeClaimNotFound:       http.StatusNotFound,
	ErrCodeClaimSetInvalid:     http.StatusUnprocessableEntity,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeInvalidInput:           "invalid input",
	ErrCodeDimensionMismatch:      "embedding dimension mismatch",
	ErrCodeEmbeddingUnavailable:   "embedding service unavailable",
	ErrCodeExplanationUnavailable: "explanation service unavailable",
	ErrCodeVectorIndexUnavailable: "vector index unavailable",
	ErrCodeClaimParseFailed:       "claim parsing failed",
	ErrCodeComparisonFailed:       "patent comparison failed",

	ErrCodePatentNotFound:      "patent not found",
	ErrCodePatentAlreadyExists: "patent already exists",
	ErrCodePatentNumberInvalid: "invalid patent number",
	ErrCodeClaimNotFound:       "claim not found",
	ErrCodeClaimSetInvalid:     "invalid claim set",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
