package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeAllMerchantsFailed = "ALL_MERCHANTS_FAILED"
	ErrCodeStructureChanged   = "NO_RESULTS_OR_STRUCTURE_CHANGED"
	ErrCodeFetch              = "FETCH_FAILED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeImageProxy         = "IMAGE_PROXY_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	// ErrAllMerchantsFailed means the fan-out produced no successful source
	// at all. This is the only way "everything broke" is distinguished from
	// "nothing matched" (which is an empty success).
	ErrAllMerchantsFailed = errors.New("all merchants failed")

	// ErrStructureChanged means a merchant page fetched fine but the
	// extraction selectors matched nothing, a strong signal the site's
	// markup drifted and the adapter needs repair.
	ErrStructureChanged = errors.New("no results extracted, selectors may be stale")
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AppError is the internal error type carrying an error code.
// It implements the error interface and supports wrapping via Unwrap.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *AppError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf extracts the error code from any error, defaulting to
// ErrCodeInternal for errors that carry no code.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, ErrStructureChanged) {
		return ErrCodeStructureChanged
	}
	return ErrCodeInternal
}
