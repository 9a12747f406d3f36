package entity

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	// Validation errors
	ErrValidation          = errors.New("validation failed")
	ErrMissingField        = fmt.Errorf("%w: required field is missing", ErrValidation)
	ErrInvalidFormat       = fmt.Errorf("%w: invalid format", ErrValidation)
	ErrInvalidCounty       = fmt.Errorf("%w: unsupported county", ErrValidation)
	ErrInvalidImage        = fmt.Errorf("%w: invalid image", ErrValidation)
	ErrInputTooLarge       = fmt.Errorf("%w: input too large", ErrValidation)
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", ErrValidation)
	ErrFileTooLarge        = fmt.Errorf("%w: file too large", ErrValidation)
	ErrNoExtractableText   = fmt.Errorf("%w: no extractable text", ErrValidation)

	// Access errors
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAccessDenied      = errors.New("active subscription required")
	ErrUsageLimitReached = errors.New("monthly usage limit reached")
	ErrRateLimited       = errors.New("rate limit exceeded")

	// Provider and storage errors
	ErrEmbeddingProvider  = errors.New("embedding provider error")
	ErrGenerativeProvider = errors.New("generative provider error")
	ErrPersistence        = errors.New("persistence error")
	ErrRequestTimedOut    = errors.New("request timed out")
	ErrNotFound           = errors.New("not found")
	ErrConfiguration      = errors.New("service misconfigured")
)

// LimitError reports a rejected request together with the window it was rejected in.
type LimitError struct {
	Err       error
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (limit %d, resets at %s)", e.Err, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *LimitError) Unwrap() error {
	return e.Err
}
