package dte

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProviderUnavailable is returned without calling the provider while it
// is considered down.
var ErrProviderUnavailable = errors.New("document provider temporarily unavailable")

// ValidationError reports request data that prevents building a document.
// No external call is made when it is returned.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// NewValidationError builds a ValidationError, or returns nil when there are no details.
func NewValidationError(details []string) error {
	if len(details) == 0 {
		return nil
	}
	return &ValidationError{Details: details}
}

// UpstreamError is a non-success answer from an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Body)
}
