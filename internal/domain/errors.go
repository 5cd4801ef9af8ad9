package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers test with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// NotFoundError reports a missing case-scoped resource
func NotFoundError(resource string, id any) error {
	return fmt.Errorf("%s %v: %w", resource, id, ErrNotFound)
}

// ValidationError reports malformed or inconsistent input
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// UpstreamError reports a failed external provider call
func UpstreamError(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrUpstreamUnavailable, err)
}
