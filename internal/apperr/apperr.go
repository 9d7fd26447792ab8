// Package apperr defines the error taxonomy shared by handlers and gateways.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a malformed request body or query.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ProviderError wraps a failure of an upstream dependency.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NotFoundError reports that a provider had no matching result.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found", e.What)
}

// ConfigurationError reports a credential or setting that was not resolved at startup.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Key)
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// Provider is shorthand for a ProviderError.
func Provider(provider, op string, err error) error {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Status maps an error to the HTTP status code handlers respond with.
func Status(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
