package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed backend invocation.
type ErrorKind string

const (
	ErrTimeout         ErrorKind = "timeout"
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrAuthFailure     ErrorKind = "auth_failure"
	ErrInvalidRequest  ErrorKind = "invalid_request"
	ErrInvalidResponse ErrorKind = "invalid_response"
	ErrUnavailable     ErrorKind = "unavailable"
)

// Retryable reports whether the failure class is transient. Non-retryable
// failures still advance the fallback chain, but get flagged distinctly in
// the attempt log for operator diagnosis.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrRateLimited, ErrUnavailable, ErrInvalidResponse:
		return true
	default:
		return false
	}
}

// ProviderError is the typed failure returned by backend adapters.
type ProviderError struct {
	Provider string
	ModelID  string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s: %s: %v", e.Provider, e.ModelID, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classify maps an arbitrary invocation error onto a ProviderError. Already
// typed errors pass through; context errors become timeouts.
func Classify(provider, modelID string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	kind := ErrUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = ErrTimeout
	}
	return &ProviderError{Provider: provider, ModelID: modelID, Kind: kind, Err: err}
}
