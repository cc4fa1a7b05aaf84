package api

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every worker. Consumers route on these classes:
// validation errors, missing required references and invalid transitions are
// fatal for the record (dead-lettered without retry); conflicts on idempotent
// creates count as success; transient errors are surrendered for redelivery.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports a malformed message or request field. The message
// is surfaced verbatim to HTTP callers.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GatewayError is a simulated payment-gateway failure (timeouts, service
// unavailable and so on), distinct from a DECLINED outcome.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return "gateway error: " + e.Message }

func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// TransientError marks store or queue failures that the broker should
// redeliver. Storage and publish paths wrap unclassified driver errors with
// Transient so only genuinely malformed records end up dead-lettered.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. nil stays nil; existing classifications
// (not found, conflict, validation, insufficient stock) pass through
// untouched.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientStock) || IsValidation(err) {
		return err
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
