package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCheckoutDisabled is returned when the payment gateway is not configured.
	ErrCheckoutDisabled = errors.New("payment checkout is disabled")
	// ErrInvalidExchangeRate indicates the configured settlement exchange rate
	// is missing, non-numeric, or not positive. This is an operator error and
	// is never silently defaulted.
	ErrInvalidExchangeRate = errors.New("settlement exchange rate must be a positive decimal")
	// ErrInvalidToken indicates a missing, tampered, or already consumed
	// verification token. Callers must not leak the distinction.
	ErrInvalidToken = errors.New("payment verification token is invalid")
	// ErrOrderNotPending is returned when a payment session is requested for
	// an order that already left the pending state.
	ErrOrderNotPending = errors.New("order is not awaiting payment")
	// ErrTransitionConflict indicates an attempted status change that is not
	// allowed from the order's current state.
	ErrTransitionConflict = errors.New("order status transition conflict")
	// ErrAlreadyProcessed indicates a redelivered event whose outcome is
	// already applied; safe to acknowledge without side effects.
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrUnexpectedStatus indicates a reported payment status outside the
	// processor's documented set.
	ErrUnexpectedStatus = errors.New("unexpected payment status")
	// ErrInsufficientStock is returned when an ordered quantity exceeds the
	// available product stock.
	ErrInsufficientStock = errors.New("insufficient product stock")
)

var errValidation = errors.New("paymentservice: validation error")

type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func (e *validationError) Unwrap() error {
	return errValidation
}

func newValidationError(format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &validationError{message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

var errUpstream = errors.New("paymentservice: upstream error")

type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("payment processor unavailable: %v", e.err)
}

func (e *upstreamError) Unwrap() error {
	return errUpstream
}

func newUpstreamError(err error) error {
	return &upstreamError{err: err}
}

// IsUpstreamError reports whether the error came from talking to the payment
// processor rather than from this service's own state.
func IsUpstreamError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errUpstream)
}
