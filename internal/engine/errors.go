// Package engine implements the reservation and payment reconciliation
// core: availability counting, booking lifecycle transitions, coupon
// redemption and idempotent gateway reconciliation. Handlers translate
// the sentinel errors defined here into HTTP responses; internal
// callers treat InvalidTransitionError as an expected no-op signal.
package engine

import (
	"errors"
	"fmt"

	"github.com/onnride/vehicle-rental/internal/model"
)

var (
	// ErrVehicleNotFound is returned when the referenced vehicle does
	// not exist. Handlers map it to 404.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrBookingNotFound is returned when the referenced booking does
	// not exist. Handlers map it to 404.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrCouponNotFound covers unknown and inactive coupon codes.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCapacityExceeded means every unit of the vehicle at the
	// requested location is taken for some part of the interval. It is
	// a business outcome, not a system fault.
	ErrCapacityExceeded = errors.New("no vehicle available for the selected period")

	// ErrCouponExpired is returned when the coupon is outside its
	// validity window (not yet active or already expired).
	ErrCouponExpired = errors.New("coupon is not valid at this time")

	// ErrCouponExhausted is returned when the coupon's usage limit has
	// been reached.
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	// ErrCouponMinimumNotMet is returned when the base amount is below
	// the coupon's minimum booking amount.
	ErrCouponMinimumNotMet = errors.New("booking amount below coupon minimum")

	// ErrInvalidSignature is returned when a webhook body fails HMAC
	// verification. The body must not be processed.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrForbidden is returned when the caller does not own the booking
	// and is not an admin.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError marks caller mistakes (bad interval, malformed
// input). It is never retried and maps to a 4xx response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TransientStorageError reports a storage failure that persisted
// through the repository's bounded retries. The failed attempt rolled
// back, so the request is safe to retry. Handlers map it to 503.
type TransientStorageError struct {
	Err error
}

func (e *TransientStorageError) Error() string { return "storage unavailable: " + e.Err.Error() }
func (e *TransientStorageError) Unwrap() error { return e.Err }

// InvalidTransitionError reports a booking lifecycle transition that
// the state machine forbids. Internal callers (reconciliation, replays)
// treat it as a no-op; it surfaces as 409 only when a user action
// triggers it directly, e.g. a double cancel.
type InvalidTransitionError struct {
	From model.BookingStatus
	To   model.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %q to %q", e.From, e.To)
}
