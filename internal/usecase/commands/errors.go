package commands

import (
	"salon-booking/internal/pkg/errs"
)

type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION"
	CodeLeadTimeViolation ErrorCode = "LEAD_TIME_VIOLATION"
	CodePriceMismatch     ErrorCode = "PRICE_MISMATCH"
	CodeOutOfHours        ErrorCode = "OUT_OF_HOURS"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeTooEarly          ErrorCode = "TOO_EARLY"
	CodeNoStaff           ErrorCode = "NO_STAFF"
	CodeIdempotencyReused ErrorCode = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal          ErrorCode = "INTERNAL"
	CodeOK                ErrorCode = "OK"
)

var (
	ErrValidation        = errs.New("validation failed")
	ErrLeadTimeViolation = errs.New("start is closer than the minimum lead time")
	ErrPriceMismatch     = errs.New("expected total price does not match computed price")
	ErrOutOfHours        = errs.New("slot is outside the shop working hours")
	ErrConflict          = errs.New("slot overlaps an active booking")
	ErrNotFound          = errs.New("booking not found")
	ErrForbidden         = errs.New("operation not allowed for actor")
	ErrUnauthorized      = errs.New("actor is not related to the booking")
	ErrTooEarly          = errs.New("status change is not allowed yet")
	ErrNoStaff           = errs.New("booking has no assigned staff")
	ErrInternal          = errs.New("internal error")

	ErrIdempotencyKeyReused = errs.New("idempotency key was used with a different request")
)

var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrValidation, CodeValidation},
	{ErrLeadTimeViolation, CodeLeadTimeViolation},
	{ErrPriceMismatch, CodePriceMismatch},
	{ErrOutOfHours, CodeOutOfHours},
	{ErrConflict, CodeConflict},
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrTooEarly, CodeTooEarly},
	{ErrNoStaff, CodeNoStaff},
	{ErrIdempotencyKeyReused, CodeIdempotencyReused},
}

// Code classifies an error returned by BookingCommands. Anything unrecognised is internal.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errorCodes {
		if errs.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// PriceMismatchError carries the computed total so callers can show it.
type PriceMismatchError struct {
	Expected float64
	Computed float64
}

func (e *PriceMismatchError) Error() string {
	return ErrPriceMismatch.Error()
}

func newPriceMismatch(expected, computed float64) error {
	return errs.Mark(&PriceMismatchError{Expected: expected, Computed: computed}, ErrPriceMismatch)
}
