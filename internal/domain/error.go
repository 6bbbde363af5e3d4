package domain

import "errors"

var (
	// Validation errors, returned synchronously and never retried.
	ErrNotFound               = errors.New("entity not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidPlanType        = errors.New("invalid plan type")

	// Terminal business errors.
	ErrDeadlineExpired = errors.New("activation deadline expired")
	ErrSeatExhausted   = errors.New("no seats available")
	ErrPaymentFailed   = errors.New("payment declined")

	// Infrastructure errors.
	ErrPersistenceFailure    = errors.New("persistence backend unavailable")
	ErrGatewayUnavailable    = errors.New("payment gateway unreachable")
	ErrPaymentOutcomeUnknown = errors.New("payment outcome unknown")
	ErrCompensationFailed    = errors.New("compensating cancellation failed")
	ErrLockNotAcquired       = errors.New("lock not acquired")
)

// Code is the stable machine-readable identifier of a failure.
type Code string

const (
	CodeUnknown                Code = "UNKNOWN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeInvalidAmount          Code = "INVALID_AMOUNT"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeInvalidPlanType        Code = "INVALID_PLAN_TYPE"
	CodeDeadlineExpired        Code = "DEADLINE_EXPIRED"
	CodeSeatExhausted          Code = "SEAT_EXHAUSTED"
	CodePaymentFailed          Code = "PAYMENT_FAILED"
	CodePersistenceFailure     Code = "PERSISTENCE_FAILURE"
	CodeGatewayUnavailable     Code = "GATEWAY_UNAVAILABLE"
	CodePaymentOutcomeUnknown  Code = "PAYMENT_OUTCOME_UNKNOWN"
	CodeCompensationFailed     Code = "COMPENSATION_FAILED"
	CodeLockNotAcquired        Code = "LOCK_NOT_ACQUIRED"
)

// ordered so that wrapped chains resolve to the most specific cause first
var codes = []struct {
	err  error
	code Code
}{
	{ErrCompensationFailed, CodeCompensationFailed},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrInvalidStateTransition, CodeInvalidStateTransition},
	{ErrInvalidPlanType, CodeInvalidPlanType},
	{ErrDeadlineExpired, CodeDeadlineExpired},
	{ErrSeatExhausted, CodeSeatExhausted},
	{ErrPaymentFailed, CodePaymentFailed},
	{ErrPaymentOutcomeUnknown, CodePaymentOutcomeUnknown},
	{ErrGatewayUnavailable, CodeGatewayUnavailable},
	{ErrPersistenceFailure, CodePersistenceFailure},
	{ErrLockNotAcquired, CodeLockNotAcquired},
}

// CodeOf maps err to its stable code. Unrecognised errors yield CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// Retryable reports whether the caller may safely repeat the operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrGatewayUnavailable)
}
