package errors

import "fmt"

// Code identifies a class of engine error. Codes are stable strings so they
// can travel on rejection events unchanged.
type Code string

const (
	// CodeInvalidOrder indicates a malformed order (non-positive quantity,
	// missing limit price, unknown side or type).
	CodeInvalidOrder Code = "invalid_order"
	// CodeRiskLimitExceeded indicates a pre-trade risk rule rejected the
	// order. The failing rule is carried in the Reason.
	CodeRiskLimitExceeded Code = "risk_limit_exceeded"
	// CodeEngineOverloaded indicates queue or timeout saturation. This is
	// the only retryable class; callers may retry with backoff.
	CodeEngineOverloaded Code = "engine_overloaded"
	// CodeOrderNotFound indicates a cancel target is absent. Benign.
	CodeOrderNotFound Code = "order_not_found"
	// CodeDuplicateOrderID indicates the order id was already seen on this
	// symbol. Rejected, never retried.
	CodeDuplicateOrderID Code = "duplicate_order_id"
	// CodeInternalInconsistency indicates a book invariant was violated.
	// Fatal for the affected symbol's lane only.
	CodeInternalInconsistency Code = "internal_inconsistency"
)

// Retryable reports whether callers may retry the operation that produced
// this code.
func (c Code) Retryable() bool {
	return c == CodeEngineOverloaded
}

// Error is the engine's error type: a code plus a human-readable reason.
type Error struct {
	Code   Code
	Reason string
}

// New creates an Error with the given code and reason.
func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Newf creates an Error with a formatted reason.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Is makes errors.Is match on the code, so sentinel-style checks work:
//
//	errors.Is(err, &Error{Code: CodeOrderNotFound})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code from err, walking the unwrap chain. Returns
// CodeInternalInconsistency for unclassified errors: an error the engine
// cannot name is treated as the most severe class.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeInternalInconsistency
}
