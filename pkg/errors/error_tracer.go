package errors

import "github.com/pkg/errors"

// StackTracer is satisfied by errors that carry a captured stack.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer attaches an operation label and a stack trace to an
// infrastructure error (journal, snapshot store, publisher), so the logger
// can print where the failure entered the engine. Engine-semantic failures
// use Error and its Code taxonomy instead.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer creates a tracer labeled with the failing operation. Callers
// chain Wrap to attach the cause:
//
//	errors.NewTracer("journal_commit_error").Wrap(err)
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// Wrap attaches the cause, capturing a stack at the wrap site unless the
// cause already carries one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	if _, ok := err.(StackTracer); ok {
		e.Err = err
		return e
	}
	e.Err = errors.WithStack(err)
	return e
}

func (e *ErrorTracer) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace exposes the wrapped error's stack for the logger.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}
