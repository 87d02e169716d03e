package symexec

import "github.com/pkg/errors"

// StateErrorKind classifies why a state terminated abnormally, mirroring
// the original's TerminateReason enum.
type StateErrorKind int

const (
	// KindUser is a user-triggered termination: misuse of an intrinsic
	// by the analyzed program, or klee_silent_exit. Expected, not a bug
	// in this core.
	KindUser StateErrorKind = iota
	// KindPtr is an invalid pointer dereference (out of bounds, or into
	// an unbound object).
	KindPtr
	// KindAssert is a failed assert() in the analyzed program.
	KindAssert
	// KindOverflow is a detected signed arithmetic overflow.
	KindOverflow
	// KindInaccessible is an access to an object ForbidAccess marked
	// off-limits and the forgetting protocol never re-allowed.
	KindInaccessible
	// KindUnhandled is an intrinsic call this core has no handler for.
	KindUnhandled
	// KindReportError is an explicit klee_report_error call.
	KindReportError
	// KindExec is an internal invariant violation: always a bug in this
	// core itself, never in the analyzed program.
	KindExec
)

func (k StateErrorKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindPtr:
		return "ptr"
	case KindAssert:
		return "assert"
	case KindOverflow:
		return "overflow"
	case KindInaccessible:
		return "inaccessible"
	case KindUnhandled:
		return "unhandled"
	case KindReportError:
		return "report_error"
	case KindExec:
		return "exec"
	default:
		return "unknown"
	}
}

// StateError is the error type every terminal handler constructs. Fatal
// reports whether the disposition is unrecoverable (KindExec): a caller
// observing a Fatal StateError should panic rather than continue
// stepping the state, since it signals a broken invariant in this core
// rather than a property of the analyzed program.
type StateError struct {
	Kind    StateErrorKind
	Message string
	Cause   error
}

func (e *StateError) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *StateError) Unwrap() error { return e.Cause }

// Fatal reports whether this error reflects a broken invariant in the
// core itself rather than a property of the state being executed.
func (e *StateError) Fatal() bool { return e.Kind == KindExec }

func newStateError(kind StateErrorKind, format string, args ...interface{}) *StateError {
	return &StateError{Kind: kind, Message: errors.Errorf(format, args...).Error()}
}

func wrapStateError(kind StateErrorKind, cause error, format string, args ...interface{}) *StateError {
	return &StateError{Kind: kind, Message: errors.Errorf(format, args...).Error(), Cause: cause}
}

func errUser(format string, args ...interface{}) *StateError { return newStateError(KindUser, format, args...) }
func errPtr(format string, args ...interface{}) *StateError { return newStateError(KindPtr, format, args...) }
func errAssert(format string, args ...interface{}) *StateError { return newStateError(KindAssert, format, args...) }
func errOverflow(format string, args ...interface{}) *StateError { return newStateError(KindOverflow, format, args...) }
func errInaccessible(format string, args ...interface{}) *StateError { return newStateError(KindInaccessible, format, args...) }
func errUnhandled(format string, args ...interface{}) *StateError { return newStateError(KindUnhandled, format, args...) }
func errReport(format string, args ...interface{}) *StateError { return newStateError(KindReportError, format, args...) }
func errExec(format string, args ...interface{}) *StateError { return newStateError(KindExec, format, args...) }
