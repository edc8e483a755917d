// Package emerr defines the structural error kinds the embedder can raise.
//
// Every error here indicates a well-formedness problem with the input IL,
// an IL construct this embedder does not implement, or an internal
// invariant violation. None are meant to be locally recovered; callers
// abort the single-fragment embedding and, at their discretion, skip to
// the next one (see pkg/batch).
package emerr

import "fmt"

// Kind identifies which structural invariant was violated.
type Kind int

const (
	// UnsupportedConstruct: an IL statement or expression this embedder
	// does not implement (Special, While, a too-wide shift amount, ...).
	UnsupportedConstruct Kind = iota
	// SortMismatch: operands of incompatible width/shape, a Var whose
	// declared type disagrees with its binding's sort, or a Move that
	// would redefine a name at a different sort.
	SortMismatch
	// UndefinedVariable: a Var references a name with no defining scope.
	UndefinedVariable
	// MissingBase: a phi's contributors contain zero or more than one
	// base (unconditional) definition.
	MissingBase
	// StackImbalance: after visiting a whole IL fragment, the operand
	// stack is not empty (or underflowed during visitation).
	StackImbalance
	// EndiannessUnsupported: a Load/Store specified BigEndian.
	EndiannessUnsupported
)

func (k Kind) String() string {
	switch k {
	case UnsupportedConstruct:
		return "UnsupportedConstruct"
	case SortMismatch:
		return "SortMismatch"
	case UndefinedVariable:
		return "UndefinedVariable"
	case MissingBase:
		return "MissingBase"
	case StackImbalance:
		return "StackImbalance"
	case EndiannessUnsupported:
		return "EndiannessUnsupported"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type raised by every package in this module.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, emerr.Unsupported(...)) style checks by kind:
// two *Error values match if their Kind matches, regardless of message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Unsupported reports an UnsupportedConstruct error.
func Unsupported(format string, args ...any) *Error {
	return newf(UnsupportedConstruct, format, args...)
}

// SortMismatchf reports a SortMismatch error.
func SortMismatchf(format string, args ...any) *Error {
	return newf(SortMismatch, format, args...)
}

// UndefinedVar reports an UndefinedVariable error.
func UndefinedVar(name string) *Error {
	return newf(UndefinedVariable, "reference to undefined variable %q", name)
}

// MissingBasef reports a MissingBase error.
func MissingBasef(format string, args ...any) *Error {
	return newf(MissingBase, format, args...)
}

// StackImbalancef reports a StackImbalance error.
func StackImbalancef(format string, args ...any) *Error {
	return newf(StackImbalance, format, args...)
}

// Endianness reports an EndiannessUnsupported error.
func Endianness(format string, args ...any) *Error {
	return newf(EndiannessUnsupported, format, args...)
}

// Wrap attaches a kind and cause to an underlying error, for propagating
// failures raised deeper in the call stack (e.g. from pkg/term).
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	e := newf(k, format, args...)
	e.Cause = cause
	return e
}
