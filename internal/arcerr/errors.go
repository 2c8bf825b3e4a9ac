// Package arcerr defines the fatal error taxonomy of the arc state machine.
//
// Every error produced here represents a violated invariant that requires
// operator attention. None of them is retried inside arclot; handlers stop at
// the first one and surface it to the orchestrator.
package arcerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes fatal errors.
type Code string

const (
	// CodeInconsistentState covers detected races, more than one marker for a
	// lot, unexpected manifest state combinations and URIs missing a required
	// coordinate.
	CodeInconsistentState Code = "INCONSISTENT_STATE"

	// CodePrecondition covers requests that cannot be honored as issued:
	// transitioning to the current state, or building an identifier URI whose
	// lot and state fields conflict.
	CodePrecondition Code = "PRECONDITION"
)

// Error is a fatal arc state machine error.
//
// It carries enough identity (arc or dataset, lot) and the conflicting state
// values to diagnose the failure without further lookups.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Arc identifies the affected arc ("project@version/arc").
	Arc string

	// Dataset identifies the affected dataset ("name@version").
	Dataset string

	// Lot is the affected lot.
	Lot string

	// Expected is the state the caller expected to find.
	Expected string

	// Found is the state (or states) actually observed.
	Found string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var attrs []string
	if e.Arc != "" {
		attrs = append(attrs, "arc="+e.Arc)
	}
	if e.Dataset != "" {
		attrs = append(attrs, "dataset="+e.Dataset)
	}
	if e.Lot != "" {
		attrs = append(attrs, "lot="+e.Lot)
	}
	if e.Expected != "" {
		attrs = append(attrs, "expected="+e.Expected)
	}
	if e.Found != "" {
		attrs = append(attrs, "found="+e.Found)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k+"="+e.Details[k])
	}
	if len(attrs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Inconsistent creates an INCONSISTENT_STATE error.
func Inconsistent(format string, args ...any) *Error {
	return &Error{Code: CodeInconsistentState, Message: fmt.Sprintf(format, args...)}
}

// Precondition creates a PRECONDITION error.
func Precondition(format string, args ...any) *Error {
	return &Error{Code: CodePrecondition, Message: fmt.Sprintf(format, args...)}
}

// ForArc sets the arc identity.
func (e *Error) ForArc(arc string) *Error {
	e.Arc = arc
	return e
}

// ForDataset sets the dataset identity.
func (e *Error) ForDataset(dataset string) *Error {
	e.Dataset = dataset
	return e
}

// AtLot sets the lot.
func (e *Error) AtLot(lot string) *Error {
	e.Lot = lot
	return e
}

// States records the expected and observed states.
func (e *Error) States(expected, found string) *Error {
	e.Expected = expected
	e.Found = found
	return e
}

// With adds a detail entry.
func (e *Error) With(key, value string) *Error {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// IsInconsistent returns true if err is an INCONSISTENT_STATE error.
// Uses errors.As to handle wrapped errors.
func IsInconsistent(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeInconsistentState
	}
	return false
}

// IsPrecondition returns true if err is a PRECONDITION error.
// Uses errors.As to handle wrapped errors.
func IsPrecondition(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodePrecondition
	}
	return false
}

// IsFatal returns true if err belongs to the fatal taxonomy.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
