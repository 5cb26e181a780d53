// Package simerr defines the failure taxonomy shared by every stage of the
// simulation pipeline.
//
// Callers match on the sentinel kinds with errors.Is; the concrete *Error
// carries which check failed and the offending field or row.
package simerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Every *Error unwraps to exactly one of these.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrSchema        = errors.New("schema error")
	ErrContinuity    = errors.New("continuity error")
	ErrRange         = errors.New("range error")
	ErrEnvironment   = errors.New("environment error")
	ErrEngineFault   = errors.New("engine fault")
)

// NoRow marks an error that is not tied to a particular row.
const NoRow = -1

// Error describes a failed check.
type Error struct {
	Kind   error  // one of the sentinel kinds above
	Check  string // short name of the failing check, e.g. "weather.contiguity"
	Field  string // offending key or column, if any
	Row    int    // zero-based offending row, or NoRow
	Detail string
	Err    error // optional underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")
	b.WriteString(e.Check)
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s]", e.Field)
	}
	if e.Row != NoRow {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error that is not tied to a row.
func New(kind error, check, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Check: check, Field: field, Row: NoRow, Detail: fmt.Sprintf(format, args...)}
}

// AtRow builds an *Error pointing at a specific row.
func AtRow(kind error, check, field string, row int, format string, args ...any) *Error {
	return &Error{Kind: kind, Check: check, Field: field, Row: row, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new *Error of the given kind.
func Wrap(kind error, check string, err error) *Error {
	return &Error{Kind: kind, Check: check, Row: NoRow, Err: err}
}

// KindOf returns a stable snake_case code for err, suitable for metric
// labels and API error codes. Unknown errors map to "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrContinuity):
		return "continuity"
	case errors.Is(err, ErrRange):
		return "range"
	case errors.Is(err, ErrEnvironment):
		return "environment"
	case errors.Is(err, ErrEngineFault):
		return "engine_fault"
	default:
		return "internal"
	}
}

// IsInputError reports whether err was caused by caller-supplied data and
// can be corrected without touching the deployment.
func IsInputError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrContinuity) ||
		errors.Is(err, ErrRange)
}
