// internal/errors/errors.go - Error taxonomy for price extraction
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies an error by where it happened and how it is handled.
type Kind string

const (
	KindDomainExtraction Kind = "domain"
	KindFetch            Kind = "fetch"
	KindParse            Kind = "parse"
	KindSink             Kind = "sink"
	KindFatalStartup     Kind = "startup"
	KindConfig           Kind = "config"
	KindInput            Kind = "input"
)

// Fetch failure reasons.
const (
	ReasonTimeout         = "timeout"
	ReasonNavigation      = "navigation"
	ReasonLocatorNotFound = "locator_not_found"
	ReasonNotStarted      = "not_started"
	ReasonStopped         = "stopped"
	ReasonPanic           = "panic"
	ReasonBlocked         = "blocked"
)

// Error is a classified error carrying the row context it occurred in.
type Error struct {
	Kind    Kind
	Op      string
	Reason  string
	URL     string
	Locator string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	if e.Locator != "" {
		fmt.Fprintf(&b, " xpath=%s", e.Locator)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, and by reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Fetch creates a fetch error for a url/xpath pair.
func Fetch(reason, url, locator string, err error) *Error {
	return &Error{Kind: KindFetch, Op: "fetch text", Reason: reason, URL: url, Locator: locator, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the reason of the first *Error in the chain.
func ReasonOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransient reports whether an operation failing with err may succeed when repeated.
func IsTransient(err error) bool {
	if KindOf(err) != KindFetch {
		return false
	}
	switch ReasonOf(err) {
	case ReasonTimeout, ReasonNavigation:
		return true
	}
	return false
}
