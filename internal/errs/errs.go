// Package errs defines the closed set of error kinds used across hivecrawl.
// Callers branch on Kind, not on Go's dynamic error hierarchy: every error
// that crosses a component boundary is wrapped in a *Error carrying one of
// the kinds below.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a closed classification of failure modes. New kinds require a
// spec change, not ad-hoc error types.
type Kind string

const (
	// TransientStore is a retryable failure talking to the coordination store.
	TransientStore Kind = "transient_store"
	// TransientIO is a retryable failure on a frontier file.
	TransientIO Kind = "transient_io"
	// TransientHTTP is a fetch failure the core does not retry itself.
	TransientHTTP Kind = "transient_http"
	// ParseFailed means the fetched body could not be parsed for links.
	ParseFailed Kind = "parse_failed"
	// PolicyReject means a non-error policy decision (robots, exclusion, seeded-only).
	PolicyReject Kind = "policy_reject"
	// Fatal means the process cannot continue.
	Fatal Kind = "fatal"
)

// Error is the carrier type for all classified errors in hivecrawl.
type Error struct {
	Kind    Kind
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel policy-reject reasons, recorded as the status code on a visited
// entry so the URL is never re-enqueued (spec.md §7).
var (
	// ErrRobotsDisallowed is returned when robots.txt forbids the URL.
	ErrRobotsDisallowed = errors.New("robots.txt disallows url")
	// ErrManuallyExcluded is returned when the domain is on the exclusion list.
	ErrManuallyExcluded = errors.New("domain manually excluded")
	// ErrNotSeeded is returned in seeded-only mode for a non-seeded domain.
	ErrNotSeeded = errors.New("domain not seeded")
)

// Sentinel status codes recorded on a Visited entry for policy decisions.
// These never collide with real HTTP status codes.
const (
	// StatusDisallowed marks a URL rejected by robots.txt.
	StatusDisallowed = 0
	// StatusExcluded marks a URL rejected by manual exclusion.
	StatusExcluded = -1
	// StatusNotSeeded marks a URL rejected by seeded-only mode.
	StatusNotSeeded = -2
)
