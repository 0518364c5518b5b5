// Package booking implements the reservation conflict-and-lifecycle engine:
// operating-hours calendar checks, overlap detection, the reservation state
// machine, quota and policy validation, recurring-series generation and the
// waitlist cascade.  The package is transport-agnostic; handlers and sweeps
// drive it through plain method calls.
package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced resource, reservation, series or
// waitlist entry does not exist.  Repositories translate sql.ErrNoRows into
// this sentinel so the engine never leaks database errors upward.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the acting user is neither the holder of the
// record nor an administrator.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports a malformed request: inverted interval, start in
// the past, duration over the cap, or an interval outside operating hours.
// It is surfaced to the caller and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// ConflictError reports that the resource is unavailable for the requested
// interval.  The caller may re-query availability and retry with a
// different interval.
type ConflictError struct {
	ResourceID uint64
	Msg        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on resource %d: %s", e.ResourceID, e.Msg)
}

// PolicyLimitError reports that a quota, capacity or horizon rule blocked
// the request.  Limit names the specific rule violated.
type PolicyLimitError struct {
	Limit string
	Msg   string
}

func (e *PolicyLimitError) Error() string { return "policy limit " + e.Limit + ": " + e.Msg }

// StateError reports an illegal lifecycle transition, such as checking in a
// cancelled reservation or answering an expired extension offer.  No
// mutation occurs when it is returned.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return "state: " + e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func statef(format string, args ...interface{}) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}
