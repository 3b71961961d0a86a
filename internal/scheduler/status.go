package scheduler

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not permitted.
var ErrInvalidTransition = errors.New("scheduler: invalid status transition")

// Status is the lifecycle state of a study session.
type Status string

const (
	// StatusProposed is the initial state assigned on creation.
	StatusProposed Status = "proposed"
	// StatusConfirmed is terminal.
	StatusConfirmed Status = "confirmed"
	// StatusRejected is terminal.
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// String returns the capitalised label used in human readable output.
func (s Status) String() string {
	switch s {
	case StatusProposed:
		return "Proposed"
	case StatusConfirmed:
		return "Confirmed"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

// Transition validates a move from one status to another.
func Transition(from, to Status) error {
	if from.Valid() && !from.IsTerminal() && to.Valid() && to != from {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
