package application

import (
	"errors"
	"fmt"

	"github.com/example/study-scheduler/internal/scheduler"
)

var (
	// ErrDuplicateUsername is returned when registering a username that is taken.
	ErrDuplicateUsername = errors.New("application: username already exists")
	// ErrUserNotFound is returned when the acting or authenticating user is not registered.
	ErrUserNotFound = errors.New("application: user not found")
	// ErrAuthenticationFailed is returned when a credential does not match.
	ErrAuthenticationFailed = errors.New("application: authentication failed")
	// ErrNotLoggedIn is returned when an operation needs an acting user and none is present.
	ErrNotLoggedIn = errors.New("application: not logged in")
	// ErrUnknownUser is returned when a proposal names a user that is not registered.
	ErrUnknownUser = errors.New("application: unknown user")
	// ErrSelfProposal is returned when a user proposes a session with themselves.
	ErrSelfProposal = errors.New("application: cannot propose a session with yourself")
	// ErrSessionNotFound is returned when a session identifier is unknown.
	ErrSessionNotFound = errors.New("application: session not found")
	// ErrNotAuthorized is returned when the acting user is not a session participant.
	ErrNotAuthorized = errors.New("application: not a participant of this session")
	// ErrAlreadyConfirmed is returned when confirming a session that is already confirmed.
	ErrAlreadyConfirmed = errors.New("application: session already confirmed")
	// ErrSchedulingConflict is matched by every *SchedulingConflictError.
	ErrSchedulingConflict = errors.New("application: scheduling conflict")
	// ErrInvalidTransition is returned for status changes out of a terminal state.
	ErrInvalidTransition = scheduler.ErrInvalidTransition
	// ErrCourseNotFound is returned when removing a course the user is not enrolled in.
	ErrCourseNotFound = errors.New("application: course not found")
	// ErrCourseAlreadyEnrolled is returned when adding a course twice.
	ErrCourseAlreadyEnrolled = errors.New("application: course already in profile")
	// ErrAvailabilitySlotNotFound is returned when no availability window matches.
	ErrAvailabilitySlotNotFound = errors.New("application: availability slot not found")
)

// SchedulingConflictError reports the confirmed session that blocks a confirmation.
type SchedulingConflictError struct {
	SessionID            int64
	ConflictingSessionID int64
	Participant          string
}

// Error implements the error interface.
func (e *SchedulingConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("cannot confirm session %d: it overlaps with session %d for user %s", e.SessionID, e.ConflictingSessionID, e.Participant)
}

// Is lets errors.Is match ErrSchedulingConflict.
func (e *SchedulingConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) required(field, value string) {
	if value == "" {
		v.add(field, field+" is required")
	}
}
