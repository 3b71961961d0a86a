package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/logging"
)

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errRequestTooLarge     = errors.New("request body is too large")
	errInvalidSessionID    = errors.New("session id must be a positive integer")
	errMissingSessionToken = errors.New("a login token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application errors into status codes and bodies.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		})
		return
	}

	status := serviceErrorStatus(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, status, errorResponse{Message: statusMessage(status)})
		return
	}

	body := errorResponse{
		ErrorCode: strings.ToUpper(application.ErrorKind(err)),
		Message:   err.Error(),
	}
	var conflict *application.SchedulingConflictError
	if errors.As(err, &conflict) {
		body.ConflictingSessionID = conflict.ConflictingSessionID
		body.Participant = conflict.Participant
	}
	r.writeJSON(ctx, w, status, body)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.With(ctx, r.logger)
}

func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, application.ErrNotLoggedIn),
		errors.Is(err, application.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, application.ErrUserNotFound),
		errors.Is(err, application.ErrUnknownUser),
		errors.Is(err, application.ErrSessionNotFound),
		errors.Is(err, application.ErrCourseNotFound),
		errors.Is(err, application.ErrAvailabilitySlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrDuplicateUsername),
		errors.Is(err, application.ErrAlreadyConfirmed),
		errors.Is(err, application.ErrCourseAlreadyEnrolled),
		errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, application.ErrSchedulingConflict):
		return http.StatusConflict
	case errors.Is(err, application.ErrSelfProposal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request could not be parsed"
	case http.StatusUnauthorized:
		return "you are not logged in"
	case http.StatusForbidden:
		return "you are not allowed to perform this action"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state"
	case http.StatusUnprocessableEntity:
		return "the request contains invalid fields"
	case http.StatusServiceUnavailable:
		return "the request was canceled"
	default:
		return "internal server error"
	}
}

type errorResponse struct {
	ErrorCode            string            `json:"error_code,omitempty"`
	Message              string            `json:"message"`
	Errors               map[string]string `json:"errors,omitempty"`
	ConflictingSessionID int64             `json:"conflicting_session_id,omitempty"`
	Participant          string            `json:"participant,omitempty"`
}
