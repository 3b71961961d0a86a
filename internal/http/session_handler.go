package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/study-scheduler/internal/application"
)

type sessionService interface {
	Propose(ctx context.Context, params application.ProposeSessionParams) (application.Session, error)
	Confirm(ctx context.Context, principal application.Principal, id int64) (application.Session, error)
	Reject(ctx context.Context, principal application.Principal, id int64) (application.Session, error)
	Get(ctx context.Context, id int64) (application.Session, error)
	ListSessions(ctx context.Context, principal application.Principal) ([]application.Session, error)
}

// SessionHandler serves /study-sessions.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	sessions, err := h.service.ListSessions(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List").WarnContext(r.Context(), "list sessions failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, toSessionDTO(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionListResponse{Sessions: dtos})
}

func (h *SessionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req proposeRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeDecodeError(r.Context(), h.responder, w, err)
		return
	}

	logger := h.log(r.Context(), "Propose", "with", req.With)
	session, err := h.service.Propose(r.Context(), application.ProposeSessionParams{
		Principal: principal,
		With:      req.With,
		Date:      req.Date,
		Start:     req.Start,
		End:       req.End,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "proposal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Location", "/study-sessions/"+strconv.FormatInt(session.ID, 10))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

// Get handles GET /study-sessions/{id}. Only participants may read a session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.Get(r.Context(), id)
	if err == nil && !session.HasParticipant(principal.Username) {
		err = application.ErrNotAuthorized
	}
	if err != nil {
		h.log(r.Context(), "Get", "session_id", id).WarnContext(r.Context(), "get session failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Confirm", h.service.Confirm)
}

func (h *SessionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Reject", h.service.Reject)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, application.Principal, int64) (application.Session, error)) {
	principal, _ := PrincipalFromContext(r.Context())

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := apply(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), operation, "session_id", id).WarnContext(r.Context(), "transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return 0, false
	}
	return id, true
}

type proposeRequest struct {
	With  string `json:"with" validate:"required"`
	Date  string `json:"date" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type sessionDTO struct {
	ID           int64    `json:"id"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type sessionListResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

func toSessionDTO(session application.Session) sessionDTO {
	return sessionDTO{
		ID:           session.ID,
		Participants: append([]string(nil), session.Participants...),
		Date:         session.Date,
		Start:        session.Start,
		End:          session.End,
		Status:       string(session.Status),
		CreatedAt:    session.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
