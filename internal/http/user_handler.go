package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/study-scheduler/internal/application"
)

type userService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
}

type userSearcher interface {
	SearchUsersByCourse(ctx context.Context, course string) ([]string, error)
}

// UserHandler serves registration and course search.
type UserHandler struct {
	service   userService
	search    userSearcher
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, search userSearcher, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, search: search, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "invalid registration request", "error", err)
		writeDecodeError(r.Context(), h.responder, w, err)
		return
	}

	logger := h.log(r.Context(), "Register", "username", req.Username)
	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Search handles GET /users?course=NAME.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.search == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	course := r.URL.Query().Get("course")
	usernames, err := h.search.SearchUsersByCourse(r.Context(), course)
	if err != nil {
		h.log(r.Context(), "Search", "course", course).WarnContext(r.Context(), "search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if usernames == nil {
		usernames = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, usernamesResponse{Usernames: usernames})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type userDTO struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type usernamesResponse struct {
	Usernames []string `json:"usernames"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		Username:  user.Username,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
