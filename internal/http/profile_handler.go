package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/example/study-scheduler/internal/application"
)

type profileService interface {
	AddCourse(ctx context.Context, principal application.Principal, course string) error
	RemoveCourse(ctx context.Context, principal application.Principal, course string) error
	ListCourses(ctx context.Context, principal application.Principal) ([]string, error)
	AddAvailability(ctx context.Context, principal application.Principal, input application.AvailabilityInput) (application.AvailabilityWindow, error)
	RemoveAvailability(ctx context.Context, principal application.Principal, date, start string) (application.AvailabilityWindow, error)
	ListAvailability(ctx context.Context, principal application.Principal) ([]application.AvailabilityWindow, error)
}

type matchService interface {
	SuggestMatches(ctx context.Context, principal application.Principal) ([]string, error)
}

// ProfileHandler serves the acting user's courses, availability and matches
// under /me.
type ProfileHandler struct {
	profiles  profileService
	matches   matchService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(profiles profileService, matches matchService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{profiles: profiles, matches: matches, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfileHandler", operation, attrs...)
}

func (h *ProfileHandler) fail(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	h.log(ctx, operation).WarnContext(ctx, "profile request failed", "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(ctx, w, err)
}

func (h *ProfileHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	courses, err := h.profiles.ListCourses(r.Context(), principal)
	if err != nil {
		h.fail(r.Context(), w, "ListCourses", err)
		return
	}
	if courses == nil {
		courses = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, coursesResponse{Courses: courses})
}

func (h *ProfileHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req courseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeDecodeError(r.Context(), h.responder, w, err)
		return
	}
	if err := h.profiles.AddCourse(r.Context(), principal, req.Course); err != nil {
		h.fail(r.Context(), w, "AddCourse", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, courseRequest{Course: req.Course})
}

func (h *ProfileHandler) RemoveCourse(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	course := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(course); err == nil {
		course = unescaped
	}
	if err := h.profiles.RemoveCourse(r.Context(), principal, course); err != nil {
		h.fail(r.Context(), w, "RemoveCourse", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProfileHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	windows, err := h.profiles.ListAvailability(r.Context(), principal)
	if err != nil {
		h.fail(r.Context(), w, "ListAvailability", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Availability: toAvailabilityDTOs(windows)})
}

func (h *ProfileHandler) AddAvailability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityDTO
	if err := decodeRequest(w, r, &req); err != nil {
		writeDecodeError(r.Context(), h.responder, w, err)
		return
	}
	window, err := h.profiles.AddAvailability(r.Context(), principal, application.AvailabilityInput{
		Date:  req.Date,
		Start: req.Start,
		End:   req.End,
	})
	if err != nil {
		h.fail(r.Context(), w, "AddAvailability", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAvailabilityDTO(window))
}

// RemoveAvailability handles DELETE /me/availability?date=&start= and
// returns the removed window.
func (h *ProfileHandler) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	query := r.URL.Query()
	removed, err := h.profiles.RemoveAvailability(r.Context(), principal, query.Get("date"), query.Get("start"))
	if err != nil {
		h.fail(r.Context(), w, "RemoveAvailability", err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(removed))
}

func (h *ProfileHandler) Matches(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matches, err := h.matches.SuggestMatches(r.Context(), principal)
	if err != nil {
		h.fail(r.Context(), w, "Matches", err)
		return
	}
	if matches == nil {
		matches = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, usernamesResponse{Usernames: matches})
}

type courseRequest struct {
	Course string `json:"course" validate:"required"`
}

type coursesResponse struct {
	Courses []string `json:"courses"`
}

type availabilityDTO struct {
	Date  string `json:"date" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type availabilityResponse struct {
	Availability []availabilityDTO `json:"availability"`
}

func toAvailabilityDTO(window application.AvailabilityWindow) availabilityDTO {
	return availabilityDTO{Date: window.Date, Start: window.Start, End: window.End}
}

func toAvailabilityDTOs(windows []application.AvailabilityWindow) []availabilityDTO {
	dtos := make([]availabilityDTO, 0, len(windows))
	for _, w := range windows {
		dtos = append(dtos, toAvailabilityDTO(w))
	}
	return dtos
}
