package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/example/study-scheduler/internal/persistence"
)

// ProfileRepository captures the persistence interactions for courses and availability.
type ProfileRepository interface {
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	AddCourse(ctx context.Context, username, course string) error
	RemoveCourse(ctx context.Context, username, course string) error
	AddAvailability(ctx context.Context, username string, window AvailabilityWindow) error
	RemoveAvailability(ctx context.Context, username, date, start string) (AvailabilityWindow, error)
}

// ProfileService manages a user's enrolled courses and availability windows.
type ProfileService struct {
	profiles ProfileRepository
	logger   *slog.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles ProfileRepository) *ProfileService {
	return NewProfileServiceWithLogger(profiles, nil)
}

// NewProfileServiceWithLogger constructs a ProfileService with a specified logger.
func NewProfileServiceWithLogger(profiles ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: defaultLogger(logger)}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

func (s *ProfileService) ready() error {
	if s == nil {
		return fmt.Errorf("ProfileService is nil")
	}
	if s.profiles == nil {
		return fmt.Errorf("profile repository not configured")
	}
	return nil
}

// AddCourse enrols the acting user in course.
func (s *ProfileService) AddCourse(ctx context.Context, principal Principal, course string) (err error) {
	if err = s.ready(); err != nil {
		return err
	}
	course = strings.TrimSpace(course)
	logger := s.loggerWith(ctx, "AddCourse", "username", principal.Username, "course", course)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add course", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "course added")
	}()

	if principal.Username == "" {
		return ErrNotLoggedIn
	}
	vErr := &ValidationError{}
	vErr.required("course", course)
	if vErr.HasErrors() {
		return vErr
	}
	if err = s.ensureUser(ctx, principal.Username); err != nil {
		return err
	}

	if err = s.profiles.AddCourse(ctx, principal.Username, course); err != nil {
		return mapProfileRepoError(err, ErrCourseNotFound, ErrCourseAlreadyEnrolled)
	}
	return nil
}

// RemoveCourse drops course from the acting user's profile.
func (s *ProfileService) RemoveCourse(ctx context.Context, principal Principal, course string) (err error) {
	if err = s.ready(); err != nil {
		return err
	}
	course = strings.TrimSpace(course)
	logger := s.loggerWith(ctx, "RemoveCourse", "username", principal.Username, "course", course)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove course", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "course removed")
	}()

	if principal.Username == "" {
		return ErrNotLoggedIn
	}
	if err = s.ensureUser(ctx, principal.Username); err != nil {
		return err
	}

	if err = s.profiles.RemoveCourse(ctx, principal.Username, course); err != nil {
		return mapProfileRepoError(err, ErrCourseNotFound, ErrCourseAlreadyEnrolled)
	}
	return nil
}

// ListCourses returns the acting user's courses in insertion order.
func (s *ProfileService) ListCourses(ctx context.Context, principal Principal) ([]string, error) {
	user, err := s.currentUser(ctx, principal)
	if err != nil {
		return nil, err
	}
	return user.Courses, nil
}

// AddAvailability appends a window to the acting user's availability.
// Duplicates and overlapping windows are accepted.
func (s *ProfileService) AddAvailability(ctx context.Context, principal Principal, input AvailabilityInput) (window AvailabilityWindow, err error) {
	if err = s.ready(); err != nil {
		return AvailabilityWindow{}, err
	}
	window = AvailabilityWindow{
		Date:  strings.TrimSpace(input.Date),
		Start: strings.TrimSpace(input.Start),
		End:   strings.TrimSpace(input.End),
	}
	logger := s.loggerWith(ctx, "AddAvailability",
		"username", principal.Username,
		"date", window.Date,
		"start", window.Start,
		"end", window.End,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability added")
	}()

	if principal.Username == "" {
		return AvailabilityWindow{}, ErrNotLoggedIn
	}
	vErr := &ValidationError{}
	vErr.required("date", window.Date)
	vErr.required("start", window.Start)
	vErr.required("end", window.End)
	if vErr.HasErrors() {
		return AvailabilityWindow{}, vErr
	}

	if err = s.profiles.AddAvailability(ctx, principal.Username, window); err != nil {
		return AvailabilityWindow{}, mapProfileRepoError(err, ErrUserNotFound, ErrUserNotFound)
	}
	return window, nil
}

// RemoveAvailability removes the first window whose date and start match.
func (s *ProfileService) RemoveAvailability(ctx context.Context, principal Principal, date, start string) (removed AvailabilityWindow, err error) {
	if err = s.ready(); err != nil {
		return AvailabilityWindow{}, err
	}
	date = strings.TrimSpace(date)
	start = strings.TrimSpace(start)
	logger := s.loggerWith(ctx, "RemoveAvailability", "username", principal.Username, "date", date, "start", start)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability removed", "end", removed.End)
	}()

	if principal.Username == "" {
		return AvailabilityWindow{}, ErrNotLoggedIn
	}
	if err = s.ensureUser(ctx, principal.Username); err != nil {
		return AvailabilityWindow{}, err
	}

	removed, err = s.profiles.RemoveAvailability(ctx, principal.Username, date, start)
	if err != nil {
		return AvailabilityWindow{}, mapProfileRepoError(err, ErrAvailabilitySlotNotFound, ErrAvailabilitySlotNotFound)
	}
	return removed, nil
}

// ListAvailability returns the acting user's windows in insertion order.
func (s *ProfileService) ListAvailability(ctx context.Context, principal Principal) ([]AvailabilityWindow, error) {
	user, err := s.currentUser(ctx, principal)
	if err != nil {
		return nil, err
	}
	return user.Availability, nil
}

// SearchUsersByCourse lists the usernames enrolled in course, sorted ascending.
func (s *ProfileService) SearchUsersByCourse(ctx context.Context, course string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	course = strings.TrimSpace(course)
	if course == "" {
		vErr := &ValidationError{}
		vErr.required("course", course)
		return nil, vErr
	}

	users, err := s.profiles.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, user := range users {
		if slices.Contains(user.Courses, course) {
			matches = append(matches, user.Username)
		}
	}
	slices.Sort(matches)

	s.loggerWith(ctx, "SearchUsersByCourse", "course", course).
		DebugContext(ctx, "course search completed", "matches", len(matches))
	return matches, nil
}

func (s *ProfileService) currentUser(ctx context.Context, principal Principal) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	if principal.Username == "" {
		return User{}, ErrNotLoggedIn
	}
	user, err := s.profiles.GetUser(ctx, principal.Username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (s *ProfileService) ensureUser(ctx context.Context, username string) error {
	if _, err := s.profiles.GetUser(ctx, username); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func mapProfileRepoError(err error, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return notFound
	case errors.Is(err, persistence.ErrDuplicate):
		return duplicate
	}
	return err
}
