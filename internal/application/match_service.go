package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/study-scheduler/internal/persistence"
	"github.com/example/study-scheduler/internal/scheduler"
)

// UserLister exposes the user reads the match service needs.
type UserLister interface {
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// MatchService suggests study partners from shared courses and availability dates.
type MatchService struct {
	users   UserLister
	metrics MetricsRecorder
	logger  *slog.Logger
}

// NewMatchService constructs a MatchService.
func NewMatchService(users UserLister, metrics MetricsRecorder) *MatchService {
	return NewMatchServiceWithLogger(users, metrics, nil)
}

// NewMatchServiceWithLogger constructs a MatchService with a specified logger.
func NewMatchServiceWithLogger(users UserLister, metrics MetricsRecorder, logger *slog.Logger) *MatchService {
	return &MatchService{users: users, metrics: defaultMetrics(metrics), logger: defaultLogger(logger)}
}

// SuggestMatches returns, sorted by username, every other user who shares at
// least one course with the acting user and has an availability window on a
// date the acting user is also available.
func (s *MatchService) SuggestMatches(ctx context.Context, principal Principal) (matches []string, err error) {
	if s == nil {
		return nil, fmt.Errorf("MatchService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "MatchService", "SuggestMatches", "username", principal.Username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "match suggestion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.MatchCandidates(len(matches))
		logger.InfoContext(ctx, "matches suggested", "count", len(matches))
	}()

	if principal.Username == "" {
		return nil, ErrNotLoggedIn
	}

	self, err := s.users.GetUser(ctx, principal.Username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	others := make([]scheduler.Profile, 0, len(users))
	for _, user := range users {
		others = append(others, toSchedulerProfile(user))
	}

	return scheduler.SuggestMatches(toSchedulerProfile(self), others), nil
}

func toSchedulerProfile(user User) scheduler.Profile {
	windows := make([]scheduler.Window, 0, len(user.Availability))
	for _, w := range user.Availability {
		windows = append(windows, scheduler.Window{Date: w.Date, Start: w.Start, End: w.End})
	}
	return scheduler.Profile{
		Username:     user.Username,
		Courses:      user.Courses,
		Availability: windows,
	}
}
