package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/study-scheduler/internal/persistence"
	"github.com/example/study-scheduler/internal/scheduler"
)

// SessionRepository captures the persistence interactions for study sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	ListSessionIDs(ctx context.Context, username string) ([]int64, error)
	UpdateSessionStatus(ctx context.Context, id int64, status scheduler.Status, updatedAt time.Time) (Session, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	MissingUsernames(ctx context.Context, usernames []string) ([]string, error)
}

// SessionService proposes study sessions and drives their status transitions.
type SessionService struct {
	sessions SessionRepository
	users    UserDirectory
	metrics  MetricsRecorder
	now      func() time.Time
	logger   *slog.Logger
	locks    *participantLocks
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, users UserDirectory, metrics MetricsRecorder, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, users, metrics, now, nil)
}

// NewSessionServiceWithLogger wires dependencies for session operations with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, users UserDirectory, metrics MetricsRecorder, now func() time.Time, logger *slog.Logger) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		metrics:  defaultMetrics(metrics),
		now:      now,
		logger:   defaultLogger(logger),
		locks:    newParticipantLocks(),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

func (s *SessionService) ready() error {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	return nil
}

// Propose records a new session between the acting user and params.With.
// The session starts Proposed and is indexed under both participants.
func (s *SessionService) Propose(ctx context.Context, params ProposeSessionParams) (session Session, err error) {
	if err = s.ready(); err != nil {
		return Session{}, err
	}

	requester := params.Principal.Username
	with := strings.TrimSpace(params.With)
	logger := s.loggerWith(ctx, "Propose", "username", requester, "with", with)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session proposal failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.SessionProposed()
		logger.With("session_id", session.ID).InfoContext(ctx, "session proposed")
	}()

	if requester == "" {
		return Session{}, ErrNotLoggedIn
	}

	candidate := Session{
		Participants: []string{requester, with},
		Date:         strings.TrimSpace(params.Date),
		Start:        strings.TrimSpace(params.Start),
		End:          strings.TrimSpace(params.End),
		Status:       scheduler.StatusProposed,
	}

	vErr := &ValidationError{}
	vErr.required("with", with)
	vErr.required("date", candidate.Date)
	vErr.required("start", candidate.Start)
	vErr.required("end", candidate.End)
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	if err = s.ensureParticipants(ctx, requester, with); err != nil {
		return Session{}, err
	}
	if with == requester {
		return Session{}, ErrSelfProposal
	}

	createdAt := s.now()
	candidate.CreatedAt = createdAt
	candidate.UpdatedAt = createdAt

	session, err = s.sessions.CreateSession(ctx, candidate)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Session{}, ErrUnknownUser
		}
		return Session{}, err
	}
	return session, nil
}

// Confirm moves a Proposed session to Confirmed after checking that neither
// participant holds an overlapping confirmed session.
func (s *SessionService) Confirm(ctx context.Context, principal Principal, id int64) (session Session, err error) {
	if err = s.ready(); err != nil {
		return Session{}, err
	}

	logger := s.loggerWith(ctx, "Confirm", "username", principal.Username, "session_id", id)
	defer func() {
		s.metrics.SessionTransition(scheduler.StatusConfirmed, outcomeLabel(err))
		if err != nil {
			if errors.Is(err, ErrSchedulingConflict) {
				s.metrics.ConflictDetected()
			}
			logger.ErrorContext(ctx, "session confirmation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session confirmed")
	}()

	if principal.Username == "" {
		return Session{}, ErrNotLoggedIn
	}

	if session, err = s.authorizedSession(ctx, principal, id); err != nil {
		return Session{}, err
	}

	unlock := s.locks.lock(session.Participants...)
	defer unlock()

	// Re-read under the participant locks; a concurrent confirm may have won.
	if session, err = s.loadSession(ctx, id); err != nil {
		return Session{}, err
	}

	if session.Status == scheduler.StatusConfirmed {
		return Session{}, ErrAlreadyConfirmed
	}
	if err = scheduler.Transition(session.Status, scheduler.StatusConfirmed); err != nil {
		return Session{}, err
	}

	existing := make(map[string][]scheduler.Session, len(session.Participants))
	for _, participant := range session.Participants {
		var owned []Session
		if owned, err = s.sessionsOf(ctx, participant); err != nil {
			return Session{}, err
		}
		existing[participant] = toSchedulerSessions(owned)
	}

	if conflict, found := scheduler.DetectConflict(toSchedulerSession(session), existing); found {
		return Session{}, &SchedulingConflictError{
			SessionID:            session.ID,
			ConflictingSessionID: conflict.WithSessionID,
			Participant:          conflict.Participant,
		}
	}

	session, err = s.sessions.UpdateSessionStatus(ctx, id, scheduler.StatusConfirmed, s.now())
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}
	return session, nil
}

// Reject moves a Proposed session to Rejected.
func (s *SessionService) Reject(ctx context.Context, principal Principal, id int64) (session Session, err error) {
	if err = s.ready(); err != nil {
		return Session{}, err
	}

	logger := s.loggerWith(ctx, "Reject", "username", principal.Username, "session_id", id)
	defer func() {
		s.metrics.SessionTransition(scheduler.StatusRejected, outcomeLabel(err))
		if err != nil {
			logger.ErrorContext(ctx, "session rejection failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session rejected")
	}()

	if principal.Username == "" {
		return Session{}, ErrNotLoggedIn
	}

	if session, err = s.authorizedSession(ctx, principal, id); err != nil {
		return Session{}, err
	}

	unlock := s.locks.lock(session.Participants...)
	defer unlock()

	if session, err = s.loadSession(ctx, id); err != nil {
		return Session{}, err
	}
	if err = scheduler.Transition(session.Status, scheduler.StatusRejected); err != nil {
		return Session{}, err
	}

	session, err = s.sessions.UpdateSessionStatus(ctx, id, scheduler.StatusRejected, s.now())
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}
	return session, nil
}

// Get returns the session with the given identifier.
func (s *SessionService) Get(ctx context.Context, id int64) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	return s.loadSession(ctx, id)
}

// ListSessionIDs returns the identifiers username participates in, in creation order.
func (s *SessionService) ListSessionIDs(ctx context.Context, username string) ([]int64, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids, err := s.sessions.ListSessionIDs(ctx, username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return ids, nil
}

// ListSessions resolves every session the acting user participates in.
func (s *SessionService) ListSessions(ctx context.Context, principal Principal) ([]Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if principal.Username == "" {
		return nil, ErrNotLoggedIn
	}
	return s.sessionsOf(ctx, principal.Username)
}

func (s *SessionService) sessionsOf(ctx context.Context, username string) ([]Session, error) {
	ids, err := s.ListSessionIDs(ctx, username)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.loadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *SessionService) authorizedSession(ctx context.Context, principal Principal, id int64) (Session, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !session.HasParticipant(principal.Username) {
		return Session{}, ErrNotAuthorized
	}
	return session, nil
}

func (s *SessionService) loadSession(ctx context.Context, id int64) (Session, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}
	return session, nil
}

func (s *SessionService) ensureParticipants(ctx context.Context, requester, with string) error {
	if s.users == nil {
		return nil
	}
	missing, err := s.users.MissingUsernames(ctx, []string{requester, with})
	if err != nil {
		return err
	}
	for _, name := range missing {
		if name == requester {
			return ErrUserNotFound
		}
	}
	if len(missing) > 0 {
		return ErrUnknownUser
	}
	return nil
}

func toSchedulerSession(session Session) scheduler.Session {
	participants := make([]string, len(session.Participants))
	copy(participants, session.Participants)
	return scheduler.Session{
		ID:           session.ID,
		Participants: participants,
		Date:         session.Date,
		Start:        session.Start,
		End:          session.End,
		Status:       session.Status,
	}
}

func toSchedulerSessions(sessions []Session) []scheduler.Session {
	out := make([]scheduler.Session, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSchedulerSession(session))
	}
	return out
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
