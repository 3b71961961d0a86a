package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/study-scheduler/internal/persistence"
)

// Store is the in-process owner of users, study sessions and login tokens.
//
// Every exported method is a single atomic update under mu and returns copies,
// so callers never share slices with the store.
type Store struct {
	mu            sync.RWMutex
	users         map[string]persistence.User
	sessions      map[int64]persistence.Session
	tokens        map[string]persistence.LoginToken
	nextSessionID int64
}

// New returns an empty store. Session identifiers start at 1.
func New() *Store {
	return &Store{
		users:         make(map[string]persistence.User),
		sessions:      make(map[int64]persistence.Session),
		tokens:        make(map[string]persistence.LoginToken),
		nextSessionID: 1,
	}
}

// --- UserRepository implementation ---

// CreateUser stores a new user.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("memory: user %s: %w", user.Username, persistence.ErrDuplicate)
	}

	s.users[user.Username] = cloneUser(user)
	return nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, cloneUser(user))
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})

	return users, nil
}

// AddCourse enrols the user in a course. Names are unique per user.
func (s *Store) AddCourse(ctx context.Context, username, course string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	for _, existing := range user.Courses {
		if existing == course {
			return fmt.Errorf("memory: course %s: %w", course, persistence.ErrDuplicate)
		}
	}
	user.Courses = append(cloneStrings(user.Courses), course)
	s.users[username] = user
	return nil
}

// RemoveCourse drops a course from the user's enrolment list.
func (s *Store) RemoveCourse(ctx context.Context, username, course string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	updated := removeString(user.Courses, course)
	if len(updated) == len(user.Courses) {
		return fmt.Errorf("memory: course %s: %w", course, persistence.ErrNotFound)
	}
	user.Courses = updated
	s.users[username] = user
	return nil
}

// AppendAvailability adds a window at the end of the user's list. Duplicates
// and overlapping windows are accepted.
func (s *Store) AppendAvailability(ctx context.Context, username string, window persistence.AvailabilityWindow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	user.Availability = append(cloneWindows(user.Availability), window)
	s.users[username] = user
	return nil
}

// RemoveAvailability removes the first window matching date and start.
func (s *Store) RemoveAvailability(ctx context.Context, username, date, start string) (persistence.AvailabilityWindow, error) {
	if err := ctx.Err(); err != nil {
		return persistence.AvailabilityWindow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return persistence.AvailabilityWindow{}, persistence.ErrNotFound
	}
	for i, window := range user.Availability {
		if window.Date != date || window.Start != start {
			continue
		}
		remaining := make([]persistence.AvailabilityWindow, 0, len(user.Availability)-1)
		remaining = append(remaining, user.Availability[:i]...)
		remaining = append(remaining, user.Availability[i+1:]...)
		user.Availability = remaining
		s.users[username] = user
		return window, nil
	}
	return persistence.AvailabilityWindow{}, fmt.Errorf("memory: availability %s %s: %w", date, start, persistence.ErrNotFound)
}

// --- SessionRepository implementation ---

// CreateSession allocates the next identifier and indexes the session under
// each participant. All participants must exist.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, participant := range session.Participants {
		if _, ok := s.users[participant]; !ok {
			return persistence.Session{}, fmt.Errorf("memory: participant %s: %w", participant, persistence.ErrNotFound)
		}
	}

	session.ID = s.nextSessionID
	s.nextSessionID++
	stored := cloneSession(session)
	s.sessions[stored.ID] = stored

	for _, participant := range stored.Participants {
		user := s.users[participant]
		user.SessionIDs = append(cloneIDs(user.SessionIDs), stored.ID)
		s.users[participant] = user
	}

	return cloneSession(stored), nil
}

// GetSession retrieves a session by identifier.
func (s *Store) GetSession(ctx context.Context, id int64) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// ListSessionIDs returns the identifiers a user participates in, in creation order.
func (s *Store) ListSessionIDs(ctx context.Context, username string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return cloneIDs(user.SessionIDs), nil
}

// UpdateSessionStatus overwrites the status of an existing session.
func (s *Store) UpdateSessionStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (persistence.Session, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session.Status = status
	session.UpdatedAt = updatedAt
	s.sessions[id] = session
	return cloneSession(session), nil
}

// --- TokenRepository implementation ---

// CreateToken stores a login token.
func (s *Store) CreateToken(ctx context.Context, token persistence.LoginToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Token]; ok {
		return persistence.ErrDuplicate
	}
	s.tokens[token.Token] = cloneToken(token)
	return nil
}

// GetToken looks up a login token.
func (s *Store) GetToken(ctx context.Context, token string) (persistence.LoginToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.tokens[token]
	if !ok {
		return persistence.LoginToken{}, persistence.ErrNotFound
	}
	return cloneToken(stored), nil
}

// RevokeToken marks a token as revoked.
func (s *Store) RevokeToken(ctx context.Context, token string, revokedAt time.Time) (persistence.LoginToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token]
	if !ok {
		return persistence.LoginToken{}, persistence.ErrNotFound
	}
	at := revokedAt
	stored.RevokedAt = &at
	s.tokens[token] = stored
	return cloneToken(stored), nil
}

// DeleteExpiredTokens prunes tokens that expired or were revoked before reference.
func (s *Store) DeleteExpiredTokens(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, token := range s.tokens {
		if !token.ExpiresAt.After(reference) {
			delete(s.tokens, key)
			continue
		}
		if token.RevokedAt != nil && token.RevokedAt.Before(reference) {
			delete(s.tokens, key)
		}
	}
	return nil
}

// --- Snapshots ---

// Snapshot copies users and sessions for a load/save-all store. Login tokens
// are not part of the snapshot.
func (s *Store) Snapshot() persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := persistence.Snapshot{
		Users:         make([]persistence.User, 0, len(s.users)),
		Sessions:      make([]persistence.Session, 0, len(s.sessions)),
		NextSessionID: s.nextSessionID,
	}
	for _, user := range s.users {
		snapshot.Users = append(snapshot.Users, cloneUser(user))
	}
	for _, session := range s.sessions {
		snapshot.Sessions = append(snapshot.Sessions, cloneSession(session))
	}
	sort.Slice(snapshot.Users, func(i, j int) bool { return snapshot.Users[i].Username < snapshot.Users[j].Username })
	sort.Slice(snapshot.Sessions, func(i, j int) bool { return snapshot.Sessions[i].ID < snapshot.Sessions[j].ID })
	return snapshot
}

// Restore replaces the store contents with snapshot. The next identifier is
// never lowered below the highest restored session identifier.
func (s *Store) Restore(snapshot persistence.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]persistence.User, len(snapshot.Users))
	s.sessions = make(map[int64]persistence.Session, len(snapshot.Sessions))
	for _, user := range snapshot.Users {
		s.users[user.Username] = cloneUser(user)
	}

	next := snapshot.NextSessionID
	if next < 1 {
		next = 1
	}
	for _, session := range snapshot.Sessions {
		s.sessions[session.ID] = cloneSession(session)
		if session.ID >= next {
			next = session.ID + 1
		}
	}
	s.nextSessionID = next
}

// --- Helpers ---

func cloneUser(user persistence.User) persistence.User {
	return persistence.User{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Courses:      cloneStrings(user.Courses),
		Availability: cloneWindows(user.Availability),
		SessionIDs:   cloneIDs(user.SessionIDs),
		CreatedAt:    user.CreatedAt,
	}
}

func cloneSession(session persistence.Session) persistence.Session {
	clone := session
	clone.Participants = cloneStrings(session.Participants)
	return clone
}

func cloneToken(token persistence.LoginToken) persistence.LoginToken {
	clone := token
	if token.RevokedAt != nil {
		at := *token.RevokedAt
		clone.RevokedAt = &at
	}
	return clone
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneWindows(values []persistence.AvailabilityWindow) []persistence.AvailabilityWindow {
	if values == nil {
		return nil
	}
	out := make([]persistence.AvailabilityWindow, len(values))
	copy(out, values)
	return out
}

func cloneIDs(values []int64) []int64 {
	if values == nil {
		return nil
	}
	out := make([]int64, len(values))
	copy(out, values)
	return out
}

func removeString(values []string, target string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == target {
			continue
		}
		result = append(result, value)
	}
	return result
}
