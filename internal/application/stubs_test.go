package application

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/study-scheduler/internal/persistence"
	"github.com/example/study-scheduler/internal/scheduler"
)

// backendStub is an in-memory stand-in for every repository the services use.
type backendStub struct {
	mu       sync.Mutex
	users    map[string]*UserCredentials
	sessions map[int64]Session
	tokens   map[string]LoginToken
	nextID   int64
}

func newBackendStub() *backendStub {
	return &backendStub{
		users:    make(map[string]*UserCredentials),
		sessions: make(map[int64]Session),
		tokens:   make(map[string]LoginToken),
		nextID:   1,
	}
}

func (b *backendStub) CreateUser(_ context.Context, user User, passwordHash string) (User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[user.Username]; ok {
		return User{}, persistence.ErrDuplicate
	}
	b.users[user.Username] = &UserCredentials{User: user, PasswordHash: passwordHash}
	return user, nil
}

func (b *backendStub) GetUserCredentials(_ context.Context, username string) (UserCredentials, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return *creds, nil
}

func (b *backendStub) GetUser(_ context.Context, username string) (User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return copyUser(creds.User), nil
}

func (b *backendStub) ListUsers(_ context.Context) ([]User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]User, 0, len(b.users))
	for _, creds := range b.users {
		users = append(users, copyUser(creds.User))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (b *backendStub) MissingUsernames(_ context.Context, usernames []string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var missing []string
	for _, name := range usernames {
		if _, ok := b.users[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func (b *backendStub) AddCourse(_ context.Context, username, course string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	if slices.Contains(creds.User.Courses, course) {
		return persistence.ErrDuplicate
	}
	creds.User.Courses = append(creds.User.Courses, course)
	return nil
}

func (b *backendStub) RemoveCourse(_ context.Context, username, course string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	idx := slices.Index(creds.User.Courses, course)
	if idx < 0 {
		return persistence.ErrNotFound
	}
	creds.User.Courses = slices.Delete(creds.User.Courses, idx, idx+1)
	return nil
}

func (b *backendStub) AddAvailability(_ context.Context, username string, window AvailabilityWindow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return persistence.ErrNotFound
	}
	creds.User.Availability = append(creds.User.Availability, window)
	return nil
}

func (b *backendStub) RemoveAvailability(_ context.Context, username, date, start string) (AvailabilityWindow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return AvailabilityWindow{}, persistence.ErrNotFound
	}
	for i, w := range creds.User.Availability {
		if w.Date == date && w.Start == start {
			creds.User.Availability = slices.Delete(creds.User.Availability, i, i+1)
			return w, nil
		}
	}
	return AvailabilityWindow{}, persistence.ErrNotFound
}

func (b *backendStub) CreateSession(_ context.Context, session Session) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range session.Participants {
		if _, ok := b.users[p]; !ok {
			return Session{}, persistence.ErrNotFound
		}
	}
	session.ID = b.nextID
	b.nextID++
	session.Participants = slices.Clone(session.Participants)
	b.sessions[session.ID] = session
	for _, p := range session.Participants {
		b.users[p].User.SessionIDs = append(b.users[p].User.SessionIDs, session.ID)
	}
	return session, nil
}

func (b *backendStub) GetSession(_ context.Context, id int64) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session.Participants = slices.Clone(session.Participants)
	return session, nil
}

func (b *backendStub) ListSessionIDs(_ context.Context, username string) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	creds, ok := b.users[username]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return slices.Clone(creds.User.SessionIDs), nil
}

func (b *backendStub) UpdateSessionStatus(_ context.Context, id int64, status scheduler.Status, updatedAt time.Time) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session.Status = status
	session.UpdatedAt = updatedAt
	b.sessions[id] = session
	return session, nil
}

func (b *backendStub) CreateToken(_ context.Context, token LoginToken) (LoginToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token.Token] = token
	return token, nil
}

func (b *backendStub) GetToken(_ context.Context, token string) (LoginToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.tokens[token]
	if !ok {
		return LoginToken{}, persistence.ErrNotFound
	}
	return stored, nil
}

func (b *backendStub) RevokeToken(_ context.Context, token string, revokedAt time.Time) (LoginToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored, ok := b.tokens[token]
	if !ok {
		return LoginToken{}, persistence.ErrNotFound
	}
	at := revokedAt
	stored.RevokedAt = &at
	b.tokens[token] = stored
	return stored, nil
}

func (b *backendStub) DeleteExpiredTokens(_ context.Context, reference time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, token := range b.tokens {
		if !token.ExpiresAt.After(reference) {
			delete(b.tokens, key)
		}
	}
	return nil
}

func (b *backendStub) seed(usernames ...string) {
	for _, name := range usernames {
		_, _ = b.CreateUser(context.Background(), User{Username: name}, "hash-"+name)
	}
}

func copyUser(user User) User {
	user.Courses = slices.Clone(user.Courses)
	user.Availability = slices.Clone(user.Availability)
	user.SessionIDs = slices.Clone(user.SessionIDs)
	return user
}

// metricsStub counts recorder calls.
type metricsStub struct {
	mu          sync.Mutex
	proposed    int
	transitions map[string]int
	conflicts   int
	candidates  []int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{transitions: make(map[string]int)}
}

func (m *metricsStub) SessionProposed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposed++
}

func (m *metricsStub) SessionTransition(target scheduler.Status, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[string(target)+"/"+outcome]++
}

func (m *metricsStub) ConflictDetected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *metricsStub) MatchCandidates(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, count)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}
