// Package adapters bridges application service ports to persistence repositories.
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/persistence"
	"github.com/example/study-scheduler/internal/scheduler"
)

// Backend is the full set of repositories a single store provides.
type Backend interface {
	persistence.UserRepository
	persistence.SessionRepository
	persistence.TokenRepository
}

// Repositories bundles every application port backed by one store.
type Repositories struct {
	Credentials *CredentialStore
	Tokens      *TokenRepository
	Profiles    *ProfileRepository
	Sessions    *SessionRepository
	Directory   *UserDirectory
}

// NewRepositories wraps backend in application-facing adapters.
func NewRepositories(backend Backend) Repositories {
	return Repositories{
		Credentials: NewCredentialStore(backend),
		Tokens:      NewTokenRepository(backend),
		Profiles:    NewProfileRepository(backend),
		Sessions:    NewSessionRepository(backend),
		Directory:   NewUserDirectory(backend),
	}
}

// CredentialStore implements application.CredentialStore.
type CredentialStore struct {
	repo persistence.UserRepository
}

func NewCredentialStore(repo persistence.UserRepository) *CredentialStore {
	return &CredentialStore{repo: repo}
}

func (a *CredentialStore) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.Username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *CredentialStore) GetUserCredentials(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *CredentialStore) GetUser(ctx context.Context, username string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

// ProfileRepository implements application.ProfileRepository and application.UserLister.
type ProfileRepository struct {
	repo persistence.UserRepository
}

func NewProfileRepository(repo persistence.UserRepository) *ProfileRepository {
	return &ProfileRepository{repo: repo}
}

func (a *ProfileRepository) GetUser(ctx context.Context, username string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *ProfileRepository) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *ProfileRepository) AddCourse(ctx context.Context, username, course string) error {
	return a.repo.AddCourse(ctx, username, course)
}

func (a *ProfileRepository) RemoveCourse(ctx context.Context, username, course string) error {
	return a.repo.RemoveCourse(ctx, username, course)
}

func (a *ProfileRepository) AddAvailability(ctx context.Context, username string, window application.AvailabilityWindow) error {
	return a.repo.AppendAvailability(ctx, username, persistence.AvailabilityWindow(window))
}

func (a *ProfileRepository) RemoveAvailability(ctx context.Context, username, date, start string) (application.AvailabilityWindow, error) {
	removed, err := a.repo.RemoveAvailability(ctx, username, date, start)
	if err != nil {
		return application.AvailabilityWindow{}, err
	}
	return application.AvailabilityWindow(removed), nil
}

// SessionRepository implements application.SessionRepository.
type SessionRepository struct {
	repo persistence.SessionRepository
}

func NewSessionRepository(repo persistence.SessionRepository) *SessionRepository {
	return &SessionRepository{repo: repo}
}

func (a *SessionRepository) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) GetSession(ctx context.Context, id int64) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) ListSessionIDs(ctx context.Context, username string) ([]int64, error) {
	return a.repo.ListSessionIDs(ctx, username)
}

func (a *SessionRepository) UpdateSessionStatus(ctx context.Context, id int64, status scheduler.Status, updatedAt time.Time) (application.Session, error) {
	stored, err := a.repo.UpdateSessionStatus(ctx, id, string(status), updatedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

// UserDirectory implements application.UserDirectory.
type UserDirectory struct {
	repo persistence.UserRepository
}

func NewUserDirectory(repo persistence.UserRepository) *UserDirectory {
	return &UserDirectory{repo: repo}
}

func (a *UserDirectory) MissingUsernames(ctx context.Context, usernames []string) ([]string, error) {
	var missing []string
	for _, name := range usernames {
		if _, err := a.repo.GetUser(ctx, name); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, name)
				continue
			}
			return nil, err
		}
	}
	return missing, nil
}

// TokenRepository implements application.TokenRepository.
type TokenRepository struct {
	repo persistence.TokenRepository
}

func NewTokenRepository(repo persistence.TokenRepository) *TokenRepository {
	return &TokenRepository{repo: repo}
}

func (a *TokenRepository) CreateToken(ctx context.Context, token application.LoginToken) (application.LoginToken, error) {
	model := persistence.LoginToken{
		Token:     token.Token,
		Username:  token.Username,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		RevokedAt: cloneTime(token.RevokedAt),
	}
	if err := a.repo.CreateToken(ctx, model); err != nil {
		return application.LoginToken{}, err
	}
	return token, nil
}

func (a *TokenRepository) GetToken(ctx context.Context, token string) (application.LoginToken, error) {
	stored, err := a.repo.GetToken(ctx, token)
	if err != nil {
		return application.LoginToken{}, err
	}
	return toApplicationToken(stored), nil
}

func (a *TokenRepository) RevokeToken(ctx context.Context, token string, revokedAt time.Time) (application.LoginToken, error) {
	stored, err := a.repo.RevokeToken(ctx, token, revokedAt)
	if err != nil {
		return application.LoginToken{}, err
	}
	return toApplicationToken(stored), nil
}

func (a *TokenRepository) DeleteExpiredTokens(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredTokens(ctx, reference)
}

func toApplicationUser(model persistence.User) application.User {
	windows := make([]application.AvailabilityWindow, 0, len(model.Availability))
	for _, w := range model.Availability {
		windows = append(windows, application.AvailabilityWindow(w))
	}
	return application.User{
		Username:     model.Username,
		Courses:      append([]string(nil), model.Courses...),
		Availability: windows,
		SessionIDs:   append([]int64(nil), model.SessionIDs...),
		CreatedAt:    model.CreatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	windows := make([]persistence.AvailabilityWindow, 0, len(user.Availability))
	for _, w := range user.Availability {
		windows = append(windows, persistence.AvailabilityWindow(w))
	}
	return persistence.User{
		Username:     user.Username,
		PasswordHash: passwordHash,
		Courses:      append([]string(nil), user.Courses...),
		Availability: windows,
		CreatedAt:    user.CreatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:           model.ID,
		Participants: append([]string(nil), model.Participants...),
		Date:         model.Date,
		Start:        model.Start,
		End:          model.End,
		Status:       scheduler.Status(model.Status),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:           session.ID,
		Participants: append([]string(nil), session.Participants...),
		Date:         session.Date,
		Start:        session.Start,
		End:          session.End,
		Status:       string(session.Status),
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
}

func toApplicationToken(model persistence.LoginToken) application.LoginToken {
	return application.LoginToken{
		Token:     model.Token,
		Username:  model.Username,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
