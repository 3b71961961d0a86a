package persistence

import (
	"context"
	"time"
)

// UserRepository stores user accounts and their course and availability lists.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	AddCourse(ctx context.Context, username, course string) error
	RemoveCourse(ctx context.Context, username, course string) error
	AppendAvailability(ctx context.Context, username string, window AvailabilityWindow) error
	RemoveAvailability(ctx context.Context, username, date, start string) (AvailabilityWindow, error)
}

// SessionRepository owns study sessions and the per-user session index.
type SessionRepository interface {
	// CreateSession assigns the next identifier, stores the session and
	// appends the identifier to every participant's index.
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id int64) (Session, error)
	ListSessionIDs(ctx context.Context, username string) ([]int64, error)
	UpdateSessionStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (Session, error)
}

// TokenRepository stores login tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token LoginToken) error
	GetToken(ctx context.Context, token string) (LoginToken, error)
	RevokeToken(ctx context.Context, token string, revokedAt time.Time) (LoginToken, error)
	DeleteExpiredTokens(ctx context.Context, reference time.Time) error
}

// SnapshotStore saves and restores the complete state in one step.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}
