package application

import (
	"time"

	"github.com/example/study-scheduler/internal/scheduler"
)

// Principal identifies the acting user for a service call.
type Principal struct {
	Username string
}

// User represents a registered student exposed by the application services.
type User struct {
	Username     string
	Courses      []string
	Availability []AvailabilityWindow
	SessionIDs   []int64
	CreatedAt    time.Time
}

// UserCredentials pairs a user with the stored credential hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// AvailabilityWindow is a free-time window. Date, Start and End are opaque
// strings compared lexicographically.
type AvailabilityWindow struct {
	Date  string
	Start string
	End   string
}

// Session is a pairwise study session.
type Session struct {
	ID           int64
	Participants []string
	Date         string
	Start        string
	End          string
	Status       scheduler.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether username takes part in the session.
func (s Session) HasParticipant(username string) bool {
	for _, p := range s.Participants {
		if p == username {
			return true
		}
	}
	return false
}

// LoginToken is a bearer token issued on authentication.
type LoginToken struct {
	Token     string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// RegisterParams captures the data required to register a user.
type RegisterParams struct {
	Username string
	Password string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User  User
	Token LoginToken
}

// AvailabilityInput captures caller provided window fields.
type AvailabilityInput struct {
	Date  string
	Start string
	End   string
}

// ProposeSessionParams wraps the data required to propose a session.
type ProposeSessionParams struct {
	Principal Principal
	With      string
	Date      string
	Start     string
	End       string
}
