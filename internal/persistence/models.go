package persistence

import "time"

// User represents a registered student together with their profile data.
type User struct {
	Username     string
	PasswordHash string
	Courses      []string
	Availability []AvailabilityWindow
	SessionIDs   []int64
	CreatedAt    time.Time
}

// AvailabilityWindow is a free-time window on a single date.
type AvailabilityWindow struct {
	Date  string
	Start string
	End   string
}

// Session represents a pairwise study session.
type Session struct {
	ID           int64
	Participants []string
	Date         string
	Start        string
	End          string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginToken represents an authentication token issued to a user.
type LoginToken struct {
	Token     string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Snapshot is the full persisted state used by load/save-all stores.
type Snapshot struct {
	Users         []User
	Sessions      []Session
	NextSessionID int64
}
