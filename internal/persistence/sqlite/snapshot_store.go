package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/study-scheduler/internal/persistence"
)

var _ persistence.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore saves and loads the full scheduler state in one transaction.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore returns a SnapshotStore backed by db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save replaces the stored state with snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	started := time.Now()
	err := s.db.withRetry(ctx, func() error {
		return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return writeSnapshot(ctx, tx, snapshot)
		})
	})
	if err != nil {
		return fmt.Errorf("sqlite: save snapshot: %w", err)
	}
	s.db.logger.InfoContext(ctx, "snapshot saved",
		"users", len(snapshot.Users),
		"sessions", len(snapshot.Sessions),
		"duration", time.Since(started),
	)
	return nil
}

// Load reads the stored state. An empty database yields an empty snapshot
// whose NextSessionID is 1.
func (s *SnapshotStore) Load(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		snapshot, err = readSnapshot(ctx, tx)
		return err
	})
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: load snapshot: %w", err)
	}
	s.db.logger.InfoContext(ctx, "snapshot loaded", "users", len(snapshot.Users), "sessions", len(snapshot.Sessions))
	return snapshot, nil
}

func writeSnapshot(ctx context.Context, tx *sql.Tx, snapshot persistence.Snapshot) error {
	for _, stmt := range []string{
		"DELETE FROM session_participants",
		"DELETE FROM study_sessions",
		"DELETE FROM user_availability",
		"DELETE FROM user_courses",
		"DELETE FROM users",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, user := range snapshot.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
			user.Username, user.PasswordHash, formatTime(user.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert user %s: %w", user.Username, err)
		}
		for i, course := range user.Courses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_courses (username, position, course) VALUES (?, ?, ?)`,
				user.Username, i, course,
			); err != nil {
				return fmt.Errorf("insert course for %s: %w", user.Username, err)
			}
		}
		for i, w := range user.Availability {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_availability (username, position, date, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
				user.Username, i, w.Date, w.Start, w.End,
			); err != nil {
				return fmt.Errorf("insert availability for %s: %w", user.Username, err)
			}
		}
	}

	for _, session := range snapshot.Sessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO study_sessions (id, date, start_time, end_time, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.Date, session.Start, session.End, session.Status,
			formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert session %d: %w", session.ID, err)
		}
		for i, participant := range session.Participants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_participants (session_id, position, username) VALUES (?, ?, ?)`,
				session.ID, i, participant,
			); err != nil {
				return fmt.Errorf("insert participant %s of session %d: %w", participant, session.ID, err)
			}
		}
	}

	next := snapshot.NextSessionID
	if next < 1 {
		next = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scheduler_state (key, value) VALUES ('next_session_id', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, next,
	); err != nil {
		return fmt.Errorf("store next session id: %w", err)
	}
	return nil
}

func readSnapshot(ctx context.Context, tx *sql.Tx) (persistence.Snapshot, error) {
	snapshot := persistence.Snapshot{NextSessionID: 1}

	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM scheduler_state WHERE key = 'next_session_id'`,
	).Scan(&snapshot.NextSessionID); err != nil && err != sql.ErrNoRows {
		return snapshot, err
	}

	users, index, err := readUsers(ctx, tx)
	if err != nil {
		return snapshot, err
	}

	if err := readCourses(ctx, tx, users, index); err != nil {
		return snapshot, err
	}
	if err := readAvailability(ctx, tx, users, index); err != nil {
		return snapshot, err
	}

	sessions, err := readSessions(ctx, tx, users, index)
	if err != nil {
		return snapshot, err
	}

	snapshot.Users = users
	snapshot.Sessions = sessions
	return snapshot, nil
}

func readUsers(ctx context.Context, tx *sql.Tx) ([]persistence.User, map[string]int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT username, password_hash, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var users []persistence.User
	index := make(map[string]int)
	for rows.Next() {
		var (
			user      persistence.User
			createdAt string
		)
		if err := rows.Scan(&user.Username, &user.PasswordHash, &createdAt); err != nil {
			return nil, nil, err
		}
		if user.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, nil, err
		}
		index[user.Username] = len(users)
		users = append(users, user)
	}
	return users, index, rows.Err()
}

func readCourses(ctx context.Context, tx *sql.Tx, users []persistence.User, index map[string]int) error {
	rows, err := tx.QueryContext(ctx, `SELECT username, course FROM user_courses ORDER BY username, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var username, course string
		if err := rows.Scan(&username, &course); err != nil {
			return err
		}
		i := index[username]
		users[i].Courses = append(users[i].Courses, course)
	}
	return rows.Err()
}

func readAvailability(ctx context.Context, tx *sql.Tx, users []persistence.User, index map[string]int) error {
	rows, err := tx.QueryContext(ctx, `SELECT username, date, start_time, end_time FROM user_availability ORDER BY username, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			username string
			w        persistence.AvailabilityWindow
		)
		if err := rows.Scan(&username, &w.Date, &w.Start, &w.End); err != nil {
			return err
		}
		i := index[username]
		users[i].Availability = append(users[i].Availability, w)
	}
	return rows.Err()
}

// readSessions loads sessions in identifier order and rebuilds each user's
// session index from the participant rows.
func readSessions(ctx context.Context, tx *sql.Tx, users []persistence.User, index map[string]int) ([]persistence.Session, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, date, start_time, end_time, status, created_at, updated_at FROM study_sessions ORDER BY id`)
	if err != nil {
		return nil, err
	}

	var sessions []persistence.Session
	position := make(map[int64]int)
	for rows.Next() {
		var (
			session              persistence.Session
			createdAt, updatedAt string
		)
		if err := rows.Scan(&session.ID, &session.Date, &session.Start, &session.End, &session.Status, &createdAt, &updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if session.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, err
		}
		if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		position[session.ID] = len(sessions)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	participants, err := tx.QueryContext(ctx, `SELECT session_id, username FROM session_participants ORDER BY session_id, position`)
	if err != nil {
		return nil, err
	}
	defer participants.Close()

	for participants.Next() {
		var (
			sessionID int64
			username  string
		)
		if err := participants.Scan(&sessionID, &username); err != nil {
			return nil, err
		}
		i := position[sessionID]
		sessions[i].Participants = append(sessions[i].Participants, username)
		if u, ok := index[username]; ok {
			users[u].SessionIDs = append(users[u].SessionIDs, sessionID)
		}
	}
	return sessions, participants.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}
