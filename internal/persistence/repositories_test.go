package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/study-scheduler/internal/persistence"
	"github.com/example/study-scheduler/internal/persistence/memory"
	"github.com/example/study-scheduler/internal/testfixtures"
)

type repositories interface {
	persistence.UserRepository
	persistence.SessionRepository
	persistence.TokenRepository
}

func newRepositories(t *testing.T) repositories {
	t.Helper()
	return memory.New()
}

func seedUsers(t *testing.T, repo persistence.UserRepository, names ...string) {
	t.Helper()
	for _, name := range names {
		user := persistence.User{Username: name, PasswordHash: "hash-" + name, CreatedAt: testfixtures.ReferenceTime()}
		if err := repo.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates and lists users", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "bob", "alice")

		fetched, err := repo.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if fetched.PasswordHash != "hash-alice" || !fetched.CreatedAt.Equal(testfixtures.ReferenceTime()) {
			t.Fatalf("unexpected user data: %#v", fetched)
		}

		users, err := repo.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected two users, got %#v", users)
		}

		if _, err := repo.GetUser(ctx, "mallory"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("enforces unique usernames", func(t *testing.T) {
		t.Parallel()

		repo := newRepositories(t)
		seedUsers(t, repo, "alice")

		err := repo.CreateUser(context.Background(), persistence.User{Username: "alice", PasswordHash: "other"})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
		fetched, _ := repo.GetUser(context.Background(), "alice")
		if fetched.PasswordHash != "hash-alice" {
			t.Fatalf("duplicate registration overwrote the account: %#v", fetched)
		}
	})

	t.Run("maintains course lists", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "alice")

		for _, course := range []string{"Math", "CS101", "Physics"} {
			if err := repo.AddCourse(ctx, "alice", course); err != nil {
				t.Fatalf("AddCourse(%s) failed: %v", course, err)
			}
		}
		if err := repo.AddCourse(ctx, "alice", "Math"); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected duplicate course error, got %v", err)
		}
		if err := repo.RemoveCourse(ctx, "alice", "CS101"); err != nil {
			t.Fatalf("RemoveCourse failed: %v", err)
		}
		if err := repo.RemoveCourse(ctx, "alice", "CS101"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected missing course error, got %v", err)
		}
		if err := repo.AddCourse(ctx, "nobody", "Math"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected missing user error, got %v", err)
		}

		fetched, _ := repo.GetUser(ctx, "alice")
		if !slices.Equal(fetched.Courses, []string{"Math", "Physics"}) {
			t.Fatalf("unexpected courses %v", fetched.Courses)
		}
	})

	t.Run("appends and removes availability windows", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "alice")

		windows := []persistence.AvailabilityWindow{
			{Date: "2024-05-01", Start: "09:00", End: "10:00"},
			{Date: "2024-05-01", Start: "09:00", End: "11:00"},
			{Date: "2024-05-02", Start: "13:00", End: "15:00"},
		}
		for _, w := range windows {
			if err := repo.AppendAvailability(ctx, "alice", w); err != nil {
				t.Fatalf("AppendAvailability failed: %v", err)
			}
		}

		removed, err := repo.RemoveAvailability(ctx, "alice", "2024-05-01", "09:00")
		if err != nil {
			t.Fatalf("RemoveAvailability failed: %v", err)
		}
		if removed != windows[0] {
			t.Fatalf("expected first matching window to be removed, got %#v", removed)
		}

		fetched, _ := repo.GetUser(ctx, "alice")
		if !slices.Equal(fetched.Availability, windows[1:]) {
			t.Fatalf("unexpected remaining windows %#v", fetched.Availability)
		}

		if _, err := repo.RemoveAvailability(ctx, "alice", "2024-06-01", "09:00"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Parallel()

	t.Run("assigns identifiers and indexes participants", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "alice", "bob", "carol")

		now := testfixtures.ReferenceTime()
		first, err := repo.CreateSession(ctx, persistence.Session{
			Participants: []string{"alice", "bob"},
			Date:         "2024-05-01", Start: "10:00", End: "11:00",
			Status: "proposed", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		second, err := repo.CreateSession(ctx, persistence.Session{
			Participants: []string{"carol", "alice"},
			Date:         "2024-05-01", Start: "10:30", End: "11:30",
			Status: "proposed", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if first.ID != 1 || second.ID != 2 {
			t.Fatalf("expected identifiers 1 and 2, got %d and %d", first.ID, second.ID)
		}

		tests := map[string][]int64{
			"alice": {1, 2},
			"bob":   {1},
			"carol": {2},
		}
		for username, want := range tests {
			got, err := repo.ListSessionIDs(ctx, username)
			if err != nil {
				t.Fatalf("ListSessionIDs(%s) failed: %v", username, err)
			}
			if !slices.Equal(got, want) {
				t.Fatalf("ListSessionIDs(%s) = %v, want %v", username, got, want)
			}
		}
	})

	t.Run("rejects unknown participants without consuming an identifier", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "alice")

		_, err := repo.CreateSession(ctx, persistence.Session{Participants: []string{"alice", "ghost"}, Status: "proposed"})
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
		ids, _ := repo.ListSessionIDs(ctx, "alice")
		if len(ids) != 0 {
			t.Fatalf("failed creation must not index the session, got %v", ids)
		}

		seedUsers(t, repo, "bob")
		created, err := repo.CreateSession(ctx, persistence.Session{Participants: []string{"alice", "bob"}, Status: "proposed"})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if created.ID != 1 {
			t.Fatalf("expected identifier 1, got %d", created.ID)
		}
	})

	t.Run("updates status", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		repo := newRepositories(t)
		seedUsers(t, repo, "alice", "bob")

		now := testfixtures.ReferenceTime()
		created, err := repo.CreateSession(ctx, persistence.Session{
			Participants: []string{"alice", "bob"}, Status: "proposed", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		later := now.Add(time.Hour)
		updated, err := repo.UpdateSessionStatus(ctx, created.ID, "confirmed", later)
		if err != nil {
			t.Fatalf("UpdateSessionStatus failed: %v", err)
		}
		if updated.Status != "confirmed" || !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(now) {
			t.Fatalf("unexpected updated session %#v", updated)
		}

		fetched, err := repo.GetSession(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if fetched.Status != "confirmed" {
			t.Fatalf("status not persisted: %#v", fetched)
		}

		if _, err := repo.UpdateSessionStatus(ctx, 99, "confirmed", later); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepositories(t)
	seedUsers(t, repo, "alice")

	now := testfixtures.ReferenceTime()
	for _, token := range []persistence.LoginToken{
		{Token: "token-1", Username: "alice", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Token: "token-2", Username: "alice", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
		{Token: "token-3", Username: "alice", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
	} {
		if err := repo.CreateToken(ctx, token); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
	}
	if err := repo.CreateToken(ctx, persistence.LoginToken{Token: "token-1"}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
	}

	revokedAt := now.Add(time.Minute)
	revoked, err := repo.RevokeToken(ctx, "token-3", revokedAt)
	if err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revoked timestamp, got %#v", revoked.RevokedAt)
	}

	if err := repo.DeleteExpiredTokens(ctx, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredTokens failed: %v", err)
	}

	tests := map[string]error{
		"token-1": persistence.ErrNotFound,
		"token-2": nil,
		"token-3": persistence.ErrNotFound,
	}
	for token, want := range tests {
		_, err := repo.GetToken(ctx, token)
		if !errors.Is(err, want) {
			t.Fatalf("GetToken(%s) error = %v, want %v", token, err, want)
		}
	}
}
