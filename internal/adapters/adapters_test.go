package adapters_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/example/study-scheduler/internal/adapters"
	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/persistence/memory"
	"github.com/example/study-scheduler/internal/scheduler"
)

func plainHash(password string) (string, error) { return "plain:" + password, nil }

func plainVerify(hash, password string) error {
	if hash != "plain:"+password {
		return application.ErrAuthenticationFailed
	}
	return nil
}

func TestRepositories_EndToEndOverMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) }
	repos := adapters.NewRepositories(memory.New())

	auth := application.NewAuthServiceWithLogger(repos.Credentials, repos.Tokens, plainHash, plainVerify, nil, now, time.Hour, logger)
	profiles := application.NewProfileServiceWithLogger(repos.Profiles, logger)
	sessions := application.NewSessionServiceWithLogger(repos.Sessions, repos.Directory, nil, now, logger)
	matches := application.NewMatchServiceWithLogger(repos.Profiles, nil, logger)

	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := auth.Register(ctx, application.RegisterParams{Username: name, Password: "pw-" + name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	login, err := auth.Authenticate(ctx, application.AuthenticateParams{Username: "alice", Password: "pw-alice"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	alice, err := auth.ValidateToken(ctx, login.Token.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	bob := application.Principal{Username: "bob"}

	first, err := sessions.Propose(ctx, application.ProposeSessionParams{Principal: alice, With: "bob", Date: "2024-01-10", Start: "10:00", End: "11:00"})
	if err != nil || first.ID != 1 {
		t.Fatalf("Propose = %+v, %v", first, err)
	}
	if confirmed, err := sessions.Confirm(ctx, bob, first.ID); err != nil || confirmed.Status != scheduler.StatusConfirmed {
		t.Fatalf("Confirm = %+v, %v", confirmed, err)
	}

	second, _ := sessions.Propose(ctx, application.ProposeSessionParams{Principal: alice, With: "bob", Date: "2024-01-10", Start: "10:30", End: "11:30"})
	_, err = sessions.Confirm(ctx, bob, second.ID)
	var conflict *application.SchedulingConflictError
	if !errors.As(err, &conflict) || conflict.ConflictingSessionID != first.ID {
		t.Fatalf("expected conflict with session 1, got %v", err)
	}

	third, _ := sessions.Propose(ctx, application.ProposeSessionParams{Principal: alice, With: "bob", Date: "2024-01-10", Start: "09:00", End: "10:00"})
	if _, err := sessions.Confirm(ctx, bob, third.ID); err != nil {
		t.Fatalf("expected touching session to confirm, got %v", err)
	}

	if _, err := sessions.Confirm(ctx, bob, 99); !errors.Is(err, application.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := sessions.Confirm(ctx, application.Principal{Username: "carol"}, first.ID); !errors.Is(err, application.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	ids, err := sessions.ListSessionIDs(ctx, "bob")
	if err != nil || !slices.Equal(ids, []int64{1, 2, 3}) {
		t.Fatalf("ListSessionIDs = %v, %v", ids, err)
	}

	carol := application.Principal{Username: "carol"}
	for _, p := range []application.Principal{alice, carol} {
		if err := profiles.AddCourse(ctx, p, "CS101"); err != nil {
			t.Fatalf("AddCourse: %v", err)
		}
		if _, err := profiles.AddAvailability(ctx, p, application.AvailabilityInput{Date: "2024-02-01", Start: "09:00", End: "10:00"}); err != nil {
			t.Fatalf("AddAvailability: %v", err)
		}
	}
	suggested, err := matches.SuggestMatches(ctx, alice)
	if err != nil || !slices.Equal(suggested, []string{"carol"}) {
		t.Fatalf("SuggestMatches = %v, %v", suggested, err)
	}

	if _, err := profiles.RemoveAvailability(ctx, alice, "2024-03-01", "09:00"); !errors.Is(err, application.ErrAvailabilitySlotNotFound) {
		t.Fatalf("expected ErrAvailabilitySlotNotFound, got %v", err)
	}
	if _, err := auth.Register(ctx, application.RegisterParams{Username: "alice", Password: "x"}); !errors.Is(err, application.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}
