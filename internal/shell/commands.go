package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/study-scheduler/internal/application"
)

func (s *Shell) register(ctx context.Context, args []string) error {
	if _, err := s.services.Auth.Register(ctx, application.RegisterParams{Username: args[0], Password: args[1]}); err != nil {
		return err
	}
	s.println("User registered successfully.")
	return nil
}

// login replaces any current login; the previous token is revoked.
func (s *Shell) login(ctx context.Context, args []string) error {
	result, err := s.services.Auth.Authenticate(ctx, application.AuthenticateParams{Username: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	if s.token != "" {
		if err := s.services.Auth.RevokeToken(ctx, s.token); err != nil {
			s.logger.DebugContext(ctx, "previous token not revoked", "username", s.username, "error", err, "error_kind", application.ErrorKind(err))
		}
	}
	s.token, s.username = result.Token.Token, result.User.Username
	s.printf("Logged in as %s\n", s.username)
	return nil
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	if s.token != "" {
		if err := s.services.Auth.RevokeToken(ctx, s.token); err != nil && !errors.Is(err, application.ErrNotLoggedIn) {
			return err
		}
	}
	s.token, s.username = "", ""
	s.println("Logged out.")
	return nil
}

func (s *Shell) addCourse(ctx context.Context, args []string) error {
	if err := s.services.Profiles.AddCourse(ctx, s.principal(ctx), args[0]); err != nil {
		return err
	}
	s.printf("Course added: %s\n", args[0])
	return nil
}

func (s *Shell) removeCourse(ctx context.Context, args []string) error {
	if err := s.services.Profiles.RemoveCourse(ctx, s.principal(ctx), args[0]); err != nil {
		return err
	}
	s.printf("Course removed: %s\n", args[0])
	return nil
}

func (s *Shell) listCourses(ctx context.Context, _ []string) error {
	principal := s.principal(ctx)
	courses, err := s.services.Profiles.ListCourses(ctx, principal)
	if err != nil {
		return err
	}
	s.printf("Courses for %s:\n", principal.Username)
	for _, course := range courses {
		s.printf("- %s\n", course)
	}
	return nil
}

func (s *Shell) addAvailability(ctx context.Context, args []string) error {
	window, err := s.services.Profiles.AddAvailability(ctx, s.principal(ctx), application.AvailabilityInput{
		Date:  args[0],
		Start: args[1],
		End:   args[2],
	})
	if err != nil {
		return err
	}
	s.printf("Availability added: %s\n", formatWindow(window))
	return nil
}

// removeAvailability accepts an optional trailing end time; windows are
// matched on date and start only.
func (s *Shell) removeAvailability(ctx context.Context, args []string) error {
	removed, err := s.services.Profiles.RemoveAvailability(ctx, s.principal(ctx), args[0], args[1])
	if err != nil {
		return err
	}
	s.printf("Availability removed for %s at %s\n", removed.Date, removed.Start)
	return nil
}

func (s *Shell) listAvailability(ctx context.Context, _ []string) error {
	principal := s.principal(ctx)
	windows, err := s.services.Profiles.ListAvailability(ctx, principal)
	if err != nil {
		return err
	}
	s.printf("Availability for %s:\n", principal.Username)
	for _, w := range windows {
		s.println(formatWindow(w))
	}
	return nil
}

func (s *Shell) search(ctx context.Context, args []string) error {
	usernames, err := s.services.Profiles.SearchUsersByCourse(ctx, args[0])
	if err != nil {
		return err
	}
	s.printf("Students enrolled in %s:\n", args[0])
	for _, username := range usernames {
		s.printf("- %s\n", username)
	}
	return nil
}

func (s *Shell) suggestMatches(ctx context.Context, _ []string) error {
	matches, err := s.services.Matches.SuggestMatches(ctx, s.principal(ctx))
	if err != nil {
		return err
	}
	s.println("Suggested matches based on your courses and availability:")
	for _, username := range matches {
		s.printf("- %s\n", username)
	}
	return nil
}

func (s *Shell) proposeSession(ctx context.Context, args []string) error {
	session, err := s.services.Sessions.Propose(ctx, application.ProposeSessionParams{
		Principal: s.principal(ctx),
		With:      args[0],
		Date:      args[1],
		Start:     args[2],
		End:       args[3],
	})
	if errors.Is(err, application.ErrUnknownUser) {
		s.printf("User %s does not exist.\n", args[0])
		return nil
	}
	if err != nil {
		return err
	}
	s.printf("Session proposed with %s. Session ID: %d\n", args[0], session.ID)
	return nil
}

func (s *Shell) confirmSession(ctx context.Context, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	if _, err := s.services.Sessions.Confirm(ctx, s.principal(ctx), id); err != nil {
		return err
	}
	s.printf("Session %d confirmed.\n", id)
	return nil
}

func (s *Shell) rejectSession(ctx context.Context, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	if _, err := s.services.Sessions.Reject(ctx, s.principal(ctx), id); err != nil {
		return err
	}
	s.printf("Session %d rejected.\n", id)
	return nil
}

func (s *Shell) viewSessions(ctx context.Context, _ []string) error {
	sessions, err := s.services.Sessions.ListSessions(ctx, s.principal(ctx))
	if err != nil {
		return err
	}
	s.println("Your sessions:")
	for _, session := range sessions {
		s.printf("Session ID: %d\nDate: %s\nParticipants: %s\nStatus: %s\n-----\n",
			session.ID,
			formatWindow(application.AvailabilityWindow{Date: session.Date, Start: session.Start, End: session.End}),
			strings.Join(session.Participants, " "),
			session.Status.String(),
		)
	}
	return nil
}

func formatWindow(w application.AvailabilityWindow) string {
	return fmt.Sprintf("%s %s-%s", w.Date, w.Start, w.End)
}
