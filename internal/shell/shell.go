// Package shell implements the interactive line-oriented front end. The shell
// owns the logged-in user and passes it explicitly to every service call.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/logging"
)

const (
	prompt         = "> "
	clearSequence  = "\033[H\033[2J"
	unknownCommand = "Unknown command or wrong arguments. Type 'help' for commands."
)

type authService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	ValidateToken(ctx context.Context, token string) (application.Principal, error)
	RevokeToken(ctx context.Context, token string) error
}

type profileService interface {
	AddCourse(ctx context.Context, principal application.Principal, course string) error
	RemoveCourse(ctx context.Context, principal application.Principal, course string) error
	ListCourses(ctx context.Context, principal application.Principal) ([]string, error)
	AddAvailability(ctx context.Context, principal application.Principal, input application.AvailabilityInput) (application.AvailabilityWindow, error)
	RemoveAvailability(ctx context.Context, principal application.Principal, date, start string) (application.AvailabilityWindow, error)
	ListAvailability(ctx context.Context, principal application.Principal) ([]application.AvailabilityWindow, error)
	SearchUsersByCourse(ctx context.Context, course string) ([]string, error)
}

type sessionService interface {
	Propose(ctx context.Context, params application.ProposeSessionParams) (application.Session, error)
	Confirm(ctx context.Context, principal application.Principal, id int64) (application.Session, error)
	Reject(ctx context.Context, principal application.Principal, id int64) (application.Session, error)
	ListSessions(ctx context.Context, principal application.Principal) ([]application.Session, error)
}

type matchService interface {
	SuggestMatches(ctx context.Context, principal application.Principal) ([]string, error)
}

// Services groups the application services the shell drives.
type Services struct {
	Auth     authService
	Profiles profileService
	Sessions sessionService
	Matches  matchService
}

type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, args []string) error
}

// Shell reads commands from an input stream and writes human readable results.
type Shell struct {
	services Services
	in       *bufio.Scanner
	out      io.Writer
	logger   *slog.Logger
	commands map[string]command
	order    []string

	token    string
	username string
}

// New returns a shell reading from in and writing to out.
func New(services Services, in io.Reader, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Shell{
		services: services,
		in:       bufio.NewScanner(in),
		out:      out,
		logger:   logger.With("component", "shell"),
	}
	s.registerCommands()
	return s
}

// Run prints the welcome banner and executes lines until exit, end of input
// or context cancellation. A cancelled context is only observed between lines.
func (s *Shell) Run(ctx context.Context) error {
	s.println("Welcome to the Study Scheduler CLI App!")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.printf("%s", prompt)
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return fmt.Errorf("shell: read input: %w", err)
			}
			s.println("")
			return nil
		}
		if exit := s.Execute(ctx, s.in.Text()); exit {
			return nil
		}
	}
}

// Execute runs a single command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "exit", "quit":
		s.println("Goodbye!")
		return true
	case "help":
		s.printHelp()
		return false
	case "clear":
		s.printf("%s", clearSequence)
		return false
	}

	cmd, ok := s.commands[name]
	if !ok || len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		s.println(unknownCommand)
		return false
	}

	logger := s.logger.With("command", name, "username", s.username)
	ctx = logging.ContextWithLogger(ctx, logger)
	if err := cmd.run(ctx, args); err != nil {
		logger.DebugContext(ctx, "command failed", "error", err, "error_kind", application.ErrorKind(err))
		s.println(describe(err))
		return false
	}
	logger.DebugContext(ctx, "command completed")
	return false
}

func (s *Shell) registerCommands() {
	s.commands = make(map[string]command)
	add := func(name, usage string, minArgs, maxArgs int, run func(context.Context, []string) error) {
		s.commands[name] = command{usage: usage, minArgs: minArgs, maxArgs: maxArgs, run: run}
		s.order = append(s.order, name)
	}

	add("register", "register [username] [password]", 2, 2, s.register)
	add("login", "login [username] [password]", 2, 2, s.login)
	add("logout", "logout", 0, 0, s.logout)
	add("add_course", "add_course [course_name]", 1, 1, s.addCourse)
	add("remove_course", "remove_course [course_name]", 1, 1, s.removeCourse)
	add("list_courses", "list_courses", 0, 0, s.listCourses)
	add("add_availability", "add_availability [date] [start] [end]", 3, 3, s.addAvailability)
	add("remove_availability", "remove_availability [date] [start] [end]", 2, 3, s.removeAvailability)
	add("list_availability", "list_availability", 0, 0, s.listAvailability)
	add("search", "search [course_name]", 1, 1, s.search)
	add("suggest_matches", "suggest_matches", 0, 0, s.suggestMatches)
	add("propose_session", "propose_session [username] [date] [start] [end]", 4, 4, s.proposeSession)
	add("confirm_session", "confirm_session [session_id]", 1, 1, s.confirmSession)
	add("reject_session", "reject_session [session_id]", 1, 1, s.rejectSession)
	add("view_sessions", "view_sessions", 0, 0, s.viewSessions)
}

func (s *Shell) printHelp() {
	s.println("Available commands:")
	for _, name := range s.order {
		s.println(s.commands[name].usage)
	}
	s.println("help")
	s.println("clear")
	s.println("exit")
}

// principal resolves the stored login token. An expired or revoked token
// logs the shell out.
func (s *Shell) principal(ctx context.Context) application.Principal {
	if s.token == "" {
		return application.Principal{}
	}
	p, err := s.services.Auth.ValidateToken(ctx, s.token)
	if err != nil {
		s.token, s.username = "", ""
		return application.Principal{}
	}
	return p
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(line string) {
	_, _ = fmt.Fprintln(s.out, line)
}

func parseSessionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidSessionID
	}
	return id, nil
}

var errInvalidSessionID = errors.New("shell: invalid session id")

// describe renders an error as a line of shell output.
func describe(err error) string {
	var conflict *application.SchedulingConflictError
	if errors.As(err, &conflict) {
		return fmt.Sprintf("Cannot confirm session. It overlaps with session %d for user %s.", conflict.ConflictingSessionID, conflict.Participant)
	}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		fields := make([]string, 0, len(vErr.FieldErrors))
		for field := range vErr.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		messages := make([]string, 0, len(fields))
		for _, field := range fields {
			messages = append(messages, vErr.FieldErrors[field])
		}
		return "Invalid input: " + strings.Join(messages, "; ") + "."
	}

	switch {
	case errors.Is(err, errInvalidSessionID):
		return "Session ID must be a positive number."
	case errors.Is(err, application.ErrNotLoggedIn):
		return "Please login first."
	case errors.Is(err, application.ErrDuplicateUsername):
		return "Username already exists."
	case errors.Is(err, application.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, application.ErrAuthenticationFailed):
		return "Incorrect password."
	case errors.Is(err, application.ErrUnknownUser):
		return "That user does not exist."
	case errors.Is(err, application.ErrSelfProposal):
		return "Cannot propose session with yourself."
	case errors.Is(err, application.ErrSessionNotFound):
		return "Session not found."
	case errors.Is(err, application.ErrNotAuthorized):
		return "You are not a participant of this session."
	case errors.Is(err, application.ErrAlreadyConfirmed):
		return "Session already confirmed."
	case errors.Is(err, application.ErrInvalidTransition):
		return "Session can no longer change status."
	case errors.Is(err, application.ErrCourseAlreadyEnrolled):
		return "Course already exists in profile."
	case errors.Is(err, application.ErrCourseNotFound):
		return "Course not found in profile."
	case errors.Is(err, application.ErrAvailabilitySlotNotFound):
		return "Availability slot not found."
	default:
		return "Error: " + err.Error()
	}
}
