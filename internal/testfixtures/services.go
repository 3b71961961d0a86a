// Package testfixtures wires the application services over an in-memory
// store with a controllable clock, sequential tokens and cheap password
// hashing.
package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/study-scheduler/internal/adapters"
	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/persistence/memory"
)

// CheapArgon2idParams keeps real argon2id hashing fast enough for tests.
var CheapArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ServiceFactory assembles application services with deterministic inputs.
type ServiceFactory struct {
	Clock    *Clock
	Tokens   *IDGenerator
	TokenTTL time.Duration
	Metrics  application.MetricsRecorder
	Logger   *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: a clock at
// ReferenceTime, "token-N" tokens, a one hour TTL and a discarding logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:    NewClock(time.Time{}),
		Tokens:   NewIDGenerator("token"),
		TokenTTL: time.Hour,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithMetrics records service metrics into recorder.
func WithMetrics(recorder application.MetricsRecorder) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Metrics = recorder
	}
}

// WithLogger overrides the discarding default logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services holds the wired services and the store they share.
type Services struct {
	Store    *memory.Store
	Auth     *application.AuthService
	Profiles *application.ProfileService
	Sessions *application.SessionService
	Matches  *application.MatchService
}

// NewServices wires every service over a fresh memory store.
func (f *ServiceFactory) NewServices() Services {
	return f.NewServicesWithStore(memory.New())
}

// NewServicesWithStore wires every service over store.
func (f *ServiceFactory) NewServicesWithStore(store *memory.Store) Services {
	repos := adapters.NewRepositories(store)
	now := f.Clock.NowFunc()
	return Services{
		Store: store,
		Auth: application.NewAuthServiceWithLogger(
			repos.Credentials,
			repos.Tokens,
			application.NewArgon2idHasher(CheapArgon2idParams),
			application.VerifyPassword,
			f.Tokens.NextFunc(),
			now,
			f.TokenTTL,
			f.Logger,
		),
		Profiles: application.NewProfileServiceWithLogger(repos.Profiles, f.Logger),
		Sessions: application.NewSessionServiceWithLogger(repos.Sessions, repos.Directory, f.Metrics, now, f.Logger),
		Matches:  application.NewMatchServiceWithLogger(repos.Profiles, f.Metrics, f.Logger),
	}
}

// UserFixture describes a user to seed together with their profile.
type UserFixture struct {
	Username     string
	Password     string
	Courses      []string
	Availability []application.AvailabilityInput
}

// Seed registers each fixture, fills in its profile and returns a principal
// per username. The password defaults to "pw-<username>".
func (s Services) Seed(tb testing.TB, fixtures ...UserFixture) map[string]application.Principal {
	tb.Helper()
	ctx := context.Background()

	principals := make(map[string]application.Principal, len(fixtures))
	for _, fx := range fixtures {
		password := fx.Password
		if password == "" {
			password = "pw-" + fx.Username
		}
		if _, err := s.Auth.Register(ctx, application.RegisterParams{Username: fx.Username, Password: password}); err != nil {
			tb.Fatalf("register %s: %v", fx.Username, err)
		}
		principal := application.Principal{Username: fx.Username}
		for _, course := range fx.Courses {
			if err := s.Profiles.AddCourse(ctx, principal, course); err != nil {
				tb.Fatalf("add course %s for %s: %v", course, fx.Username, err)
			}
		}
		for _, window := range fx.Availability {
			if _, err := s.Profiles.AddAvailability(ctx, principal, window); err != nil {
				tb.Fatalf("add availability for %s: %v", fx.Username, err)
			}
		}
		principals[fx.Username] = principal
	}
	return principals
}

// Login authenticates username with password and returns the issued token.
func (s Services) Login(tb testing.TB, username, password string) string {
	tb.Helper()
	result, err := s.Auth.Authenticate(context.Background(), application.AuthenticateParams{Username: username, Password: password})
	if err != nil {
		tb.Fatalf("login %s: %v", username, err)
	}
	return result.Token.Token
}
