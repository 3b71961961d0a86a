package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/study-scheduler/internal/persistence"
)

// CredentialStore exposes the user registration and credential lookups required by the auth service.
type CredentialStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUserCredentials(ctx context.Context, username string) (UserCredentials, error)
	GetUser(ctx context.Context, username string) (User, error)
}

// TokenRepository captures the persistence interactions for issued login tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token LoginToken) (LoginToken, error)
	GetToken(ctx context.Context, token string) (LoginToken, error)
	RevokeToken(ctx context.Context, token string, revokedAt time.Time) (LoginToken, error)
	DeleteExpiredTokens(ctx context.Context, reference time.Time) error
}

// AuthService coordinates registration, login and logout.
type AuthService struct {
	credentials    CredentialStore
	tokens         TokenRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	tokenTTL       time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, tokens TokenRepository, hash PasswordHasher, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, tokenTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, tokens, hash, verify, tokenGenerator, now, tokenTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, tokens TokenRepository, hash PasswordHasher, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if hash == nil {
		hash = NewArgon2idHasher(DefaultArgon2idParams)
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		tokens:         tokens,
		hashPassword:   hash,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		tokenTTL:       tokenTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates a new user with an empty profile.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Register", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	vErr.required("username", username)
	if strings.ContainsAny(username, " \t\r\n") {
		vErr.add("username", "username must not contain whitespace")
	}
	vErr.required("password", params.Password)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	if hash, err = s.hashPassword(params.Password); err != nil {
		return
	}

	user, err = s.credentials.CreateUser(ctx, User{Username: username, CreatedAt: s.now()}, hash)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrDuplicateUsername
		}
		return
	}
	return
}

// Authenticate validates credentials and issues a new login token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authentication succeeded")
	}()

	if username == "" {
		err = ErrUserNotFound
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUserNotFound
		}
		return
	}

	if verr := s.verifyPassword(creds.PasswordHash, params.Password); verr != nil {
		err = ErrAuthenticationFailed
		return
	}

	now := s.now()
	token := LoginToken{
		Token:     s.tokenGenerator(),
		Username:  creds.User.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}

	if s.tokens != nil {
		if err = s.tokens.DeleteExpiredTokens(ctx, now); err != nil {
			return
		}
		if token, err = s.tokens.CreateToken(ctx, token); err != nil {
			return
		}
	}

	result = AuthenticateResult{User: creds.User, Token: token}
	return
}

// ValidateToken resolves a bearer token to the acting user. Unknown, expired
// and revoked tokens all report ErrNotLoggedIn.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.tokens == nil || s.credentials == nil {
		err = fmt.Errorf("token repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateToken", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "token validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("username", principal.Username).DebugContext(ctx, "token validated")
	}()

	if trimmed == "" {
		err = ErrNotLoggedIn
		return
	}

	var stored LoginToken
	stored, err = s.tokens.GetToken(ctx, trimmed)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotLoggedIn
		}
		return
	}

	if stored.RevokedAt != nil || !stored.ExpiresAt.After(s.now()) {
		err = ErrNotLoggedIn
		return
	}

	if _, err = s.credentials.GetUser(ctx, stored.Username); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotLoggedIn
		}
		return
	}

	principal = Principal{Username: stored.Username}
	return
}

// RevokeToken ends the login identified by token.
func (s *AuthService) RevokeToken(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.tokens == nil {
		return fmt.Errorf("token repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrNotLoggedIn
	}

	logger := s.loggerWith(ctx, "RevokeToken")
	now := s.now()

	if _, err := s.tokens.RevokeToken(ctx, trimmed, now); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotLoggedIn
		}
		logger.ErrorContext(ctx, "failed to revoke token", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.tokens.DeleteExpiredTokens(ctx, now); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired tokens", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "token revoked")
	return nil
}
