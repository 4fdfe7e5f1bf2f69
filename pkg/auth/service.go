package auth

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/storage"
)

// SessionCookieName is the cookie carrying the session token when the
// client opts for cookie transport instead of the Authorization header.
const SessionCookieName = "labtrack_session"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ServiceConfig tunes the auth service.
type ServiceConfig struct {
	MinPasswordLength int
}

// Service composes the user store, session store and password hasher into
// the register / login / logout / validate operations. All infrastructure
// failures are translated into the package's error taxonomy here; callers
// never see raw storage errors.
type Service struct {
	users    *UserStore
	sessions *SessionStore
	hasher   *PasswordHasher
	metrics  *observability.Metrics

	minPasswordLength int
}

// NewService creates the auth service. metrics may be nil.
func NewService(users *UserStore, sessions *SessionStore, hasher *PasswordHasher, metrics *observability.Metrics, cfg ServiceConfig) *Service {
	minLen := cfg.MinPasswordLength
	if minLen < 8 {
		minLen = 8
	}
	return &Service{
		users:             users,
		sessions:          sessions,
		hasher:            hasher,
		metrics:           metrics,
		minPasswordLength: minLen,
	}
}

// Sessions exposes the underlying session store for middleware and ops
// tooling.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// Users exposes the underlying user store for admin surfaces.
func (s *Service) Users() *UserStore {
	return s.users
}

// Register creates a user and an initial session. Fails with ErrValidation
// on malformed input and ErrEmailTaken on a duplicate normalized email.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	if err := s.validateRegistration(name, email, password); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	user, err := s.users.Create(ctx, strings.TrimSpace(name), email, hash, RoleUser)
	if err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Create(ctx, user.ID, false)
	if err != nil {
		return nil, "", err
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}

	return user, token, nil
}

// Login verifies credentials and creates a session. An unknown email and a
// wrong password produce the same ErrInvalidCredentials. On success the
// user's lastLogin is updated.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == storage.ErrNotFound {
			s.countLogin("failure")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.countLogin("failure")
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLogin = &now

	token, err := s.sessions.Create(ctx, user.ID, rememberMe)
	if err != nil {
		return nil, "", err
	}

	s.countLogin("success")
	return user, token, nil
}

// Logout destroys the session. Idempotent; logging out an absent or expired
// token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// ValidateSession resolves a token to its SessionInfo, performing lazy
// cleanup of expired and orphaned sessions.
func (s *Service) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	info, err := s.sessions.Validate(ctx, token)
	if s.metrics != nil {
		switch err {
		case nil:
			s.metrics.SessionValidations.WithLabelValues("valid").Inc()
		case ErrSessionExpired:
			s.metrics.SessionValidations.WithLabelValues("expired").Inc()
		case ErrNoSession:
			s.metrics.SessionValidations.WithLabelValues("no_session").Inc()
		case ErrUserMissing:
			s.metrics.SessionValidations.WithLabelValues("user_missing").Inc()
		}
	}
	return info, err
}

// RequireAuth extracts the bearer token from the request (Authorization
// header or session cookie) and validates it. All session failures collapse
// to ErrUnauthenticated.
func (s *Service) RequireAuth(r *http.Request) (*SessionInfo, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	info, err := s.ValidateSession(r.Context(), token)
	if err != nil {
		switch err {
		case ErrNoSession, ErrSessionExpired, ErrUserMissing:
			return nil, ErrUnauthenticated
		default:
			return nil, err
		}
	}
	return info, nil
}

// RequireAdmin is RequireAuth plus a role check.
func (s *Service) RequireAdmin(r *http.Request) (*SessionInfo, error) {
	info, err := s.RequireAuth(r)
	if err != nil {
		return nil, err
	}
	if !info.IsAdmin() {
		return nil, ErrForbidden
	}
	return info, nil
}

// ExtractToken pulls the session token from the Authorization header
// ("Bearer <token>") or the session cookie. The header wins when both are
// present.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

func (s *Service) validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if len(password) < s.minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, s.minPasswordLength)
	}
	return nil
}

func (s *Service) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}
