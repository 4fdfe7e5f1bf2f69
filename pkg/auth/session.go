package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mspacademy/labtrack/pkg/storage"
)

const sessionKeyPrefix = "session:"

// SessionStore manages session records in the key-value store, keyed by
// session:<token>. The store-level TTL equals the remaining lifetime so
// records a client never revisits still get purged; the expiry timestamp in
// the record is what Validate actually enforces.
type SessionStore struct {
	store storage.Store
	users *UserStore

	sessionTTL    time.Duration
	rememberMeTTL time.Duration

	now func() time.Time
}

// NewSessionStore creates a session store. Zero TTLs select the defaults
// (24h, 30d).
func NewSessionStore(store storage.Store, users *UserStore, sessionTTL, rememberMeTTL time.Duration) *SessionStore {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if rememberMeTTL <= 0 {
		rememberMeTTL = 30 * 24 * time.Hour
	}
	return &SessionStore{
		store:         store,
		users:         users,
		sessionTTL:    sessionTTL,
		rememberMeTTL: rememberMeTTL,
		now:           time.Now,
	}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Create generates a token and persists a session for the user. rememberMe
// selects the long TTL.
func (ss *SessionStore) Create(ctx context.Context, userID string, rememberMe bool) (string, error) {
	token, err := GenerateToken(TokenLength)
	if err != nil {
		return "", err
	}

	ttl := ss.sessionTTL
	if rememberMe {
		ttl = ss.rememberMeTTL
	}

	now := ss.now().UTC()
	session := Session{
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		RememberMe: rememberMe,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := ss.store.Put(ctx, sessionKey(token), data, ttl); err != nil {
		return "", fmt.Errorf("%w: session write: %v", ErrStorageUnavailable, err)
	}

	return token, nil
}

// Validate resolves a token to a SessionInfo. Failure modes:
//
//   - ErrNoSession: no record for the token
//   - ErrSessionExpired: record past its expiry; deleted as a side effect
//   - ErrUserMissing: referenced user gone; session deleted as a side effect
//
// The cleanup deletes are how expired and orphaned sessions are reaped;
// there is no background sweep.
func (ss *SessionStore) Validate(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	data, err := ss.store.Get(ctx, sessionKey(token))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("%w: session read: %v", ErrStorageUnavailable, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupt record; drop it rather than wedging the token forever
		_ = ss.store.Delete(ctx, sessionKey(token))
		return nil, ErrNoSession
	}

	if !ss.now().Before(session.ExpiresAt) {
		_ = ss.store.Delete(ctx, sessionKey(token))
		return nil, ErrSessionExpired
	}

	user, err := ss.users.GetByID(ctx, session.UserID)
	if err != nil {
		if err == storage.ErrNotFound {
			_ = ss.store.Delete(ctx, sessionKey(token))
			return nil, ErrUserMissing
		}
		return nil, err
	}

	return &SessionInfo{
		Token:     token,
		UserID:    user.ID,
		UserEmail: user.Email,
		UserName:  user.Name,
		UserRole:  user.Role,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Destroy deletes a session. Idempotent; destroying an absent token is fine.
func (ss *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := ss.store.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("%w: session delete: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// TTL returns the configured session lifetime for the given remember-me
// choice. Handlers use it to size the session cookie.
func (ss *SessionStore) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return ss.rememberMeTTL
	}
	return ss.sessionTTL
}

// Count returns the number of live session records. Used by the periodic
// stats job feeding the active-sessions gauge.
func (ss *SessionStore) Count(ctx context.Context) (int, error) {
	keys, err := ss.store.List(ctx, sessionKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: session list: %v", ErrStorageUnavailable, err)
	}
	return len(keys), nil
}

// DestroyAllForUser deletes every session belonging to the user. Used by the
// admin CLI when deactivating an account.
func (ss *SessionStore) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	keys, err := ss.store.List(ctx, sessionKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("%w: session list: %v", ErrStorageUnavailable, err)
	}

	deleted := 0
	for _, key := range keys {
		data, err := ss.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.UserID != userID {
			continue
		}
		if err := ss.store.Delete(ctx, key); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
