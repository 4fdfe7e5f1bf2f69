package auth

import (
	"context"
	"time"

	"github.com/mspacademy/labtrack/pkg/storage"
)

const csrfKeyPrefix = "csrf:"

// CSRFGuard issues and validates single-use anti-forgery tokens backed by
// the key-value store. It is an anti-replay gate only: callers must still
// validate the session on every state-changing request.
type CSRFGuard struct {
	store storage.Store
	ttl   time.Duration
}

// NewCSRFGuard creates a guard. A zero ttl selects one hour, the maximum
// sensible unused-token lifetime.
func NewCSRFGuard(store storage.Store, ttl time.Duration) *CSRFGuard {
	if ttl <= 0 || ttl > time.Hour {
		ttl = time.Hour
	}
	return &CSRFGuard{store: store, ttl: ttl}
}

// Issue generates a token. With a scope (typically the session token) the
// record is keyed by the scope, so a new issuance replaces any prior token
// for that scope: one active token per scope. With an empty scope the token
// joins the global pool, keyed by its own value.
func (g *CSRFGuard) Issue(ctx context.Context, scope string) (string, error) {
	token, err := GenerateToken(TokenLength)
	if err != nil {
		return "", err
	}

	key := csrfKeyPrefix + token
	if scope != "" {
		key = csrfKeyPrefix + scope
	}

	if err := g.store.Put(ctx, key, []byte(token), g.ttl); err != nil {
		return "", err
	}

	return token, nil
}

// Validate consumes a token: on match the record is deleted before returning
// true, so a second validation of the same token fails. Mismatch, absence
// and storage errors all return false; this gate never errors past its
// boundary.
func (g *CSRFGuard) Validate(ctx context.Context, token, scope string) bool {
	if token == "" {
		return false
	}

	key := csrfKeyPrefix + token
	if scope != "" {
		key = csrfKeyPrefix + scope
	}

	stored, err := g.store.Get(ctx, key)
	if err != nil {
		return false
	}
	if string(stored) != token {
		return false
	}

	// Single-use: consume before reporting success. Two concurrent
	// validations may both pass the Get; the delete is idempotent and the
	// window is accepted (per-key last-write-wins, no cross-key locking).
	_ = g.store.Delete(ctx, key)
	return true
}
