package auth

import "errors"

// Sentinel errors forming the failure taxonomy surfaced to callers. The HTTP
// layer maps these to status codes; nothing else crosses the boundary.
var (
	// ErrValidation wraps malformed-input failures (bad email format, short
	// password, missing fields). Mapped to 400.
	ErrValidation = errors.New("validation failed")

	// ErrEmailTaken is returned when registering an email that already has a
	// user. Mapped to 409.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password, deliberately indistinguishable. Mapped to 401.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoSession means the token has no record in the store.
	ErrNoSession = errors.New("no session")

	// ErrSessionExpired means the record existed but its lifetime elapsed.
	// The record is deleted as a side effect of detection.
	ErrSessionExpired = errors.New("session expired")

	// ErrUserMissing means the session referenced a user that no longer
	// exists. The orphaned session is deleted as a side effect.
	ErrUserMissing = errors.New("session user missing")

	// ErrUnauthenticated is the collapsed form of the three session
	// failures above, returned by RequireAuth. Mapped to 401.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the session is valid but the role is insufficient.
	// Mapped to 403.
	ErrForbidden = errors.New("insufficient permissions")

	// ErrCSRFInvalid means a missing, unknown or already-consumed CSRF
	// token. Mapped to 403 and logged as a security event.
	ErrCSRFInvalid = errors.New("invalid csrf token")

	// ErrRateLimited is returned when the sliding window is full. Mapped
	// to 429.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStorageUnavailable wraps store or hashing infrastructure failures.
	// Mapped to 500, except in the rate limiter where the fail-open policy
	// applies.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
