// Package auth implements the session and authentication lifecycle for
// labtrack: opaque token generation, password hashing, session storage with
// TTL, CSRF token issuance and single-use validation, sliding-window rate
// limiting, and the service that composes them into register / login /
// logout / validate / require-auth / require-admin.
//
// # Sessions
//
// A session is an opaque bearer token mapped to a record in the key-value
// store under session:<token>. Records carry their own expiry timestamp; the
// store-level TTL is only a durability net. Expiry is lazy: a Validate call
// that finds an expired record, or a record whose user no longer exists,
// deletes it as a side effect. There is no background sweep and no refresh;
// a new login always mints a new token.
//
//	Active --(TTL elapsed | logout | user deleted)--> Absent
//
// # CSRF tokens
//
// CSRF tokens are single-use: the first successful validation deletes the
// record, so a replayed token fails. A token can be issued into the global
// pool (keyed by its own value) or scoped to a session, in which case a new
// issuance replaces the previous token for that scope.
//
// # Rate limiting
//
// The limiter keeps an ordered window of request timestamps per identifier
// and prunes it on every check. It fails open by default: if the store is
// unreachable the request is allowed, because locking every user out of the
// tracker is worse than briefly losing abuse protection. Deployments that
// disagree set FailClosed.
//
// # Errors
//
// All failures surface as the sentinel errors in errors.go. Storage and
// hashing failures never escape raw; they are wrapped in
// ErrStorageUnavailable at the service boundary. Login deliberately returns
// the same ErrInvalidCredentials for an unknown email and a wrong password.
package auth
