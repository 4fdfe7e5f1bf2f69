// Package middleware provides the auth-aware HTTP middleware for the
// labtrack API: session authentication, admin role enforcement, CSRF
// protection for mutating requests, and sliding-window rate limiting.
//
// Ordering matters. The intended chains, outermost first:
//
//	public: recovery -> request id -> logging -> metrics -> optional auth -> rate limit -> csrf -> handler
//	authed: recovery -> request id -> logging -> metrics -> auth -> rate limit -> csrf -> handler
//
// Auth (optional on public routes) runs before the limiter and the CSRF
// check: the limiter keys on the user when a session resolved and on the
// peer address otherwise, and scoped CSRF tokens are bound to the session,
// so both must see the same identity the token endpoint saw at issuance.
package middleware
