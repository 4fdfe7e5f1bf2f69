// Package httputil provides HTTP handler utilities for consistent JSON
// responses, request decoding, and the generic middleware (panic recovery,
// request IDs, body size limits) that sits under the auth-aware middleware
// in pkg/middleware.
package httputil
