// Package api wires the labtrack HTTP surface: the gorilla/mux router, the
// middleware chain, and the JSON handlers for authentication, progress
// tracking, and the admin surfaces.
//
// Every endpoint decodes exactly one typed request struct, calls into the
// services, and maps the auth error taxonomy onto status codes:
//
//	ErrValidation          400
//	ErrInvalidCredentials  401
//	ErrUnauthenticated     401
//	ErrForbidden           403
//	ErrCSRFInvalid         403
//	ErrEmailTaken          409
//	ErrRateLimited         429
//	ErrStorageUnavailable  500
package api
