package middleware

import (
	"errors"
	"net/http"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/contextkeys"
	"github.com/mspacademy/labtrack/pkg/httputil"
)

// AuthMiddleware validates the session on every request and stores the
// resulting SessionInfo on the context.
type AuthMiddleware struct {
	service *auth.Service
	audit   *auth.AuditRecorder
	// If optional is true, requests without a session pass through without
	// a session on the context.
	optional bool
}

// NewAuthMiddleware creates a new authentication middleware. audit may be nil.
func NewAuthMiddleware(service *auth.Service, audit *auth.AuditRecorder, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		service:  service,
		audit:    audit,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with session authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.service.RequireAuth(r)
		if err != nil {
			if m.optional && errors.Is(err, auth.ErrUnauthenticated) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, err)
			return
		}

		ctx := contextkeys.WithSession(r.Context(), info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		if m.audit != nil {
			m.audit.RecordRequest(r, auth.ActionSessionExpired, auth.StatusDenied, "", err)
		}
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteInternalError(w)
}

// GetSession extracts the validated session from the request context.
// Returns nil when the request is unauthenticated.
func GetSession(r *http.Request) *auth.SessionInfo {
	v := r.Context().Value(contextkeys.SessionKey)
	if v == nil {
		return nil
	}
	info, ok := v.(*auth.SessionInfo)
	if !ok {
		return nil
	}
	return info
}

// RequireAdmin creates middleware that rejects non-admin sessions. Must sit
// inside AuthMiddleware.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := GetSession(r)
			if info == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !info.IsAdmin() {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
