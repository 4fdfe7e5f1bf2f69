package middleware

import (
	"net/http"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/httputil"
	"github.com/mspacademy/labtrack/pkg/observability"
)

// CSRFHeader carries the anti-forgery token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware validates single-use CSRF tokens on state-changing methods
// (everything except GET, HEAD, OPTIONS). It must sit inside AuthMiddleware:
// scoped tokens are bound to the session token, and CSRF validation without
// session validation proves nothing.
type CSRFMiddleware struct {
	guard   *auth.CSRFGuard
	audit   *auth.AuditRecorder
	metrics *observability.Metrics
}

// NewCSRFMiddleware creates the middleware. audit and metrics may be nil.
func NewCSRFMiddleware(guard *auth.CSRFGuard, audit *auth.AuditRecorder, metrics *observability.Metrics) *CSRFMiddleware {
	return &CSRFMiddleware{
		guard:   guard,
		audit:   audit,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with CSRF validation
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(CSRFHeader)

		// Scoped to the session when one is present, global pool otherwise
		scope := ""
		userID := ""
		if info := GetSession(r); info != nil {
			scope = info.Token
			userID = info.UserID
		}

		if !m.guard.Validate(r.Context(), token, scope) {
			if m.metrics != nil {
				m.metrics.CSRFFailuresTotal.Inc()
			}
			if m.audit != nil {
				m.audit.RecordRequest(r, auth.ActionCSRFInvalid, auth.StatusDenied, userID, auth.ErrCSRFInvalid)
			}
			httputil.WriteForbidden(w, "invalid csrf token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
