package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/httputil"
	"github.com/mspacademy/labtrack/pkg/observability"
)

// RateLimitMiddleware applies the sliding-window limiter per client. The
// identifier is the authenticated user when a session is on the context,
// the peer address otherwise. Forwarding headers are client-settable and
// are not consulted for the identifier.
type RateLimitMiddleware struct {
	limiter *auth.RateLimiter
	audit   *auth.AuditRecorder
	metrics *observability.Metrics
}

// NewRateLimitMiddleware creates the middleware. audit and metrics may be nil.
func NewRateLimitMiddleware(limiter *auth.RateLimiter, audit *auth.AuditRecorder, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		audit:   audit,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := "ip:" + remoteHost(r)
		userID := ""
		if info := GetSession(r); info != nil {
			identifier = "user:" + info.UserID
			userID = info.UserID
		}

		if !m.limiter.Allow(r.Context(), identifier) {
			if m.metrics != nil {
				m.metrics.RateLimitRejections.Inc()
			}
			if m.audit != nil {
				m.audit.RecordRequest(r, auth.ActionRateLimitExceeded, auth.StatusDenied, userID, auth.ErrRateLimited)
			}
			m.rejected(w)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limiter.MaxRequests))
		next.ServeHTTP(w, r)
	})
}

// remoteHost is the peer address without the port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *RateLimitMiddleware) rejected(w http.ResponseWriter) {
	retryAfter := m.limiter.Window.Round(time.Second).Seconds()
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limiter.MaxRequests))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, "rate limit exceeded")
}
