package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/httputil"
	"github.com/mspacademy/labtrack/pkg/middleware"
	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/progress"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Server is the labtrack API server
type Server struct {
	router *mux.Router

	authService  *auth.Service
	csrfGuard    *auth.CSRFGuard
	rateLimiter  *auth.RateLimiter
	auditLog     *auth.AuditRecorder
	progressData *progress.Store

	logger  *observability.Logger
	metrics *observability.Metrics

	cookieSecure bool
}

// Options configures the API server
type Options struct {
	AuthService *auth.Service
	CSRFGuard   *auth.CSRFGuard
	RateLimiter *auth.RateLimiter
	AuditLog    *auth.AuditRecorder
	Progress    *progress.Store
	Logger      *observability.Logger
	Metrics     *observability.Metrics

	// CookieSecure controls the Secure attribute on session cookies.
	CookieSecure bool
}

// NewServer creates the API server and mounts all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		authService:  opts.AuthService,
		csrfGuard:    opts.CSRFGuard,
		rateLimiter:  opts.RateLimiter,
		auditLog:     opts.AuditLog,
		progressData: opts.Progress,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		cookieSecure: opts.CookieSecure,
	}

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	base := httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware(),
		httputil.MaxBytesMiddleware(maxRequestBody),
	)
	if s.metrics != nil {
		base = httputil.Chain(base, observability.HTTPMetricsMiddleware(s.metrics))
	}

	rateLimit := middleware.NewRateLimitMiddleware(s.rateLimiter, s.auditLog, s.metrics).Handler
	requireAuth := middleware.NewAuthMiddleware(s.authService, s.auditLog, false).Handler
	optionalAuth := middleware.NewAuthMiddleware(s.authService, s.auditLog, true).Handler
	csrf := middleware.NewCSRFMiddleware(s.csrfGuard, s.auditLog, s.metrics).Handler

	// Public auth routes. optionalAuth resolves a live session if the
	// request carries one, so CSRF validation on login and register sees
	// the same scope the token was issued under; truly anonymous requests
	// fall through to the global pool and IP-keyed rate limiting.
	public := httputil.Chain(base, optionalAuth, rateLimit)
	s.route("/api/register", http.MethodPost, public, csrf(http.HandlerFunc(s.register)))
	s.route("/api/login", http.MethodPost, public, csrf(http.HandlerFunc(s.login)))
	s.route("/api/csrf-token", http.MethodGet, public, http.HandlerFunc(s.issueCSRFToken))

	// Authenticated routes: rate limited per user, CSRF on mutations.
	authed := httputil.Chain(base, requireAuth, rateLimit)
	s.route("/api/logout", http.MethodPost, authed, csrf(http.HandlerFunc(s.logout)))
	s.route("/api/session", http.MethodGet, authed, http.HandlerFunc(s.currentSession))
	s.route("/api/progress", http.MethodGet, authed, http.HandlerFunc(s.getProgress))
	s.route("/api/progress", http.MethodPut, authed, csrf(http.HandlerFunc(s.updateProgress)))
	s.route("/api/labs/history", http.MethodGet, authed, http.HandlerFunc(s.labHistory))

	// Admin routes
	admin := httputil.Chain(base, requireAuth, rateLimit, middleware.RequireAdmin())
	s.route("/api/admin/users", http.MethodGet, admin, http.HandlerFunc(s.listUsers))
	s.route("/api/admin/export", http.MethodGet, admin, http.HandlerFunc(s.exportProgress))
	s.route("/api/admin/audit", http.MethodGet, admin, http.HandlerFunc(s.listAuditEvents))
}

func (s *Server) route(path, method string, chain func(http.Handler) http.Handler, handler http.Handler) {
	s.router.Handle(path, chain(handler)).Methods(method)
}
