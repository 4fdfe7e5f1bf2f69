package api

import (
	"errors"
	"net/http"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/httputil"
	"github.com/mspacademy/labtrack/pkg/middleware"
	"github.com/mspacademy/labtrack/pkg/observability"
)

// register handles POST /api/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, token, err := s.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.audit(r, auth.ActionRegister, auth.StatusFailure, "", err)
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.ActionRegister, auth.StatusSuccess, user.ID, nil)
	s.setSessionCookie(w, token, false)
	httputil.WriteCreated(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// login handles POST /api/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, token, err := s.authService.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.audit(r, auth.ActionLoginFailure, auth.StatusFailure, "", err)
		}
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.ActionLoginSuccess, auth.StatusSuccess, user.ID, nil)
	s.setSessionCookie(w, token, req.RememberMe)
	httputil.WriteSuccess(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// logout handles POST /api/logout
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	info := middleware.GetSession(r)
	if err := s.authService.Logout(r.Context(), info.Token); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.ActionLogout, auth.StatusSuccess, info.UserID, nil)
	s.clearSessionCookie(w)
	httputil.WriteNoContent(w)
}

// currentSession handles GET /api/session
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, middleware.GetSession(r))
}

// issueCSRFToken handles GET /api/csrf-token. Authenticated callers get a
// token scoped to their session; anonymous callers (registering or logging
// in) draw from the global pool.
func (s *Server) issueCSRFToken(w http.ResponseWriter, r *http.Request) {
	scope := ""
	if info := middleware.GetSession(r); info != nil {
		scope = info.Token
	}

	token, err := s.csrfGuard.Issue(r.Context(), scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"csrf_token": token})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, rememberMe bool) {
	cookie := &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if rememberMe {
		cookie.MaxAge = int(s.authService.Sessions().TTL(true).Seconds())
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (s *Server) audit(r *http.Request, action, status, userID string, cause error) {
	if s.auditLog != nil {
		s.auditLog.RecordRequest(r, action, status, userID, cause)
	}
}

// writeError maps the auth error taxonomy onto HTTP status codes. Anything
// outside the taxonomy is an infrastructure failure: logged with detail,
// reported to the client as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "invalid email or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		httputil.WriteForbidden(w, "insufficient permissions")
	case errors.Is(err, auth.ErrCSRFInvalid):
		httputil.WriteForbidden(w, "invalid csrf token")
	case errors.Is(err, auth.ErrEmailTaken):
		httputil.WriteConflict(w, "email already registered")
	case errors.Is(err, auth.ErrRateLimited):
		httputil.WriteTooManyRequests(w, "rate limit exceeded")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w)
	}
}
