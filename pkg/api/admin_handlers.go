package api

import (
	"net/http"

	"github.com/mspacademy/labtrack/pkg/httputil"
)

// listUsers handles GET /api/admin/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.authService.Users().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// exportProgress handles GET /api/admin/export?format=json|csv
func (s *Server) exportProgress(w http.ResponseWriter, r *http.Request) {
	format := httputil.ParseQueryString(r, "format", "json")

	switch format {
	case "json":
		data, err := s.progressData.ExportJSON(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="progress.json"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "csv":
		data, err := s.progressData.ExportCSV(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="progress.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		httputil.WriteBadRequest(w, "format must be json or csv")
	}
}

// listAuditEvents handles GET /api/admin/audit
func (s *Server) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.auditLog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
