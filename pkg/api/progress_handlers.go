package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/httputil"
	"github.com/mspacademy/labtrack/pkg/middleware"
	"github.com/mspacademy/labtrack/pkg/progress"
)

// getProgress handles GET /api/progress
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	info := middleware.GetSession(r)

	record, err := s.progressData.Get(r.Context(), info.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"progress":           record,
		"completion_percent": record.CompletionPercent(),
	})
}

// updateProgress handles PUT /api/progress
func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LabID  string `json:"lab_id"`
		Status string `json:"status"`
		Score  int    `json:"score"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := validateProgressUpdate(req.LabID, req.Status, req.Score); err != nil {
		s.writeError(w, r, err)
		return
	}

	info := middleware.GetSession(r)
	record, err := s.progressData.SetLab(r.Context(), info.UserID, req.LabID, progress.LabStatus(req.Status), req.Score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"progress":           record,
		"completion_percent": record.CompletionPercent(),
	})
}

// labHistory handles GET /api/labs/history
func (s *Server) labHistory(w http.ResponseWriter, r *http.Request) {
	info := middleware.GetSession(r)

	entries, err := s.progressData.History(r.Context(), info.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"history": entries})
}

func validateProgressUpdate(labID, status string, score int) error {
	if strings.TrimSpace(labID) == "" {
		return fmt.Errorf("%w: lab_id is required", auth.ErrValidation)
	}
	switch progress.LabStatus(status) {
	case progress.StatusInProgress, progress.StatusCompleted:
	default:
		return fmt.Errorf("%w: status must be %q or %q", auth.ErrValidation, progress.StatusInProgress, progress.StatusCompleted)
	}
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: score must be between 0 and 100", auth.ErrValidation)
	}
	return nil
}
