package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/middleware"
	"github.com/Elizabethomito/nearby/internal/models"
)

// Sweep handles POST /api/admin/sweep  (admin only)
//
// Runs one expiry pass on demand. The background sweeper does the same on
// a timer; both are safe to run at once.
func (s *Server) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.Sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "sweep complete", res)
}

// ListReports handles GET /api/admin/reports?offset=&limit=  (admin only)
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	s.listReports(w, r, s.Reports.ListEventReports)
}

// ListUserReports handles GET /api/admin/user-reports?offset=&limit=  (admin only)
func (s *Server) ListUserReports(w http.ResponseWriter, r *http.Request) {
	s.listReports(w, r, s.Reports.ListUserReports)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, offset, limit int) ([]models.Report, error)) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		s.fail(w, r, apperr.Validation("offset must be an integer"))
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		s.fail(w, r, apperr.Validation("limit must be an integer"))
		return
	}
	reps, err := list(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", reps)
}

// RejectReport handles POST /api/admin/reports/{id}/reject  (admin only)
//
// Dismisses every report filed against the same event.
func (s *Server) RejectReport(w http.ResponseWriter, r *http.Request) {
	removed, err := s.Reports.RejectEventReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "reports dismissed", map[string]int{"removed": removed})
}

// RejectUserReport handles POST /api/admin/user-reports/{id}/reject  (admin only)
//
// Dismisses every report filed against the same user.
func (s *Server) RejectUserReport(w http.ResponseWriter, r *http.Request) {
	removed, err := s.Reports.RejectUserReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "reports dismissed", map[string]int{"removed": removed})
}

// DeleteReportedEvent handles DELETE /api/admin/reports/{id}/event  (admin only)
func (s *Server) DeleteReportedEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := s.Reports.DeleteEventFromReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Logger.InfoContext(r.Context(), "reported event deleted",
		"event_id", eventID, "report_id", r.PathValue("id"), "admin_id", middleware.GetUserID(r.Context()))
	respond(w, http.StatusOK, "event deleted", map[string]string{"event_id": eventID})
}
