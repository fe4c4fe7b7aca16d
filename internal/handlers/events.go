package handlers

import (
	"net/http"
	"strconv"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/middleware"
	"github.com/Elizabethomito/nearby/internal/models"
)

// ListEvents handles GET /api/events
//
// Query parameters: user_lat and user_lng (required), interest, limit
// (1..10, default 10), offset and order ("start" or "created"). A valid
// bearer token is optional; when present, attendees the caller follows are
// flagged.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("user_lat") == "" || q.Get("user_lng") == "" {
		s.fail(w, r, apperr.Validation("user_lat and user_lng are required"))
		return
	}

	req := models.DiscoverRequest{
		UserID:   middleware.GetUserID(r.Context()),
		Interest: q.Get("interest"),
		OrderBy:  q.Get("order"),
	}
	var err error
	if req.UserLat, err = strconv.ParseFloat(q.Get("user_lat"), 64); err != nil {
		s.fail(w, r, apperr.Validation("user_lat must be a number"))
		return
	}
	if req.UserLng, err = strconv.ParseFloat(q.Get("user_lng"), 64); err != nil {
		s.fail(w, r, apperr.Validation("user_lng must be a number"))
		return
	}
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		s.fail(w, r, apperr.Validation("limit must be an integer"))
		return
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		s.fail(w, r, apperr.Validation("offset must be an integer"))
		return
	}

	page, err := s.Events.Discover(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", page)
}

// CreateEvent handles POST /api/events
func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ev, err := s.Events.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "event created", ev)
}

// GetEvent handles GET /api/events/{id}
// r.PathValue("id") is the Go 1.22+ way to read path parameters from the
// standard library mux.
func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.Events.Get(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", ev)
}

// UpdateEvent handles PATCH /api/events/{id}  (organizer or admin)
func (s *Server) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateEventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ev, err := s.Events.Update(r.Context(), r.PathValue("id"), middleware.GetActor(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "event updated", ev)
}

// DeleteEvent handles DELETE /api/events/{id}  (organizer or admin)
func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.Events.Delete(r.Context(), r.PathValue("id"), middleware.GetActor(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "event deleted", nil)
}

// JoinEvent handles POST /api/events/{id}/join
//
// Only public events can be joined directly; private ones answer
// REQUEST_REQUIRED and the client should POST .../requests instead.
func (s *Server) JoinEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.Membership.Join(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "joined", ev)
}

// LeaveEvent handles POST /api/events/{id}/leave
func (s *Server) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.Membership.Leave(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "left", ev)
}

// RequestJoin handles POST /api/events/{id}/requests
func (s *Server) RequestJoin(w http.ResponseWriter, r *http.Request) {
	req, err := s.Workflow.RequestJoin(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "request sent", req)
}

// ResolveRequest handles PATCH /api/events/{id}/requests/{user_id}
//
// Body: {"decision": "approved" | "rejected"}. Only the event's organizer
// may call it; the workflow enforces that, not a role check.
func (s *Server) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	var body models.ResolveRequestBody
	if err := decode(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req, err := s.Workflow.Resolve(r.Context(), r.PathValue("id"),
		middleware.GetUserID(r.Context()), r.PathValue("user_id"), body.Decision)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "request "+string(req.Status), req)
}

// RateEvent handles POST /api/events/{id}/rating
func (s *Server) RateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.RateEventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mean, err := s.Events.Rate(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "rating saved", map[string]float64{"rating": mean})
}

// ReportEvent handles POST /api/events/{id}/reports
func (s *Server) ReportEvent(w http.ResponseWriter, r *http.Request) {
	var req models.ReportEventRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rep, err := s.Reports.AddEventReport(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "report submitted", rep)
}

// intParam parses an optional integer query parameter; empty is 0.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
