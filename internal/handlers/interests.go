package handlers

import (
	"net/http"

	"github.com/Elizabethomito/nearby/internal/models"
)

// CreateInterest handles POST /api/interests  (admin only)
//
// Interests are global tags any event can link to. The UNIQUE constraint on
// interests.name prevents duplicates; the service reports that as a
// validation error.
func (s *Server) CreateInterest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInterestRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in, err := s.Events.CreateInterest(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "interest created", in)
}

// ListInterests handles GET /api/interests
// Public: anyone browsing events needs the catalogue to filter by.
func (s *Server) ListInterests(w http.ResponseWriter, r *http.Request) {
	interests, err := s.Events.ListInterests(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", interests)
}
