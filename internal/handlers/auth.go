package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/auth"
	"github.com/Elizabethomito/nearby/internal/middleware"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/validate"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Register handles POST /api/auth/register
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.fail(w, r, apperr.Internal("hash password", err))
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.fail(w, r, apperr.ErrEmailTaken)
			return
		}
		s.fail(w, r, apperr.Internal("create user", err))
		return
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role), s.Secret)
	if err != nil {
		s.fail(w, r, apperr.Internal("generate token", err))
		return
	}
	s.Logger.InfoContext(r.Context(), "user registered", "user_id", user.ID)
	respond(w, http.StatusCreated, "registered", models.LoginResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
//
// Unknown email and wrong password produce the same response so the
// endpoint cannot be used to find out which emails are registered.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.fail(w, r, apperr.ErrInvalidCredentials)
			return
		}
		s.fail(w, r, apperr.Internal("load user", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.fail(w, r, apperr.ErrInvalidCredentials)
		return
	}
	if user.IsBlocked {
		s.fail(w, r, apperr.ErrUserBlocked)
		return
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role), s.Secret)
	if err != nil {
		s.fail(w, r, apperr.Internal("generate token", err))
		return
	}
	respond(w, http.StatusOK, "logged in", models.LoginResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, err := s.loadUser(r, middleware.GetUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", user)
}

// SetDeviceToken handles PUT /api/users/me/device-token
//
// The token is where join-request pushes for this user are delivered.
func (s *Server) SetDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceTokenRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.SetDeviceToken(r.Context(), middleware.GetUserID(r.Context()), req.DeviceToken); err != nil {
		s.fail(w, r, userErr(err, "set device token"))
		return
	}
	respond(w, http.StatusOK, "device token updated", nil)
}

// Follow handles POST /api/users/{id}/follow
func (s *Server) Follow(w http.ResponseWriter, r *http.Request) {
	followee := r.PathValue("id")
	follower := middleware.GetUserID(r.Context())
	if followee == follower {
		s.fail(w, r, apperr.Validation("cannot follow yourself"))
		return
	}
	if err := s.Store.Follow(r.Context(), follower, followee); err != nil {
		s.fail(w, r, userErr(err, "follow"))
		return
	}
	respond(w, http.StatusOK, "followed", nil)
}

// Unfollow handles DELETE /api/users/{id}/follow. Unfollowing someone not
// followed is a no-op.
func (s *Server) Unfollow(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Unfollow(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, apperr.Internal("unfollow", err))
		return
	}
	respond(w, http.StatusOK, "unfollowed", nil)
}

// ReportUser handles POST /api/users/{id}/reports
func (s *Server) ReportUser(w http.ResponseWriter, r *http.Request) {
	var req models.ReportUserRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rep, err := s.Reports.AddUserReport(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "report submitted", rep)
}

// BlockUser handles POST /api/admin/users/{id}/block  (admin only)
//
// Blocked users keep their memberships but cannot log in, create events,
// request to join, rate or report.
func (s *Server) BlockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

// UnblockUser handles DELETE /api/admin/users/{id}/block  (admin only)
func (s *Server) UnblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

func (s *Server) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id := r.PathValue("id")
	if err := s.Store.SetUserBlocked(r.Context(), id, blocked); err != nil {
		s.fail(w, r, userErr(err, "set blocked"))
		return
	}
	s.Logger.InfoContext(r.Context(), "user block changed",
		"user_id", id, "blocked", blocked, "admin_id", middleware.GetUserID(r.Context()))
	user, err := s.loadUser(r, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "ok", user)
}

func (s *Server) loadUser(r *http.Request, id string) (models.User, error) {
	user, err := s.Store.GetUser(r.Context(), id)
	if err != nil {
		return models.User{}, userErr(err, "load user")
	}
	return user, nil
}

func userErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrUserNotFound
	}
	return apperr.Internal(op, err)
}
