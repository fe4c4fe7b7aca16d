// Package handlers contains the HTTP handler logic for the Nearby API.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: package structure
// ────────────────────────────────────────────────────────────────────
// All handler files share the same "handlers" package so they can call
// each other's helpers freely without exporting them. The files are
// split by domain (auth, events, interests, admin) purely for readability.
//
// Handlers are thin: they decode the request, call one core service, and
// turn the result (or the *apperr.Error) into a JSON envelope. All rules
// about slots, requests and expiry live in the services, so the same
// behaviour is reachable from tests without HTTP.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Elizabethomito/nearby/internal/apperr"
	"github.com/Elizabethomito/nearby/internal/events"
	"github.com/Elizabethomito/nearby/internal/lifecycle"
	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/membership"
	"github.com/Elizabethomito/nearby/internal/middleware"
	"github.com/Elizabethomito/nearby/internal/models"
	"github.com/Elizabethomito/nearby/internal/reports"
	"github.com/Elizabethomito/nearby/internal/store"
	"github.com/Elizabethomito/nearby/internal/workflow"
)

// respond writes a success envelope with the given HTTP status code.
// Setting Content-Type before WriteHeader is important: once
// WriteHeader is called the headers are flushed and cannot be changed.
func respond(w http.ResponseWriter, status int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring the encode error: if the client disconnected mid-write
	// there is nothing useful we can do.
	_ = json.NewEncoder(w).Encode(models.Envelope{Status: true, Message: msg, Data: data})
}

// respondError sends {"status": false, "message": msg}.
func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.Envelope{Status: false, Message: msg})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an envelope. Internal errors are logged with their
// cause and reach the client only as "internal error".
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.Logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
	}
	status := statusFor(kind)
	if apperr.CodeOf(err) == apperr.CodeInvalidCredentials {
		status = http.StatusUnauthorized
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		models.Envelope
		Code apperr.Code `json:"code"`
	}{models.Envelope{Status: false, Message: apperr.Message(err)}, apperr.CodeOf(err)})
}

// decode reads and parses a JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Options configures the services New builds.
type Options struct {
	OrganizerConsumesSlot bool
	DefaultTimezone       string
	// Signaller receives push signals after commits. Nil drops them.
	Signaller workflow.Signaller
	Logger    *slog.Logger
}

// Server holds shared dependencies for all handlers.
// Using a struct instead of package-level globals means tests can spin
// up many independent Server instances without state leaking between them.
type Server struct {
	Store      store.Store
	Events     *events.Service
	Membership *membership.Manager
	Workflow   *workflow.Workflow
	Reports    *reports.Service
	Sweeper    *lifecycle.Sweeper
	// Secret is the HMAC key used to sign and verify JWTs.
	Secret string
	Logger *slog.Logger
}

// New wires every core service onto st.
func New(st store.Store, secret string, opts Options) *Server {
	logger := logging.OrDefault(opts.Logger)
	wf := workflow.New(st, opts.Signaller, logger)
	return &Server{
		Store: st,
		Events: events.New(st, events.Options{
			OrganizerConsumesSlot: opts.OrganizerConsumesSlot,
			DefaultTimezone:       opts.DefaultTimezone,
			Logger:                logger,
		}),
		Membership: membership.New(st, wf, logger),
		Workflow:   wf,
		Reports:    reports.New(st, logger),
		Sweeper:    lifecycle.New(st, logger),
		Secret:     secret,
		Logger:     logger,
	}
}

// Routes registers every endpoint and returns the wrapped handler.
//
// Go 1.22+ ServeMux supports method prefixes ("GET /path") and path
// wildcards ("{id}") natively; no third-party router needed.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Chaining: auth(onlyAdmin(handler)) means Authenticate runs first and
	// sets user_id/role in context, then RequireRole checks the role.
	auth := middleware.Authenticate(s.Secret)
	optional := middleware.OptionalAuthenticate(s.Secret)
	onlyAdmin := middleware.RequireRole(string(models.RoleAdmin))
	h := func(f http.HandlerFunc) http.Handler { return f }

	// Public routes.
	mux.HandleFunc("POST /api/auth/register", s.Register)
	mux.HandleFunc("POST /api/auth/login", s.Login)
	mux.HandleFunc("GET /api/interests", s.ListInterests)
	mux.Handle("GET /api/events", optional(h(s.ListEvents)))
	mux.Handle("GET /api/events/{id}", optional(h(s.GetEvent)))
	// Demo seed. Creates the admin account, so it cannot sit behind one.
	mux.HandleFunc("POST /api/admin/seed", s.SeedDemo)

	// Any signed-in user.
	mux.Handle("GET /api/auth/me", auth(h(s.Me)))
	mux.Handle("PUT /api/users/me/device-token", auth(h(s.SetDeviceToken)))
	mux.Handle("POST /api/users/{id}/follow", auth(h(s.Follow)))
	mux.Handle("DELETE /api/users/{id}/follow", auth(h(s.Unfollow)))
	mux.Handle("POST /api/users/{id}/reports", auth(h(s.ReportUser)))
	mux.Handle("POST /api/events", auth(h(s.CreateEvent)))
	mux.Handle("PATCH /api/events/{id}", auth(h(s.UpdateEvent)))
	mux.Handle("DELETE /api/events/{id}", auth(h(s.DeleteEvent)))
	mux.Handle("POST /api/events/{id}/join", auth(h(s.JoinEvent)))
	mux.Handle("POST /api/events/{id}/leave", auth(h(s.LeaveEvent)))
	mux.Handle("POST /api/events/{id}/requests", auth(h(s.RequestJoin)))
	mux.Handle("PATCH /api/events/{id}/requests/{user_id}", auth(h(s.ResolveRequest)))
	mux.Handle("POST /api/events/{id}/rating", auth(h(s.RateEvent)))
	mux.Handle("POST /api/events/{id}/reports", auth(h(s.ReportEvent)))

	// Admin-only routes.
	mux.Handle("POST /api/interests", auth(onlyAdmin(h(s.CreateInterest))))
	mux.Handle("POST /api/admin/sweep", auth(onlyAdmin(h(s.Sweep))))
	mux.Handle("GET /api/admin/reports", auth(onlyAdmin(h(s.ListReports))))
	mux.Handle("POST /api/admin/reports/{id}/reject", auth(onlyAdmin(h(s.RejectReport))))
	mux.Handle("DELETE /api/admin/reports/{id}/event", auth(onlyAdmin(h(s.DeleteReportedEvent))))
	mux.Handle("GET /api/admin/user-reports", auth(onlyAdmin(h(s.ListUserReports))))
	mux.Handle("POST /api/admin/user-reports/{id}/reject", auth(onlyAdmin(h(s.RejectUserReport))))
	mux.Handle("POST /api/admin/users/{id}/block", auth(onlyAdmin(h(s.BlockUser))))
	mux.Handle("DELETE /api/admin/users/{id}/block", auth(onlyAdmin(h(s.UnblockUser))))

	return middleware.CORS(middleware.Logger(s.Logger)(mux))
}
