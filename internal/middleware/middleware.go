// Package middleware provides HTTP middleware for the Nearby server.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: what is middleware?
// ────────────────────────────────────────────────────────────────────
// In HTTP servers, "middleware" is a function that wraps a handler to
// add behaviour before and/or after it runs. The pattern in Go is:
//
//   func MyMiddleware(next http.Handler) http.Handler {
//       return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//           // do something before
//           next.ServeHTTP(w, r)  // call the real handler
//           // do something after
//       })
//   }
//
// Middleware can be chained: CORS(Logger(Authenticate(handler))) means
// CORS runs first, then the logger, then Authenticate, then the handler.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/auth"
	"github.com/Elizabethomito/nearby/internal/models"
)

// contextKey is a private type for context keys in this package.
type contextKey string

const (
	// ContextUserID is the key under which the authenticated user's ID
	// is stored in the request context after Authenticate runs.
	ContextUserID contextKey = "user_id"
	// ContextRole is the key for the user's role ("user"/"admin").
	ContextRole contextKey = "role"
)

// deny writes the uniform error envelope.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.Envelope{Status: false, Message: msg})
}

// Authenticate returns a middleware that requires a valid bearer token.
//
// Flow:
//  1. Read the "Authorization: Bearer <token>" header.
//  2. Parse and validate the JWT.
//  3. Store user_id and role in the request context.
//  4. Call the next handler.
//
// If the token is missing or invalid, it responds with 401 and stops.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				deny(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuthenticate stores the caller's identity when a valid token is
// present and lets anonymous requests through unchanged. Discovery uses it
// so the followed flag can be computed for signed-in users.
func OptionalAuthenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				if claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, ContextUserID, claims.UserID)
	return context.WithValue(ctx, ContextRole, claims.Role)
}

// RequireRole returns a middleware that only allows requests whose context
// role matches one of the given roles. Must be used after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(ContextRole).(string)
			if !allowed[role] {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds permissive CORS headers so browser clients on another origin
// can call the API. The OPTIONS preflight gets a 204.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger logs one line per request with method, path, status and duration.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns an empty string if Authenticate has not run.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(ContextUserID).(string)
	return id
}

// GetRole retrieves the authenticated user's role from the context.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(ContextRole).(string)
	return role
}

// GetActor returns the caller as a models.Actor.
func GetActor(ctx context.Context) models.Actor {
	return models.Actor{
		UserID: GetUserID(ctx),
		Admin:  GetRole(ctx) == string(models.RoleAdmin),
	}
}
