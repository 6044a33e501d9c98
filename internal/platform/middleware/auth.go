package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/requestcontext"
)

// Claims are the token claims the gateway cares about.
type Claims struct {
	ActorID string
	Role    string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Staff roles accepted by the decision gateway.
const (
	RoleRiskManager    = "risk_manager"
	RoleAccountManager = "account_manager"
	RolePlatform       = "platform"
)

// RequireAuth validates the Authorization bearer token and stores the actor
// in the request context. Decisions are user-facing actions, so failures are
// reported to the caller rather than logged-and-dropped.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				writeAuthError(w, "invalid token")
				return
			}

			actor := id.Actor{
				Type:   id.ActorUser,
				ID:     claims.ActorID,
				Device: DeviceDisplayName(r.UserAgent()),
			}
			if claims.Role == RolePlatform {
				actor.Type = id.ActorPlatform
			}

			ctx := requestcontext.WithActor(r.Context(), actor)
			ctx = withRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowlist. Must be mounted after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[Role(r.Context())] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(dErrors.ToHTTPStatus(dErrors.CodeForbidden))
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceDisplayName renders a short human-readable device string from a
// User-Agent header for decision audit events.
func DeviceDisplayName(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()
	if browser == "" {
		browser = "Unknown"
	}
	if os == "" {
		os = "Unknown"
	}
	return browser + " on " + os
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
