// Package httptransport assembles the HTTP surface: middleware chain, staff
// routes behind bearer auth and role checks, token-authenticated form routes,
// and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onboarding-gateway/internal/gateway/handler"
	"onboarding-gateway/internal/platform/metrics"
	"onboarding-gateway/internal/platform/middleware"
	"onboarding-gateway/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Handler        *handler.Handler
	TokenValidator middleware.TokenValidator
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the full router. Form routes deliberately skip bearer
// auth: the single-use magic-link token is the credential.
func NewRouter(deps Deps) http.Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		deps.Handler.RegisterStaff(r, middleware.RequireRole)
	})
	deps.Handler.RegisterPublic(r)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
