// Package router arma el árbol de rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/auth"
	credctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/credentials"
	didctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/did"
	healthctrl "github.com/dropDatabas3/didjohn/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/didjohn/internal/http/errors"
	mw "github.com/dropDatabas3/didjohn/internal/http/middlewares"
	"github.com/dropDatabas3/didjohn/internal/metrics"
	"github.com/dropDatabas3/didjohn/internal/rate"
)

// Deps contiene todo lo necesario para armar el router.
type Deps struct {
	Auth        *authctrl.Controller
	Credentials *credctrl.Controller
	DID         *didctrl.Controller
	Health      *healthctrl.Controller

	TokenParser mw.TokenParser
	Identity    mw.IdentityResolver

	// MetricsHandler es el handler de /metrics; nil lo deshabilita.
	MetricsHandler http.Handler

	// RateLimiter protege los endpoints de autenticación; nil lo deshabilita.
	RateLimiter rate.Limiter
}

// New construye el handler raíz con middlewares base y todas las rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID)
	r.Use(mw.WithRecover)
	r.Use(mw.WithSecurityHeaders)
	r.Use(metrics.WithMetrics)
	r.Use(mw.WithLogging)

	guard := mw.RequireAuth(d.TokenParser, d.Identity)

	// ─── Health / Metrics ───
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		// ─── Auth (público) ───
		r.Group(func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(mw.WithRateLimit(d.RateLimiter))
			}
			r.Post("/auth/challenge", d.Auth.Challenge)
			r.Post("/auth/verify", d.Auth.Verify)
		})
		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Get("/auth/verify-token", d.Auth.VerifyToken)
		})

		// ─── Credentials ───
		r.Post("/credentials/verify", d.Credentials.Verify)
		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/credentials/issue", d.Credentials.Issue)
			r.Delete("/credentials/{id}", d.Credentials.Revoke)
			r.Get("/credentials/my", d.Credentials.ListMine)
			r.With(mw.RequireDIDOwner).Get("/credentials/did/{did}", d.Credentials.ListByDID)
		})

		// ─── DID ───
		r.Get("/did/{did}/exists", d.DID.Exists)
		r.Get("/did/{did}", d.DID.Resolve)
		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/did", d.DID.Create)
			r.With(mw.RequireDIDOwner).Post("/did/{did}/update", d.DID.Update)
			r.With(mw.RequireDIDOwner).Delete("/did/{did}", d.DID.Deactivate)
			r.With(mw.RequireDIDOwner).Get("/did/{did}/audit", d.DID.AuditLogs)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
