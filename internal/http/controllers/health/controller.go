// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/didjohn/internal/http/helpers"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// Response es el estado agregado del servicio.
type Response struct {
	Status     string            `json:"status"` // ready | degraded | unavailable
	Components map[string]string `json:"components"`
	Version    string            `json:"version,omitempty"`
}

// Controller maneja las rutas de health check.
type Controller struct {
	store   core.Repository
	chain   func(ctx context.Context) error // nil: sin chequeo de chain
	version string
}

func NewController(store core.Repository, version string) *Controller {
	return &Controller{store: store, version: version}
}

// WithChainCheck agrega un chequeo de conectividad al RPC de la chain.
// La chain caída degrada pero no tumba readiness: login y verificación de
// credenciales ya emitidas siguen funcionando contra el store local.
func (c *Controller) WithChainCheck(fn func(ctx context.Context) error) *Controller {
	c.chain = fn
	return c
}

// Healthz maneja GET /healthz: liveness simple, sin tocar dependencias.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz: chequea store y chain con timeout corto.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Health.Readyz"))

	components := map[string]string{"store": "ok"}
	status := "ready"
	code := http.StatusOK

	if err := c.store.Ping(ctx); err != nil {
		log.Warn("store ping failed", logger.Err(err))
		components["store"] = "unavailable"
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if c.chain != nil {
		components["chain"] = "ok"
		if err := c.chain(ctx); err != nil {
			log.Warn("chain rpc ping failed", logger.Err(err))
			components["chain"] = "unavailable"
			if status == "ready" {
				status = "degraded"
			}
		}
	}

	if c.version != "" {
		w.Header().Set("X-Service-Version", c.version)
	}
	helpers.WriteJSON(w, code, Response{Status: status, Components: components, Version: c.version})
}
