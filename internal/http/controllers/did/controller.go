// Package did expone los endpoints de gestión de DIDs.
package did

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/didjohn/internal/audit"
	didsvc "github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/http/dto"
	httperrors "github.com/dropDatabas3/didjohn/internal/http/errors"
	"github.com/dropDatabas3/didjohn/internal/http/helpers"
	mw "github.com/dropDatabas3/didjohn/internal/http/middlewares"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
)

// Controller maneja los endpoints de gestión de DIDs.
type Controller struct {
	service *didsvc.Service
	audits  *audit.Service
}

func NewController(service *didsvc.Service, audits *audit.Service) *Controller {
	return &Controller{service: service, audits: audits}
}

// Create maneja POST /v1/did (guarded): alta del registro local más la
// transacción de anclaje para el wallet del cliente.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("DID.Create"))

	u := mw.GetIdentity(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.CreateDIDRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.DID == "" || req.PublicKeyHex == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("did y publicKey son obligatorios"))
		return
	}

	res, err := c.service.Create(ctx, req.DID, req.PublicKeyHex, audit.Entry{}.WithRequest(r))
	if err != nil {
		log.Debug("create rejected", logger.Err(err))
		writeDIDError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.CreateDIDResponse{
		DID: res.DID,
		Transaction: dto.PreparedTransactionResponse{
			To:    res.Transaction.To,
			Data:  res.Transaction.Data,
			Value: res.Transaction.Value,
		},
	})
}

// Resolve maneja GET /v1/did/{did} (público): documento mínimo desde el
// estado on-chain.
func (c *Controller) Resolve(w http.ResponseWriter, r *http.Request) {
	doc, err := c.service.Resolve(r.Context(), chi.URLParam(r, "did"))
	if err != nil {
		writeDIDError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, doc)
}

// Update maneja POST /v1/did/{did}/update (guarded + owner): transacción de
// rotación de clave.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.UpdateDIDRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.PublicKeyHex == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("publicKey es obligatorio"))
		return
	}

	tx, err := c.service.PrepareUpdate(ctx, chi.URLParam(r, "did"), req.PublicKeyHex, audit.Entry{}.WithRequest(r))
	if err != nil {
		writeDIDError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PreparedTransactionResponse{
		To: tx.To, Data: tx.Data, Value: tx.Value,
	})
}

// Deactivate maneja DELETE /v1/did/{did} (guarded + owner).
func (c *Controller) Deactivate(w http.ResponseWriter, r *http.Request) {
	tx, err := c.service.PrepareDeactivate(r.Context(), chi.URLParam(r, "did"), audit.Entry{}.WithRequest(r))
	if err != nil {
		writeDIDError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PreparedTransactionResponse{
		To: tx.To, Data: tx.Data, Value: tx.Value,
	})
}

// Exists maneja GET /v1/did/{did}/exists (público).
func (c *Controller) Exists(w http.ResponseWriter, r *http.Request) {
	didStr := chi.URLParam(r, "did")
	exists, err := c.service.Exists(r.Context(), didStr)
	if err != nil {
		writeDIDError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ExistsResponse{DID: didStr, Exists: exists})
}

// AuditLogs maneja GET /v1/did/{did}/audit (guarded + owner).
func (c *Controller) AuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := c.audits.ListByDID(r.Context(), chi.URLParam(r, "did"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	out := make([]dto.AuditLogEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.AuditLogEntry{
			ID:            l.ID,
			Action:        string(l.Action),
			DID:           l.DID,
			GSYDexAddress: l.GSYDexAddress,
			Metadata:      l.Metadata,
			Success:       l.Success,
			CreatedAt:     l.CreatedAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuditLogListResponse{Logs: out, Count: len(out)})
}

// ─── Helpers ───

func writeDIDError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, didsvc.ErrInvalidDID):
		httperrors.WriteError(w, httperrors.ErrInvalidDID)
	case errors.Is(err, didsvc.ErrAlreadyExists):
		httperrors.WriteError(w, httperrors.ErrDIDAlreadyExists)
	case errors.Is(err, didsvc.ErrNotRegistered):
		httperrors.WriteError(w, httperrors.ErrUnregisteredDID)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
