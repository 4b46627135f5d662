// Package credentials expone los endpoints de emisión, verificación y
// revocación de credenciales.
package credentials

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/didjohn/internal/audit"
	credsvc "github.com/dropDatabas3/didjohn/internal/credentials"
	"github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/http/dto"
	httperrors "github.com/dropDatabas3/didjohn/internal/http/errors"
	"github.com/dropDatabas3/didjohn/internal/http/helpers"
	mw "github.com/dropDatabas3/didjohn/internal/http/middlewares"
	"github.com/dropDatabas3/didjohn/internal/metrics"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// Controller maneja los endpoints de credenciales.
type Controller struct {
	service *credsvc.Service
}

func NewController(service *credsvc.Service) *Controller {
	return &Controller{service: service}
}

// Issue maneja POST /v1/credentials/issue (guarded). El titular autenticado
// solo puede emitir sobre su propio DID.
func (c *Controller) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Credentials.Issue"))

	u := mw.GetIdentity(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.IssueCredentialRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.DID == "" || req.GSYDexAddress == "" || req.Challenge == "" ||
		req.DIDSignature == "" || req.SubstrateSignature == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail(
			"did, gsyDexAddress, challenge, didSignature y substrateSignature son obligatorios"))
		return
	}
	if !equalDID(req.DID, u.DID) {
		httperrors.WriteError(w, httperrors.ErrNotResourceOwner)
		return
	}

	doc, err := c.service.Issue(ctx, req.DID, req.GSYDexAddress, req.Challenge,
		req.DIDSignature, req.SubstrateSignature, audit.Entry{}.WithRequest(r))
	if err != nil {
		log.Debug("issuance failed", logger.Err(err))
		metrics.RecordCredential("issue", "rejected")
		writeCredentialError(w, err)
		return
	}

	metrics.RecordCredential("issue", "ok")
	helpers.WriteJSON(w, http.StatusCreated, doc)
}

// Verify maneja POST /v1/credentials/verify (público: cualquiera puede
// verificar una credencial presentada).
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.VerifyCredentialRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if len(req.Credential) == 0 {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("credential es obligatorio"))
		return
	}

	res, err := c.service.Verify(ctx, req.Credential, audit.Entry{}.WithRequest(r))
	if err != nil {
		metrics.RecordCredential("verify", "rejected")
		writeCredentialError(w, err)
		return
	}

	metrics.RecordCredential("verify", res.Status)
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyCredentialResponse{
		Valid:         res.Valid,
		Status:        res.Status,
		Reason:        res.Reason,
		DID:           res.DID,
		LinkedAddress: res.LinkedAddress,
	})
}

// Revoke maneja DELETE /v1/credentials/{id} (guarded + ownership).
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Credentials.Revoke"))

	u := mw.GetIdentity(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("id es obligatorio"))
		return
	}

	// Ownership: la credencial debe pertenecer al DID autenticado.
	owner, err := c.service.Owner(ctx, id)
	if err != nil {
		writeCredentialError(w, err)
		return
	}
	if !equalDID(owner, u.DID) {
		httperrors.WriteError(w, httperrors.ErrNotResourceOwner)
		return
	}

	if err := c.service.Revoke(ctx, id, audit.Entry{}.WithRequest(r)); err != nil {
		log.Debug("revocation failed", logger.Err(err))
		metrics.RecordCredential("revoke", "rejected")
		writeCredentialError(w, err)
		return
	}

	metrics.RecordCredential("revoke", "ok")
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": "revoked"})
}

// ListByDID maneja GET /v1/credentials/did/{did} (guarded + ownership vía
// middleware RequireDIDOwner).
func (c *Controller) ListByDID(w http.ResponseWriter, r *http.Request) {
	c.writeList(w, r, chi.URLParam(r, "did"))
}

// ListMine maneja GET /v1/credentials/my: listado derivado del token.
func (c *Controller) ListMine(w http.ResponseWriter, r *http.Request) {
	u := mw.GetIdentity(r.Context())
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	c.writeList(w, r, u.DID)
}

func (c *Controller) writeList(w http.ResponseWriter, r *http.Request, didStr string) {
	if didStr == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("did es obligatorio"))
		return
	}
	list, err := c.service.ListByDID(r.Context(), didStr)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	out := make([]dto.CredentialSummary, 0, len(list))
	for _, cred := range list {
		out = append(out, dto.CredentialSummary{
			ID:             cred.ID,
			DID:            cred.DID,
			GSYDexAddress:  cred.GSYDexAddress,
			Status:         string(cred.Status),
			ExpirationDate: cred.ExpirationDate,
			CreatedAt:      cred.CreatedAt,
			Document:       json.RawMessage(cred.Document),
		})
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CredentialListResponse{Credentials: out, Count: len(out)})
}

// ─── Helpers ───

func writeCredentialError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, did.ErrInvalidDID):
		httperrors.WriteError(w, httperrors.ErrInvalidDID)
	case errors.Is(err, credsvc.ErrUnregisteredDID):
		httperrors.WriteError(w, httperrors.ErrUnregisteredDID)
	case errors.Is(err, credsvc.ErrInvalidDIDSignature):
		httperrors.WriteError(w, httperrors.ErrInvalidSignature)
	case errors.Is(err, credsvc.ErrInvalidSubstrateSignature):
		httperrors.WriteError(w, httperrors.ErrInvalidSubstrateSignature)
	case errors.Is(err, credsvc.ErrBadCredential):
		httperrors.WriteError(w, httperrors.ErrBadCredentialDocument)
	case errors.Is(err, credsvc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrCredentialNotFound)
	case errors.Is(err, credsvc.ErrAlreadyRevoked):
		httperrors.WriteError(w, httperrors.ErrCredentialRevoked)
	case errors.Is(err, core.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

func equalDID(a, b string) bool {
	return did.Equal(a, b)
}
