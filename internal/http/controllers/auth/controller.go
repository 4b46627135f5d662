// Package auth expone los endpoints del protocolo challenge-response.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/didjohn/internal/audit"
	authsvc "github.com/dropDatabas3/didjohn/internal/auth"
	"github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/http/dto"
	httperrors "github.com/dropDatabas3/didjohn/internal/http/errors"
	"github.com/dropDatabas3/didjohn/internal/http/helpers"
	mw "github.com/dropDatabas3/didjohn/internal/http/middlewares"
	"github.com/dropDatabas3/didjohn/internal/metrics"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
)

// Controller maneja los endpoints de autenticación.
type Controller struct {
	service *authsvc.Service
}

func NewController(service *authsvc.Service) *Controller {
	return &Controller{service: service}
}

// Challenge maneja POST /v1/auth/challenge
func (c *Controller) Challenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Challenge"))

	var req dto.ChallengeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.DID) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("did es obligatorio"))
		return
	}

	res, err := c.service.GenerateChallenge(ctx, req.DID, requestEntry(r))
	if err != nil {
		log.Debug("challenge rejected", logger.Err(err))
		metrics.RecordAuth("challenge", "rejected")
		writeAuthError(w, err)
		return
	}

	metrics.RecordAuth("challenge", "ok")
	helpers.WriteJSON(w, http.StatusCreated, dto.ChallengeResponse{
		ID:        res.ID,
		Challenge: res.Challenge,
		Timestamp: res.Timestamp,
	})
}

// Verify maneja POST /v1/auth/verify
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Verify"))

	var req dto.VerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.DID == "" || req.ChallengeID == "" || req.Signature == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("did, challengeId y signature son obligatorios"))
		return
	}

	res, err := c.service.VerifyChallenge(ctx, req.DID, req.ChallengeID, req.Signature, requestEntry(r))
	if err != nil {
		log.Debug("verification failed", logger.Err(err))
		metrics.RecordAuth("verify", "rejected")
		writeAuthError(w, err)
		return
	}

	metrics.RecordAuth("verify", "ok")
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		DID:         res.DID,
	})
}

// VerifyToken maneja GET /v1/auth/verify-token (guarded): devuelve el registro
// de identidad del token presentado.
func (c *Controller) VerifyToken(w http.ResponseWriter, r *http.Request) {
	u := mw.GetIdentity(r.Context())
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UserResponse{
		DID:                   u.DID,
		GSYDexAddress:         u.GSYDexAddress,
		HasVerifiedCredential: u.HasVerifiedCredential,
		Deactivated:           u.Deactivated,
		CreatedAt:             u.CreatedAt,
	})
}

// ─── Helpers ───

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, did.ErrInvalidDID):
		httperrors.WriteError(w, httperrors.ErrInvalidDID)
	case errors.Is(err, authsvc.ErrUnregisteredDID):
		httperrors.WriteError(w, httperrors.ErrUnregisteredDID)
	case errors.Is(err, authsvc.ErrInvalidChallenge):
		httperrors.WriteError(w, httperrors.ErrInvalidChallenge)
	case errors.Is(err, authsvc.ErrInvalidSignature):
		httperrors.WriteError(w, httperrors.ErrInvalidSignature)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

func requestEntry(r *http.Request) audit.Entry {
	return audit.Entry{}.WithRequest(r)
}
