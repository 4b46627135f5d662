// Package auth implementa el protocolo challenge-response de autenticación DID.
//
// Máquina de estados por intento: CHALLENGE_REQUESTED -> CHALLENGE_ISSUED ->
// VERIFIED(ok|fail). No hay estado cross-intento fuera del registro Challenge.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/didjohn/internal/audit"
	"github.com/dropDatabas3/didjohn/internal/crypto/ethsig"
	"github.com/dropDatabas3/didjohn/internal/did"
	jwtx "github.com/dropDatabas3/didjohn/internal/jwt"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

// Errores del servicio. Challenge inexistente, ya usado, de otro DID o
// expirado colapsan todos en ErrInvalidChallenge para no filtrar cuál parte
// de (did, challengeId) falló.
var (
	ErrUnregisteredDID  = errors.New("did is not registered")
	ErrInvalidChallenge = errors.New("invalid or expired challenge")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Registry es la capability de lectura del DID registry externo.
type Registry interface {
	IsRegistered(ctx context.Context, did string) (bool, error)
}

// Deps contiene las dependencias del auth service.
type Deps struct {
	Store      core.Repository
	Challenges core.ChallengeStore // nil = usar Store
	Audit      *audit.Service
	Issuer     *jwtx.Issuer
	Registry   Registry

	ChallengeTTL time.Duration // default 10m
	ServiceName  string        // aparece en el texto firmable
}

type Service struct {
	deps deps
}

type deps struct {
	store      core.Repository
	challenges core.ChallengeStore
	audit      *audit.Service
	issuer     *jwtx.Issuer
	registry   Registry
	ttl        time.Duration
	service    string
}

func NewService(d Deps) *Service {
	if d.Challenges == nil {
		d.Challenges = d.Store
	}
	if d.ChallengeTTL <= 0 {
		d.ChallengeTTL = 10 * time.Minute
	}
	if d.ServiceName == "" {
		d.ServiceName = "GSY EWF Identity Server"
	}
	return &Service{deps: deps{
		store:      d.Store,
		challenges: d.Challenges,
		audit:      d.Audit,
		issuer:     d.Issuer,
		registry:   d.Registry,
		ttl:        d.ChallengeTTL,
		service:    d.ServiceName,
	}}
}

// ChallengeResult es la respuesta de GenerateChallenge.
type ChallengeResult struct {
	ID        string    `json:"id"`
	Challenge string    `json:"challenge"`
	Timestamp time.Time `json:"timestamp"`
}

// VerifyResult es la respuesta de VerifyChallenge.
type VerifyResult struct {
	AccessToken string `json:"accessToken"`
	DID         string `json:"did"`
}

// GenerateChallenge emite un challenge nuevo para un DID registrado.
// El evento LOGIN_ATTEMPT es fire-and-forget.
func (s *Service) GenerateChallenge(ctx context.Context, didStr string, req audit.Entry) (*ChallengeResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"), logger.Component("auth"), logger.Op("GenerateChallenge"),
		logger.DID(didStr),
	)

	registered, err := s.deps.registry.IsRegistered(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("auth: registry lookup: %w", err)
	}
	if !registered {
		log.Debug("did not registered")
		return nil, ErrUnregisteredDID
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	text := fmt.Sprintf("Sign this message to authenticate with %s: %s at %s",
		s.deps.service, id, now.Format(time.RFC3339))

	c := &core.Challenge{
		ID:        id,
		DID:       didStr,
		Text:      text,
		Used:      false,
		CreatedAt: now,
		ExpiresAt: now.Add(s.deps.ttl),
	}
	if err := s.deps.challenges.CreateChallenge(ctx, c); err != nil {
		return nil, fmt.Errorf("auth: persist challenge: %w", err)
	}

	req.Metadata = mergeMeta(req.Metadata, map[string]any{"challengeId": id})
	req.Success = true
	s.deps.audit.Record(ctx, core.AuditLoginAttempt, didStr, req)

	log.Debug("challenge issued", logger.ChallengeID(id))
	return &ChallengeResult{ID: id, Challenge: text, Timestamp: now}, nil
}

// VerifyChallenge consume el challenge, verifica la firma contra la dirección
// embebida en el DID y emite el bearer token. Todo fallo es terminal: el
// cliente debe pedir un challenge nuevo.
func (s *Service) VerifyChallenge(ctx context.Context, didStr, challengeID, signature string, req audit.Entry) (*VerifyResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"), logger.Component("auth"), logger.Op("VerifyChallenge"),
		logger.DID(didStr), logger.ChallengeID(challengeID),
	)

	// Paso 1: consumo atómico. El flip used=true queda persistido acá, antes
	// de emitir el token: un fallo posterior no rehabilita el challenge.
	challenge, err := s.deps.challenges.ConsumeChallenge(ctx, didStr, challengeID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("challenge not found")
			return nil, ErrInvalidChallenge
		}
		return nil, fmt.Errorf("auth: consume challenge: %w", err)
	}

	fail := func(reason string) {
		e := req
		e.Metadata = mergeMeta(e.Metadata, map[string]any{"challengeId": challengeID})
		e = audit.Failure(e.Metadata, reason)
		e.IPAddress, e.UserAgent = req.IPAddress, req.UserAgent
		s.deps.audit.Record(ctx, core.AuditLoginFailure, didStr, e)
	}

	// Paso 2: recuperar el firmante y compararlo con la dirección del DID.
	didAddr, err := did.EmbeddedAddress(didStr)
	if err != nil {
		fail("malformed did")
		return nil, ErrInvalidSignature
	}
	recovered, err := ethsig.RecoverSigner(challenge.Text, signature)
	if err != nil {
		fail("malformed signature")
		return nil, ErrInvalidSignature
	}
	if !strings.EqualFold(recovered.Hex(), didAddr) {
		log.Debug("signer mismatch", logger.Address(recovered.Hex()))
		fail("signature does not match did address")
		return nil, ErrInvalidSignature
	}

	// Paso 3: auto-registro en primer login.
	if _, err := s.deps.store.GetUser(ctx, didStr); errors.Is(err, core.ErrNotFound) {
		if err := s.deps.store.UpsertUser(ctx, &core.User{DID: didStr}); err != nil {
			fail("user upsert failed")
			return nil, fmt.Errorf("auth: upsert user: %w", err)
		}
	} else if err != nil {
		fail("user lookup failed")
		return nil, fmt.Errorf("auth: get user: %w", err)
	}

	token, err := s.deps.issuer.Issue(didStr, time.Now().UTC())
	if err != nil {
		fail("token issue failed")
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	ok := req
	ok.Metadata = mergeMeta(ok.Metadata, map[string]any{"challengeId": challengeID})
	ok.Success = true
	s.deps.audit.Record(ctx, core.AuditLoginSuccess, didStr, ok)

	log.Info("authentication ok")
	return &VerifyResult{AccessToken: token, DID: didStr}, nil
}

// ValidateUser devuelve el registro de identidad del DID, o nil si no existe
// (sin error). El guard usa el nil para rechazar: la validez del token queda
// condicionada a que la identidad siga existiendo, sin revocation list.
func (s *Service) ValidateUser(ctx context.Context, didStr string) (*core.User, error) {
	u, err := s.deps.store.GetUser(ctx, didStr)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: get user: %w", err)
	}
	return u, nil
}

// mergeMeta combina metadata en un mapa nuevo; nunca muta sus argumentos.
func mergeMeta(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
