package credentials

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/didjohn/internal/audit"
	"github.com/dropDatabas3/didjohn/internal/crypto/ethsig"
	"github.com/dropDatabas3/didjohn/internal/crypto/subsig"
	"github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

var (
	ErrUnregisteredDID           = errors.New("did is not registered")
	ErrInvalidDIDSignature       = errors.New("did signature verification failed")
	ErrInvalidSubstrateSignature = errors.New("substrate signature verification failed")
	ErrBadCredential             = errors.New("malformed credential document")
	ErrNotFound                  = errors.New("credential not found")
	ErrAlreadyRevoked            = errors.New("credential already revoked")
)

// Registry es la capability mínima del DID registry que necesita el engine.
type Registry interface {
	IsRegistered(ctx context.Context, did string) (bool, error)
}

// Deps contiene las dependencias del credential engine. IssuerKey es la clave
// secp256k1 del servidor: se inyecta una vez al arranque y no se muta.
type Deps struct {
	Store     core.Repository
	Audit     *audit.Service
	Registry  Registry
	IssuerKey *ecdsa.PrivateKey

	Validity time.Duration // default 1 año
}

type Service struct {
	store     core.Repository
	audit     *audit.Service
	registry  Registry
	issuerKey *ecdsa.PrivateKey
	issuerDID string
	validity  time.Duration
}

func NewService(d Deps) *Service {
	if d.Validity <= 0 {
		d.Validity = 365 * 24 * time.Hour
	}
	return &Service{
		store:     d.Store,
		audit:     d.Audit,
		registry:  d.Registry,
		issuerKey: d.IssuerKey,
		issuerDID: did.Format(ethsig.AddressOf(d.IssuerKey)),
		validity:  d.Validity,
	}
}

// IssuerDID es el DID del servidor, derivado de la clave de firma.
func (s *Service) IssuerDID() string { return s.issuerDID }

// Issue emite una credencial que vincula didStr con gsyDexAddress, previa
// verificación de la doble firma sobre challengeText: la ECDSA prueba control
// de la clave del DID, la substrate prueba control de la dirección vinculada.
func (s *Service) Issue(ctx context.Context, didStr, gsyDexAddress, challengeText, didSignature, substrateSignature string, req audit.Entry) (*Document, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"), logger.Component("credentials"), logger.Op("Issue"),
		logger.DID(didStr), logger.LinkedAddress(gsyDexAddress),
	)

	registered, err := s.registry.IsRegistered(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("credentials: registry lookup: %w", err)
	}
	if !registered {
		return nil, ErrUnregisteredDID
	}

	fail := func(reason string) {
		e := audit.Failure(req.Metadata, reason)
		e.GSYDexAddress = gsyDexAddress
		e.IPAddress, e.UserAgent = req.IPAddress, req.UserAgent
		s.audit.Record(ctx, core.AuditCredentialIssued, didStr, e)
	}

	// Firma A: ECDSA sobre el texto plano, contra la dirección del DID.
	didAddr, err := did.EmbeddedAddress(didStr)
	if err != nil {
		fail("malformed did")
		return nil, ErrInvalidDIDSignature
	}
	recovered, err := ethsig.RecoverSigner(challengeText, didSignature)
	if err != nil || !strings.EqualFold(recovered.Hex(), didAddr) {
		log.Debug("did signature rejected")
		fail("did signature does not match did address")
		return nil, ErrInvalidDIDSignature
	}

	// Firma B: sr25519/ed25519 sobre el texto envuelto en <Bytes>.
	if !subsig.Verify(challengeText, substrateSignature, gsyDexAddress) {
		log.Debug("substrate signature rejected")
		fail("substrate signature does not match gsy-dex address")
		return nil, ErrInvalidSubstrateSignature
	}

	now := time.Now().UTC()
	doc := Document{
		Context:        []string{ContextCredentialsV1, ContextGSYDexV1},
		ID:             "urn:uuid:" + uuid.NewString(),
		Type:           []string{TypeVerifiableCredential, TypeGSYDexAddress},
		Issuer:         s.issuerDID,
		IssuanceDate:   now,
		ExpirationDate: now.Add(s.validity),
		Subject: Subject{
			ID:          didStr,
			AccountLink: AccountLink{GSYDexAddress: gsyDexAddress, Chain: ChainGSYDex},
		},
	}

	canonical, err := Canonicalize(doc.Unsigned())
	if err != nil {
		return nil, err
	}
	jws, err := ethsig.Sign(string(canonical), s.issuerKey)
	if err != nil {
		return nil, fmt.Errorf("credentials: sign: %w", err)
	}
	doc.Proof = &Proof{
		Type:               ProofType,
		Created:            now,
		VerificationMethod: s.issuerDID + "#controller",
		ProofPurpose:       ProofPurpose,
		JWS:                jws,
	}

	subjectRaw, err := json.Marshal(doc.Subject)
	if err != nil {
		return nil, fmt.Errorf("credentials: marshal subject: %w", err)
	}
	docRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("credentials: marshal document: %w", err)
	}
	rec := &core.Credential{
		ID:             doc.ID,
		DID:            didStr,
		GSYDexAddress:  gsyDexAddress,
		Subject:        subjectRaw,
		Document:       docRaw,
		Status:         core.CredentialActive,
		ExpirationDate: doc.ExpirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateCredential(ctx, rec); err != nil {
		return nil, fmt.Errorf("credentials: persist: %w", err)
	}
	if err := s.store.SetUserLink(ctx, didStr, gsyDexAddress); err != nil {
		return nil, fmt.Errorf("credentials: link user: %w", err)
	}

	ok := req
	ok.Metadata = mergeMeta(ok.Metadata, map[string]any{"credentialId": doc.ID})
	ok.GSYDexAddress = gsyDexAddress
	ok.Success = true
	s.audit.Record(ctx, core.AuditCredentialIssued, didStr, ok)

	log.Info("credential issued", logger.CredentialID(doc.ID))
	return &doc, nil
}

// VerifyResult es el veredicto estructurado de Verify. La invalidez de negocio
// nunca es un error Go: el caller siempre recibe un resultado. DID y
// LinkedAddress acompañan todo veredicto: del registro almacenado cuando la
// credencial es conocida, del subject presentado cuando no.
type VerifyResult struct {
	Valid         bool   `json:"valid"`
	Status        string `json:"status"` // active | revoked | expired | invalid | unknown
	Reason        string `json:"reason,omitempty"`
	DID           string `json:"did,omitempty"`
	LinkedAddress string `json:"linkedAddress,omitempty"`
}

// Verify reevalúa una credencial presentada: existencia del registro por id,
// estado de revocación, expiración y firma del issuer sobre la forma canónica.
// El orden importa: revoked y expired dominan sobre la validez de la firma.
func (s *Service) Verify(ctx context.Context, raw json.RawMessage, req audit.Entry) (*VerifyResult, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ErrBadCredential
	}
	if doc.ID == "" || doc.Issuer == "" || doc.Proof == nil || doc.Proof.JWS == "" {
		return nil, ErrBadCredential
	}

	rec, err := s.store.GetCredential(ctx, doc.ID)
	if errors.Is(err, core.ErrNotFound) {
		return &VerifyResult{
			Valid: false, Status: "unknown", Reason: "credential is not known to this issuer",
			DID: doc.Subject.ID, LinkedAddress: doc.Subject.AccountLink.GSYDexAddress,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: get: %w", err)
	}

	res := VerifyResult{DID: rec.DID, LinkedAddress: rec.GSYDexAddress}
	if rec.Status == core.CredentialRevoked {
		res.Status, res.Reason = "revoked", "credential has been revoked"
		return &res, nil
	}
	if time.Now().UTC().After(doc.ExpirationDate) {
		res.Status, res.Reason = "expired", "credential has expired"
		return &res, nil
	}

	canonical, err := Canonicalize(doc.Unsigned())
	if err != nil {
		return nil, err
	}
	issuerAddr, err := did.EmbeddedAddress(doc.Issuer)
	if err != nil {
		res.Status, res.Reason = "invalid", "malformed issuer did"
		return &res, nil
	}
	signer, err := ethsig.RecoverSigner(string(canonical), doc.Proof.JWS)
	if err != nil || !strings.EqualFold(signer.Hex(), issuerAddr) {
		res.Status, res.Reason = "invalid", "proof signature does not match issuer"
		return &res, nil
	}

	ok := req
	ok.Metadata = mergeMeta(ok.Metadata, map[string]any{"credentialId": doc.ID})
	ok.Success = true
	s.audit.Record(ctx, core.AuditCredentialVerified, rec.DID, ok)

	res.Valid, res.Status = true, "active"
	return &res, nil
}

// Revoke marca la credencial como revocada. Transición one-way: una credencial
// revocada no vuelve a active. La autorización (ownership) es del caller.
func (s *Service) Revoke(ctx context.Context, id string, req audit.Entry) error {
	rec, err := s.store.GetCredential(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("credentials: get: %w", err)
	}
	if rec.Status == core.CredentialRevoked {
		return ErrAlreadyRevoked
	}
	if err := s.store.SetCredentialStatus(ctx, id, core.CredentialRevoked); err != nil {
		return fmt.Errorf("credentials: revoke: %w", err)
	}

	ok := req
	ok.Metadata = mergeMeta(ok.Metadata, map[string]any{"credentialId": id})
	ok.GSYDexAddress = rec.GSYDexAddress
	ok.Success = true
	s.audit.Record(ctx, core.AuditCredentialRevoked, rec.DID, ok)

	logger.From(ctx).Info("credential revoked",
		logger.Component("credentials"), logger.CredentialID(id), logger.DID(rec.DID))
	return nil
}

// Owner devuelve el DID titular de la credencial, para el ownership check.
func (s *Service) Owner(ctx context.Context, id string) (string, error) {
	rec, err := s.store.GetCredential(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credentials: get: %w", err)
	}
	return rec.DID, nil
}

// ListByDID lista las credenciales del DID, activas y revocadas.
func (s *Service) ListByDID(ctx context.Context, didStr string) ([]core.Credential, error) {
	list, err := s.store.ListCredentialsByDID(ctx, didStr)
	if err != nil {
		return nil, fmt.Errorf("credentials: list: %w", err)
	}
	return list, nil
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
