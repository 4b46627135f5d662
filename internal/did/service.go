package did

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dropDatabas3/didjohn/internal/audit"
	"github.com/dropDatabas3/didjohn/internal/did/registry"
	"github.com/dropDatabas3/didjohn/internal/observability/logger"
	"github.com/dropDatabas3/didjohn/internal/store/core"
)

var (
	ErrAlreadyExists = errors.New("did already has an active record")
	ErrNotRegistered = errors.New("did is not registered")
)

// RegistryClient agrupa las capabilities del registry ERC-1056 que usa el
// servicio de gestión de DIDs.
type RegistryClient interface {
	IsRegistered(ctx context.Context, identity common.Address) (bool, error)
	IdentityOwner(ctx context.Context, identity common.Address) (common.Address, error)
	PrepareSetAttribute(identity common.Address, name string, value []byte, validity *big.Int) (*registry.PreparedTransaction, error)
	PrepareDeactivate(identity common.Address) (*registry.PreparedTransaction, error)
}

// Deps del servicio de gestión de DIDs.
type Deps struct {
	Store    core.Repository
	Audit    *audit.Service
	Registry RegistryClient

	// AttributeValidity es la validez on-chain de los atributos preparados.
	AttributeValidity time.Duration // default 1 año
}

type Service struct {
	store    core.Repository
	audit    *audit.Service
	registry RegistryClient
	validity time.Duration
}

func NewService(d Deps) *Service {
	if d.AttributeValidity <= 0 {
		d.AttributeValidity = 365 * 24 * time.Hour
	}
	return &Service{store: d.Store, audit: d.Audit, registry: d.Registry, validity: d.AttributeValidity}
}

// publicKeyAttribute es el nombre de atributo ERC-1056 para la clave de
// verificación secp256k1 (convención ethr-did).
const publicKeyAttribute = "did/pub/Secp256k1/veriKey/hex"

// CreateResult es la respuesta de Create: el registro local más la transacción
// que el wallet del cliente debe firmar para anclar la clave on-chain.
type CreateResult struct {
	DID         string                        `json:"did"`
	Transaction *registry.PreparedTransaction `json:"transaction"`
}

// Create da de alta el registro local del DID y prepara el setAttribute
// inicial con la clave pública. Conflicto si ya existe un registro activo.
func (s *Service) Create(ctx context.Context, didStr, publicKeyHex string, req audit.Entry) (*CreateResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"), logger.Component("did"), logger.Op("Create"), logger.DID(didStr),
	)

	identity, err := Parse(didStr)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetUser(ctx, didStr)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("did: get user: %w", err)
	}
	if existing != nil && !existing.Deactivated {
		return nil, ErrAlreadyExists
	}

	tx, err := s.registry.PrepareSetAttribute(identity, publicKeyAttribute, []byte(publicKeyHex), s.validityBig())
	if err != nil {
		return nil, fmt.Errorf("did: prepare tx: %w", err)
	}

	if err := s.store.UpsertUser(ctx, &core.User{DID: didStr}); err != nil {
		return nil, fmt.Errorf("did: upsert user: %w", err)
	}

	ok := req
	ok.Success = true
	s.audit.Record(ctx, core.AuditDIDCreated, didStr, ok)

	log.Info("did created")
	return &CreateResult{DID: didStr, Transaction: tx}, nil
}

// ResolvedDocument es un DID document mínimo derivado del estado on-chain.
type ResolvedDocument struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	Controller         string               `json:"controller"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Deactivated        bool                 `json:"deactivated"`
}

type VerificationMethod struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller"`
	BlockchainAccountID string `json:"blockchainAccountId"`
}

// Resolve construye el documento mínimo del DID desde el owner on-chain.
// Owner == zero address significa identidad desactivada.
func (s *Service) Resolve(ctx context.Context, didStr string) (*ResolvedDocument, error) {
	identity, err := Parse(didStr)
	if err != nil {
		return nil, err
	}
	owner, err := s.registry.IdentityOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("did: identity owner: %w", err)
	}

	deactivated := owner == (common.Address{})
	doc := &ResolvedDocument{
		Context:     []string{"https://www.w3.org/ns/did/v1"},
		ID:          didStr,
		Controller:  Format(owner),
		Deactivated: deactivated,
	}
	if !deactivated {
		doc.VerificationMethod = []VerificationMethod{{
			ID:                  didStr + "#controller",
			Type:                "EcdsaSecp256k1RecoveryMethod2020",
			Controller:          didStr,
			BlockchainAccountID: "eip155:1:" + owner.Hex(),
		}}
	}
	return doc, nil
}

// PrepareUpdate prepara la transacción que rota la clave pública del DID.
func (s *Service) PrepareUpdate(ctx context.Context, didStr, publicKeyHex string, req audit.Entry) (*registry.PreparedTransaction, error) {
	identity, err := Parse(didStr)
	if err != nil {
		return nil, err
	}
	registered, err := s.registry.IsRegistered(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("did: registry lookup: %w", err)
	}
	if !registered {
		return nil, ErrNotRegistered
	}

	tx, err := s.registry.PrepareSetAttribute(identity, publicKeyAttribute, []byte(publicKeyHex), s.validityBig())
	if err != nil {
		return nil, fmt.Errorf("did: prepare tx: %w", err)
	}

	ok := req
	ok.Success = true
	s.audit.Record(ctx, core.AuditDIDUpdated, didStr, ok)
	return tx, nil
}

// PrepareDeactivate prepara el changeOwner a la zero address y marca el
// registro local como desactivado. La desactivación on-chain recién ocurre
// cuando el wallet del cliente firma y difunde la transacción.
func (s *Service) PrepareDeactivate(ctx context.Context, didStr string, req audit.Entry) (*registry.PreparedTransaction, error) {
	identity, err := Parse(didStr)
	if err != nil {
		return nil, err
	}
	tx, err := s.registry.PrepareDeactivate(identity)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetUserDeactivated(ctx, didStr); err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("did: deactivate user: %w", err)
	}

	ok := req
	meta := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["operation"] = "deactivate"
	ok.Metadata = meta
	ok.Success = true
	s.audit.Record(ctx, core.AuditDIDUpdated, didStr, ok)
	return tx, nil
}

// IsRegistered responde si el DID tiene actividad on-chain. Auth y el
// credential engine lo usan como gate de emisión.
func (s *Service) IsRegistered(ctx context.Context, didStr string) (bool, error) {
	identity, err := Parse(didStr)
	if err != nil {
		return false, err
	}
	return s.registry.IsRegistered(ctx, identity)
}

// Exists responde el existence check público: primero el registro local,
// después la cadena.
func (s *Service) Exists(ctx context.Context, didStr string) (bool, error) {
	identity, err := Parse(didStr)
	if err != nil {
		return false, err
	}
	if _, err := s.store.GetUser(ctx, didStr); err == nil {
		return true, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return false, fmt.Errorf("did: get user: %w", err)
	}
	return s.registry.IsRegistered(ctx, identity)
}

func (s *Service) validityBig() *big.Int {
	return big.NewInt(int64(s.validity / time.Second))
}
